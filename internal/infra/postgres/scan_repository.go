package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/domain/shared"
)

// ScanRepository implements scan.Repository using PostgreSQL.
type ScanRepository struct {
	db *DB
}

// NewScanRepository creates a new ScanRepository.
func NewScanRepository(db *DB) *ScanRepository {
	return &ScanRepository{db: db}
}

const scanColumns = `id, artifact_id, release_id, scanner_name, status, started_at, completed_at, findings_count, last_error`

// Create persists a new scan.
func (r *ScanRepository) Create(ctx context.Context, s *scan.Scan) error {
	query := `
		INSERT INTO scans (id, artifact_id, release_id, scanner_name, status, started_at, completed_at, findings_count, last_error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID().String(),
		nullID(s.ArtifactID()),
		nullID(s.ReleaseID()),
		s.ScannerName(),
		string(s.Status()),
		s.StartedAt(),
		nullTime(s.CompletedAt()),
		s.FindingsCount(),
		s.LastError(),
	)
	if err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	return nil
}

// GetByID retrieves a scan by ID.
func (r *ScanRepository) GetByID(ctx context.Context, id shared.ID) (*scan.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE id = $1`
	return r.scanScan(r.db.QueryRowContext(ctx, query, id.String()))
}

// Update persists scan state changes.
func (r *ScanRepository) Update(ctx context.Context, s *scan.Scan) error {
	query := `
		UPDATE scans
		SET status = $2, completed_at = $3, findings_count = $4, last_error = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		s.ID().String(),
		string(s.Status()),
		nullTime(s.CompletedAt()),
		s.FindingsCount(),
		s.LastError(),
	)
	if err != nil {
		return fmt.Errorf("failed to update scan: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return scan.ErrNotFound
	}
	return nil
}

// FindReusable returns the most recent non-failed scan of the same
// artifact and scanner started at or after the cutoff.
func (r *ScanRepository) FindReusable(ctx context.Context, artifactID shared.ID, scannerName string, since time.Time) (*scan.Scan, error) {
	query := `
		SELECT ` + scanColumns + `
		FROM scans
		WHERE artifact_id = $1 AND scanner_name = $2 AND status != $3 AND started_at >= $4
		ORDER BY started_at DESC
		LIMIT 1
	`

	return r.scanScan(r.db.QueryRowContext(ctx, query,
		artifactID.String(),
		scannerName,
		string(scan.StatusFailed),
		since,
	))
}

// ListByArtifact returns scans for an artifact, newest first.
func (r *ScanRepository) ListByArtifact(ctx context.Context, artifactID shared.ID) ([]*scan.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE artifact_id = $1 ORDER BY started_at DESC`
	return r.listScans(ctx, query, artifactID.String())
}

// ListByRelease returns release-scoped scans, newest first.
func (r *ScanRepository) ListByRelease(ctx context.Context, releaseID shared.ID) ([]*scan.Scan, error) {
	query := `SELECT ` + scanColumns + ` FROM scans WHERE release_id = $1 ORDER BY started_at DESC`
	return r.listScans(ctx, query, releaseID.String())
}

// CountByArtifacts returns the number of scans per artifact in one grouped
// query. Artifacts never scanned are absent from the map.
func (r *ScanRepository) CountByArtifacts(ctx context.Context, artifactIDs []shared.ID) (map[shared.ID]int, error) {
	out := make(map[shared.ID]int, len(artifactIDs))
	if len(artifactIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT artifact_id, COUNT(*)
		FROM scans
		WHERE artifact_id = ANY($1)
		GROUP BY artifact_id
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(idStrings(artifactIDs)))
	if err != nil {
		return nil, fmt.Errorf("failed to count scans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var idStr string
		var count int
		if err := rows.Scan(&idStr, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count row: %w", err)
		}
		id, err := shared.IDFromString(idStr)
		if err != nil {
			return nil, err
		}
		out[id] = count
	}
	return out, rows.Err()
}

func (r *ScanRepository) listScans(ctx context.Context, query string, args ...any) ([]*scan.Scan, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	defer rows.Close()

	var out []*scan.Scan
	for rows.Next() {
		s, err := r.scanScan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FailStale fails every non-terminal scan started before cutoff.
func (r *ScanRepository) FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error) {
	query := `
		UPDATE scans
		SET status = $1, completed_at = NOW(), last_error = $2
		WHERE status IN ($3, $4) AND started_at < $5`

	result, err := r.db.ExecContext(ctx, query,
		scan.StatusFailed, reason, scan.StatusPending, scan.StatusProcessing, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to fail stale scans: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count failed scans: %w", err)
	}
	return int(affected), nil
}

func (r *ScanRepository) scanScan(row rowScanner) (*scan.Scan, error) {
	var (
		idStr, scannerName, status, lastError string
		artifactID, releaseID                 sql.NullString
		startedAt                             time.Time
		completedAt                           sql.NullTime
		findingsCount                         int
	)

	err := row.Scan(&idStr, &artifactID, &releaseID, &scannerName, &status, &startedAt, &completedAt, &findingsCount, &lastError)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, scan.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan scan row: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}

	return scan.Reconstitute(
		id,
		parseNullID(artifactID),
		parseNullID(releaseID),
		scannerName,
		scan.Status(status),
		startedAt,
		nullTimeValue(completedAt),
		findingsCount,
		lastError,
	), nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wellqio/api/pkg/domain/threatintel"
)

// EPSSRepository implements threatintel.EPSSRepository using PostgreSQL.
type EPSSRepository struct {
	db *DB
}

// NewEPSSRepository creates a new EPSSRepository.
func NewEPSSRepository(db *DB) *EPSSRepository {
	return &EPSSRepository{db: db}
}

// UpsertBatch writes EPSS scores keyed by CVE ID. Feed rows replace
// earlier rows for the same CVE.
func (r *EPSSRepository) UpsertBatch(ctx context.Context, scores []*threatintel.EPSSScore) error {
	if len(scores) == 0 {
		return nil
	}

	cveIDs := make([]string, len(scores))
	scoreVals := make([]float64, len(scores))
	percentiles := make([]float64, len(scores))
	modelVersions := make([]string, len(scores))
	scoreDates := make([]time.Time, len(scores))
	updatedAts := make([]time.Time, len(scores))
	for i, s := range scores {
		cveIDs[i] = s.CVEID()
		scoreVals[i] = s.Score()
		percentiles[i] = s.Percentile()
		modelVersions[i] = s.ModelVersion()
		scoreDates[i] = s.ScoreDate()
		updatedAts[i] = s.UpdatedAt()
	}

	query := `
		INSERT INTO epss_scores (cve_id, score, percentile, model_version, score_date, updated_at)
		SELECT * FROM UNNEST($1::text[], $2::float8[], $3::float8[], $4::text[], $5::timestamptz[], $6::timestamptz[])
		ON CONFLICT (cve_id) DO UPDATE SET
			score = EXCLUDED.score,
			percentile = EXCLUDED.percentile,
			model_version = EXCLUDED.model_version,
			score_date = EXCLUDED.score_date,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		pq.Array(cveIDs),
		pq.Array(scoreVals),
		pq.Array(percentiles),
		pq.Array(modelVersions),
		pq.Array(scoreDates),
		pq.Array(updatedAts),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert epss scores: %w", err)
	}
	return nil
}

// GetByCVEIDs returns scores for the given CVE IDs. Unknown IDs are absent
// from the map.
func (r *EPSSRepository) GetByCVEIDs(ctx context.Context, cveIDs []string) (map[string]*threatintel.EPSSScore, error) {
	out := make(map[string]*threatintel.EPSSScore, len(cveIDs))
	if len(cveIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT cve_id, score, percentile, model_version, score_date, updated_at
		FROM epss_scores
		WHERE cve_id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(cveIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load epss scores: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cveID, modelVersion  string
			score, percentile    float64
			scoreDate, updatedAt time.Time
		)
		if err := rows.Scan(&cveID, &score, &percentile, &modelVersion, &scoreDate, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan epss score: %w", err)
		}
		out[cveID] = threatintel.ReconstituteEPSSScore(cveID, score, percentile, modelVersion, scoreDate, updatedAt)
	}
	return out, rows.Err()
}

// Count returns the number of stored EPSS scores.
func (r *EPSSRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM epss_scores`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count epss scores: %w", err)
	}
	return count, nil
}

// KEVRepository implements threatintel.KEVRepository using PostgreSQL.
type KEVRepository struct {
	db *DB
}

// NewKEVRepository creates a new KEVRepository.
func NewKEVRepository(db *DB) *KEVRepository {
	return &KEVRepository{db: db}
}

// UpsertBatch writes KEV catalog entries keyed by CVE ID.
func (r *KEVRepository) UpsertBatch(ctx context.Context, entries []*threatintel.KEVEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO kev_entries (cve_id, vendor_project, product, vulnerability_name, date_added, due_date, ransomware_use, notes, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (cve_id) DO UPDATE SET
				vendor_project = EXCLUDED.vendor_project,
				product = EXCLUDED.product,
				vulnerability_name = EXCLUDED.vulnerability_name,
				date_added = EXCLUDED.date_added,
				due_date = EXCLUDED.due_date,
				ransomware_use = EXCLUDED.ransomware_use,
				notes = EXCLUDED.notes,
				updated_at = EXCLUDED.updated_at
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare kev upsert: %w", err)
		}
		defer stmt.Close()

		for _, e := range entries {
			var dueDate sql.NullTime
			if !e.DueDate().IsZero() {
				dueDate = sql.NullTime{Time: e.DueDate(), Valid: true}
			}

			_, err := stmt.ExecContext(ctx,
				e.CVEID(),
				e.VendorProject(),
				e.Product(),
				e.Name(),
				e.DateAdded(),
				dueDate,
				e.RansomwareUse(),
				e.Notes(),
				e.UpdatedAt(),
			)
			if err != nil {
				return fmt.Errorf("failed to upsert kev entry %s: %w", e.CVEID(), err)
			}
		}
		return nil
	})
}

// GetByCVEIDs returns catalog entries for the given CVE IDs.
func (r *KEVRepository) GetByCVEIDs(ctx context.Context, cveIDs []string) (map[string]*threatintel.KEVEntry, error) {
	out := make(map[string]*threatintel.KEVEntry, len(cveIDs))
	if len(cveIDs) == 0 {
		return out, nil
	}

	query := `
		SELECT cve_id, vendor_project, product, vulnerability_name, date_added, due_date, ransomware_use, notes, updated_at
		FROM kev_entries
		WHERE cve_id = ANY($1)
	`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(cveIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to load kev entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cveID, vendorProject, product, name string
			ransomwareUse, notes                string
			dateAdded, updatedAt                time.Time
			dueDate                             sql.NullTime
		)
		if err := rows.Scan(&cveID, &vendorProject, &product, &name, &dateAdded, &dueDate, &ransomwareUse, &notes, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan kev entry: %w", err)
		}

		var due time.Time
		if dueDate.Valid {
			due = dueDate.Time
		}
		out[cveID] = threatintel.ReconstituteKEVEntry(cveID, vendorProject, product, name, dateAdded, due, ransomwareUse, notes, updatedAt)
	}
	return out, rows.Err()
}

// Count returns the number of stored KEV entries.
func (r *KEVRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kev_entries`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count kev entries: %w", err)
	}
	return count, nil
}

// SyncStatusRepository implements threatintel.SyncStatusRepository using
// PostgreSQL.
type SyncStatusRepository struct {
	db *DB
}

// NewSyncStatusRepository creates a new SyncStatusRepository.
func NewSyncStatusRepository(db *DB) *SyncStatusRepository {
	return &SyncStatusRepository{db: db}
}

const syncStatusColumns = `source, enabled, state, last_sync_at, last_error, records_synced`

// GetBySource retrieves sync bookkeeping for one feed source.
func (r *SyncStatusRepository) GetBySource(ctx context.Context, source string) (*threatintel.SyncStatus, error) {
	query := `SELECT ` + syncStatusColumns + ` FROM threat_intel_sync_status WHERE source = $1`
	return r.scanStatus(r.db.QueryRowContext(ctx, query, source))
}

// GetAll returns bookkeeping for every known source.
func (r *SyncStatusRepository) GetAll(ctx context.Context) ([]*threatintel.SyncStatus, error) {
	query := `SELECT ` + syncStatusColumns + ` FROM threat_intel_sync_status ORDER BY source`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync statuses: %w", err)
	}
	defer rows.Close()

	var out []*threatintel.SyncStatus
	for rows.Next() {
		s, err := r.scanStatus(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Upsert writes the source's bookkeeping row.
func (r *SyncStatusRepository) Upsert(ctx context.Context, status *threatintel.SyncStatus) error {
	query := `
		INSERT INTO threat_intel_sync_status (source, enabled, state, last_sync_at, last_error, records_synced)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (source) DO UPDATE SET
			enabled = EXCLUDED.enabled,
			state = EXCLUDED.state,
			last_sync_at = EXCLUDED.last_sync_at,
			last_error = EXCLUDED.last_error,
			records_synced = EXCLUDED.records_synced
	`

	_, err := r.db.ExecContext(ctx, query,
		status.Source(),
		status.Enabled(),
		string(status.State()),
		nullTime(status.LastSyncAt()),
		status.LastError(),
		status.RecordsSynced(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sync status: %w", err)
	}
	return nil
}

func (r *SyncStatusRepository) scanStatus(row rowScanner) (*threatintel.SyncStatus, error) {
	var (
		source, state, lastError string
		enabled                  bool
		lastSyncAt               sql.NullTime
		recordsSynced            int64
	)

	err := row.Scan(&source, &enabled, &state, &lastSyncAt, &lastError, &recordsSynced)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, threatintel.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan sync status: %w", err)
	}

	return threatintel.ReconstituteSyncStatus(
		source, enabled,
		threatintel.SyncState(state),
		nullTimeValue(lastSyncAt),
		lastError, recordsSynced,
	), nil
}

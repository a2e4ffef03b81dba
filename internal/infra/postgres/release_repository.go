package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/shared"
)

// ReleaseRepository implements release.Repository using PostgreSQL.
type ReleaseRepository struct {
	db *DB
}

// NewReleaseRepository creates a new ReleaseRepository.
func NewReleaseRepository(db *DB) *ReleaseRepository {
	return &ReleaseRepository{db: db}
}

const releaseColumns = `id, product_id, name, commit_hash, created_at`

// Create persists a new release.
func (r *ReleaseRepository) Create(ctx context.Context, rel *release.Release) error {
	query := `
		INSERT INTO releases (id, product_id, name, commit_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		rel.ID().String(),
		rel.ProductID().String(),
		rel.Name(),
		rel.CommitHash(),
		rel.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create release: %w", err)
	}
	return nil
}

// GetByID retrieves a release by ID.
func (r *ReleaseRepository) GetByID(ctx context.Context, id shared.ID) (*release.Release, error) {
	query := `SELECT ` + releaseColumns + ` FROM releases WHERE id = $1`
	return r.scanRelease(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByName retrieves a release by its product-scoped name.
func (r *ReleaseRepository) GetByName(ctx context.Context, productID shared.ID, name string) (*release.Release, error) {
	query := `SELECT ` + releaseColumns + ` FROM releases WHERE product_id = $1 AND name = $2`
	return r.scanRelease(r.db.QueryRowContext(ctx, query, productID.String(), name))
}

// ListByProduct returns the product's releases, newest first.
func (r *ReleaseRepository) ListByProduct(ctx context.Context, productID shared.ID) ([]*release.Release, error) {
	query := `SELECT ` + releaseColumns + ` FROM releases WHERE product_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, productID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list releases: %w", err)
	}
	defer rows.Close()

	var out []*release.Release
	for rows.Next() {
		rel, err := r.scanRelease(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

// LinkArtifact attaches an artifact to the release BOM. Re-linking is a
// no-op.
func (r *ReleaseRepository) LinkArtifact(ctx context.Context, releaseID, artifactID shared.ID) error {
	query := `
		INSERT INTO release_artifacts (release_id, artifact_id)
		VALUES ($1, $2)
		ON CONFLICT (release_id, artifact_id) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query, releaseID.String(), artifactID.String())
	if err != nil {
		return fmt.Errorf("failed to link artifact: %w", err)
	}
	return nil
}

// ArtifactIDs returns the IDs of all artifacts composing the release.
func (r *ReleaseRepository) ArtifactIDs(ctx context.Context, releaseID shared.ID) ([]shared.ID, error) {
	query := `SELECT artifact_id FROM release_artifacts WHERE release_id = $1 ORDER BY linked_at`

	rows, err := r.db.QueryContext(ctx, query, releaseID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list release artifacts: %w", err)
	}
	defer rows.Close()

	var out []shared.ID
	for rows.Next() {
		var idStr string
		if err := rows.Scan(&idStr); err != nil {
			return nil, fmt.Errorf("failed to scan artifact id: %w", err)
		}
		id, err := shared.IDFromString(idStr)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func (r *ReleaseRepository) scanRelease(row rowScanner) (*release.Release, error) {
	var (
		idStr, productIDStr, name, commitHash string
		createdAt                             time.Time
	)

	err := row.Scan(&idStr, &productIDStr, &name, &commitHash, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, release.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan release: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}
	productID, err := shared.IDFromString(productIDStr)
	if err != nil {
		return nil, err
	}
	return release.Reconstitute(id, productID, name, commitHash, createdAt), nil
}

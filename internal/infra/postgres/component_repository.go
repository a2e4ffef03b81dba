package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wellqio/api/pkg/domain/component"
	"github.com/wellqio/api/pkg/domain/shared"
)

// ComponentRepository implements component.Repository using PostgreSQL.
type ComponentRepository struct {
	db *DB
}

// NewComponentRepository creates a new ComponentRepository.
func NewComponentRepository(db *DB) *ComponentRepository {
	return &ComponentRepository{db: db}
}

const componentColumns = `id, release_id, name, version, component_type, purl, license, change_status, created_at, updated_at`

// ListActive returns the release's components excluding REMOVED ones, the
// baseline an SBOM digest diffs against.
func (r *ComponentRepository) ListActive(ctx context.Context, releaseID shared.ID) ([]*component.Component, error) {
	query := `
		SELECT ` + componentColumns + `
		FROM components
		WHERE release_id = $1 AND change_status != $2
		ORDER BY name, version
	`
	return r.listComponents(ctx, query, releaseID.String(), string(component.ChangeRemoved))
}

// ListByRelease returns all components including REMOVED history.
func (r *ComponentRepository) ListByRelease(ctx context.Context, releaseID shared.ID) ([]*component.Component, error) {
	query := `SELECT ` + componentColumns + ` FROM components WHERE release_id = $1 ORDER BY name, version`
	return r.listComponents(ctx, query, releaseID.String())
}

// CreateBatch inserts new components in one COPY.
func (r *ComponentRepository) CreateBatch(ctx context.Context, components []*component.Component) error {
	if len(components) == 0 {
		return nil
	}

	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("components",
			"id", "release_id", "name", "version", "component_type",
			"purl", "license", "change_status", "created_at", "updated_at",
		))
		if err != nil {
			return fmt.Errorf("failed to prepare component insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range components {
			_, err := stmt.ExecContext(ctx,
				c.ID().String(),
				c.ReleaseID().String(),
				c.Name(),
				c.Version(),
				string(c.ComponentType()),
				c.PURL(),
				c.License(),
				string(c.ChangeStatus()),
				c.CreatedAt(),
				c.UpdatedAt(),
			)
			if err != nil {
				return fmt.Errorf("failed to buffer component insert: %w", err)
			}
		}

		if _, err := stmt.ExecContext(ctx); err != nil {
			return fmt.Errorf("failed to flush component inserts: %w", err)
		}
		return nil
	})
}

// UpdateStatusBatch moves a batch of components to the given change status
// in one statement.
func (r *ComponentRepository) UpdateStatusBatch(ctx context.Context, ids []shared.ID, status component.ChangeStatus) error {
	if len(ids) == 0 {
		return nil
	}

	query := `UPDATE components SET change_status = $1, updated_at = NOW() WHERE id = ANY($2)`
	if _, err := r.db.ExecContext(ctx, query, string(status), pq.Array(idStrings(ids))); err != nil {
		return fmt.Errorf("failed to update component status: %w", err)
	}
	return nil
}

// LicenseCounts returns active component counts grouped by license.
func (r *ComponentRepository) LicenseCounts(ctx context.Context, releaseID shared.ID) (map[string]int, error) {
	query := `
		SELECT license, COUNT(*)
		FROM components
		WHERE release_id = $1 AND change_status != $2
		GROUP BY license
	`

	rows, err := r.db.QueryContext(ctx, query, releaseID.String(), string(component.ChangeRemoved))
	if err != nil {
		return nil, fmt.Errorf("failed to count licenses: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var license string
		var count int
		if err := rows.Scan(&license, &count); err != nil {
			return nil, fmt.Errorf("failed to scan license count: %w", err)
		}
		out[license] = count
	}
	return out, rows.Err()
}

func (r *ComponentRepository) listComponents(ctx context.Context, query string, args ...any) ([]*component.Component, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer rows.Close()

	var out []*component.Component
	for rows.Next() {
		c, err := r.scanComponent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ComponentRepository) scanComponent(row rowScanner) (*component.Component, error) {
	var (
		idStr, releaseIDStr, name, version   string
		compType, purl, license, changeState string
		createdAt, updatedAt                 time.Time
	)

	err := row.Scan(&idStr, &releaseIDStr, &name, &version, &compType, &purl, &license, &changeState, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, component.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan component: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}
	releaseID, err := shared.IDFromString(releaseIDStr)
	if err != nil {
		return nil, err
	}

	return component.Reconstitute(
		id, releaseID, name, version,
		component.Type(compType),
		purl, license,
		component.ChangeStatus(changeState),
		createdAt, updatedAt,
	), nil
}

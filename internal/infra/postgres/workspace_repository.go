package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/domain/workspace"
)

// WorkspaceRepository implements workspace.Repository using PostgreSQL.
type WorkspaceRepository struct {
	db *DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository.
func NewWorkspaceRepository(db *DB) *WorkspaceRepository {
	return &WorkspaceRepository{db: db}
}

const workspaceColumns = `id, name, slug, description, created_at, updated_at`

// Create persists a new workspace.
func (r *WorkspaceRepository) Create(ctx context.Context, w *workspace.Workspace) error {
	query := `
		INSERT INTO workspaces (id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		w.ID().String(),
		w.Name(),
		w.Slug(),
		w.Description(),
		w.CreatedAt(),
		w.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create workspace: %w", err)
	}
	return nil
}

// GetByID retrieves a workspace by ID.
func (r *WorkspaceRepository) GetByID(ctx context.Context, id shared.ID) (*workspace.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE id = $1`
	return r.scanWorkspace(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetBySlug retrieves a workspace by slug.
func (r *WorkspaceRepository) GetBySlug(ctx context.Context, slug string) (*workspace.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces WHERE slug = $1`
	return r.scanWorkspace(r.db.QueryRowContext(ctx, query, slug))
}

// List returns all workspaces ordered by name.
func (r *WorkspaceRepository) List(ctx context.Context) ([]*workspace.Workspace, error) {
	query := `SELECT ` + workspaceColumns + ` FROM workspaces ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var out []*workspace.Workspace
	for rows.Next() {
		w, err := r.scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// Update persists workspace changes.
func (r *WorkspaceRepository) Update(ctx context.Context, w *workspace.Workspace) error {
	query := `
		UPDATE workspaces
		SET name = $2, description = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		w.ID().String(),
		w.Name(),
		w.Description(),
		w.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return workspace.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *WorkspaceRepository) scanWorkspace(row rowScanner) (*workspace.Workspace, error) {
	var (
		idStr, name, slug, description string
		createdAt, updatedAt           time.Time
	)

	err := row.Scan(&idStr, &name, &slug, &description, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, workspace.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}
	return workspace.Reconstitute(id, name, slug, description, createdAt, updatedAt), nil
}

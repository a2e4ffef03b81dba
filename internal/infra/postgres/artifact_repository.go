package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/shared"
)

// ArtifactRepository implements artifact.Repository using PostgreSQL.
type ArtifactRepository struct {
	db *DB
}

// NewArtifactRepository creates a new ArtifactRepository.
func NewArtifactRepository(db *DB) *ArtifactRepository {
	return &ArtifactRepository{db: db}
}

const artifactColumns = `id, workspace_id, name, version, artifact_type, repo_id, created_at, updated_at`

// Create persists a new artifact.
func (r *ArtifactRepository) Create(ctx context.Context, a *artifact.Artifact) error {
	query := `
		INSERT INTO artifacts (id, workspace_id, name, version, artifact_type, repo_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		a.WorkspaceID().String(),
		a.Name(),
		a.Version(),
		string(a.ArtifactType()),
		nullID(a.RepoID()),
		a.CreatedAt(),
		a.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create artifact: %w", err)
	}
	return nil
}

// GetByID retrieves an artifact by ID.
func (r *ArtifactRepository) GetByID(ctx context.Context, id shared.ID) (*artifact.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE id = $1`
	return r.scanArtifact(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByRef retrieves an artifact by its workspace-scoped name:version key.
func (r *ArtifactRepository) GetByRef(ctx context.Context, workspaceID shared.ID, name, version string) (*artifact.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE workspace_id = $1 AND name = $2 AND version = $3`
	return r.scanArtifact(r.db.QueryRowContext(ctx, query, workspaceID.String(), name, version))
}

// GetByRefs resolves a batch of name:version refs in one query. Unknown
// refs are simply absent from the result map.
func (r *ArtifactRepository) GetByRefs(ctx context.Context, workspaceID shared.ID, refs []string) (map[string]*artifact.Artifact, error) {
	out := make(map[string]*artifact.Artifact, len(refs))
	if len(refs) == 0 {
		return out, nil
	}

	query := `
		SELECT ` + artifactColumns + `
		FROM artifacts
		WHERE workspace_id = $1 AND name || ':' || version = ANY($2)
	`

	rows, err := r.db.QueryContext(ctx, query, workspaceID.String(), pq.Array(refs))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve artifact refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		a, err := r.scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out[a.Ref()] = a
	}
	return out, rows.Err()
}

// ListByWorkspace returns the workspace's artifacts ordered by name and
// version.
func (r *ArtifactRepository) ListByWorkspace(ctx context.Context, workspaceID shared.ID) ([]*artifact.Artifact, error) {
	query := `SELECT ` + artifactColumns + ` FROM artifacts WHERE workspace_id = $1 ORDER BY name, version`

	rows, err := r.db.QueryContext(ctx, query, workspaceID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var out []*artifact.Artifact
	for rows.Next() {
		a, err := r.scanArtifact(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Update persists artifact changes.
func (r *ArtifactRepository) Update(ctx context.Context, a *artifact.Artifact) error {
	query := `
		UPDATE artifacts
		SET repo_id = $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		a.ID().String(),
		nullID(a.RepoID()),
		a.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update artifact: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return artifact.ErrNotFound
	}
	return nil
}

func (r *ArtifactRepository) scanArtifact(row rowScanner) (*artifact.Artifact, error) {
	var (
		idStr, workspaceIDStr, name, version, artifactType string
		repoID                                             sql.NullString
		createdAt, updatedAt                               time.Time
	)

	err := row.Scan(&idStr, &workspaceIDStr, &name, &version, &artifactType, &repoID, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, artifact.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan artifact: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}
	workspaceID, err := shared.IDFromString(workspaceIDStr)
	if err != nil {
		return nil, err
	}

	return artifact.Reconstitute(
		id, workspaceID, name, version,
		artifact.Type(artifactType),
		parseNullID(repoID),
		createdAt, updatedAt,
	), nil
}

// SourceRepoRepository implements artifact.RepoRepository using PostgreSQL.
type SourceRepoRepository struct {
	db *DB
}

// NewSourceRepoRepository creates a new SourceRepoRepository.
func NewSourceRepoRepository(db *DB) *SourceRepoRepository {
	return &SourceRepoRepository{db: db}
}

const sourceRepoColumns = `id, workspace_id, name, url, created_at`

// Create persists a new source repo.
func (r *SourceRepoRepository) Create(ctx context.Context, sr *artifact.SourceRepo) error {
	query := `
		INSERT INTO source_repos (id, workspace_id, name, url, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		sr.ID().String(),
		sr.WorkspaceID().String(),
		sr.Name(),
		sr.URL(),
		sr.CreatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create source repo: %w", err)
	}
	return nil
}

// GetByID retrieves a source repo by ID.
func (r *SourceRepoRepository) GetByID(ctx context.Context, id shared.ID) (*artifact.SourceRepo, error) {
	query := `SELECT ` + sourceRepoColumns + ` FROM source_repos WHERE id = $1`
	return r.scanSourceRepo(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByURL retrieves a source repo by its workspace-scoped normalized URL.
func (r *SourceRepoRepository) GetByURL(ctx context.Context, workspaceID shared.ID, url string) (*artifact.SourceRepo, error) {
	query := `SELECT ` + sourceRepoColumns + ` FROM source_repos WHERE workspace_id = $1 AND url = $2`
	return r.scanSourceRepo(r.db.QueryRowContext(ctx, query, workspaceID.String(), url))
}

func (r *SourceRepoRepository) scanSourceRepo(row rowScanner) (*artifact.SourceRepo, error) {
	var (
		idStr, workspaceIDStr, name, url string
		createdAt                        time.Time
	)

	err := row.Scan(&idStr, &workspaceIDStr, &name, &url, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, artifact.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan source repo: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}
	workspaceID, err := shared.IDFromString(workspaceIDStr)
	if err != nil {
		return nil, err
	}
	return artifact.ReconstituteSourceRepo(id, workspaceID, name, url, createdAt), nil
}

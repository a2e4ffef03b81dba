package artifact

import (
	"context"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Repository defines persistence operations for artifacts.
type Repository interface {
	Create(ctx context.Context, a *Artifact) error
	GetByID(ctx context.Context, id shared.ID) (*Artifact, error)
	GetByRef(ctx context.Context, workspaceID shared.ID, name, version string) (*Artifact, error)
	GetByRefs(ctx context.Context, workspaceID shared.ID, refs []string) (map[string]*Artifact, error)
	ListByWorkspace(ctx context.Context, workspaceID shared.ID) ([]*Artifact, error)
	Update(ctx context.Context, a *Artifact) error
}

// RepoRepository defines persistence operations for source repos.
type RepoRepository interface {
	Create(ctx context.Context, r *SourceRepo) error
	GetByID(ctx context.Context, id shared.ID) (*SourceRepo, error)
	GetByURL(ctx context.Context, workspaceID shared.ID, url string) (*SourceRepo, error)
}

package workspace

import (
	"context"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Repository defines persistence operations for workspaces.
type Repository interface {
	Create(ctx context.Context, w *Workspace) error
	GetByID(ctx context.Context, id shared.ID) (*Workspace, error)
	GetBySlug(ctx context.Context, slug string) (*Workspace, error)
	List(ctx context.Context) ([]*Workspace, error)
	Update(ctx context.Context, w *Workspace) error
}

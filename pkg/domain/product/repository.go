package product

import (
	"context"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Repository defines persistence operations for products.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id shared.ID) (*Product, error)
	GetByName(ctx context.Context, workspaceID shared.ID, name string) (*Product, error)
	ListByWorkspace(ctx context.Context, workspaceID shared.ID) ([]*Product, error)
	Update(ctx context.Context, p *Product) error
}

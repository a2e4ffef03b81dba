package approval

import (
	"context"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
)

// Repository defines persistence operations for approval requests.
type Repository interface {
	Create(ctx context.Context, r *Request) error
	GetByID(ctx context.Context, id shared.ID) (*Request, error)
	Update(ctx context.Context, r *Request) error
	ListPending(ctx context.Context) ([]*Request, error)
	ListByFinding(ctx context.Context, findingID shared.ID) ([]*Request, error)

	// HasPending reports whether the finding already has an unresolved
	// request.
	HasPending(ctx context.Context, findingID shared.ID) (bool, error)

	// Resolve persists the resolved request and the finding it mutates in
	// one transaction. The finding may be nil for rejections.
	Resolve(ctx context.Context, r *Request, f *finding.Finding) error
}

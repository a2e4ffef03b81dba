package release

import (
	"context"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Repository defines persistence operations for releases and their
// bill-of-materials links.
type Repository interface {
	Create(ctx context.Context, r *Release) error
	GetByID(ctx context.Context, id shared.ID) (*Release, error)
	GetByName(ctx context.Context, productID shared.ID, name string) (*Release, error)
	ListByProduct(ctx context.Context, productID shared.ID) ([]*Release, error)

	// LinkArtifact attaches an artifact to the release BOM. Linking an
	// already linked artifact is a no-op.
	LinkArtifact(ctx context.Context, releaseID, artifactID shared.ID) error

	// ArtifactIDs returns the IDs of all artifacts composing the release.
	ArtifactIDs(ctx context.Context, releaseID shared.ID) ([]shared.ID, error)
}

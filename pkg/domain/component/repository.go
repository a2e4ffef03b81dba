package component

import (
	"context"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Repository defines persistence operations for components. Digest methods
// are batch-shaped: one SBOM digest issues a constant number of statements.
type Repository interface {
	// ListActive returns the release's components excluding REMOVED ones,
	// the baseline an SBOM digest diffs against.
	ListActive(ctx context.Context, releaseID shared.ID) ([]*Component, error)

	// ListByRelease returns all components including REMOVED history.
	ListByRelease(ctx context.Context, releaseID shared.ID) ([]*Component, error)

	CreateBatch(ctx context.Context, components []*Component) error
	UpdateStatusBatch(ctx context.Context, ids []shared.ID, status ChangeStatus) error

	// LicenseCounts returns active component counts grouped by license.
	LicenseCounts(ctx context.Context, releaseID shared.ID) (map[string]int, error)
}

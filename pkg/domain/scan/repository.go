package scan

import (
	"context"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Repository defines persistence operations for scans.
type Repository interface {
	Create(ctx context.Context, s *Scan) error
	GetByID(ctx context.Context, id shared.ID) (*Scan, error)
	Update(ctx context.Context, s *Scan) error

	// FindReusable returns the most recent reusable scan of the same
	// artifact and scanner started at or after the cutoff, or
	// ErrNotFound.
	FindReusable(ctx context.Context, artifactID shared.ID, scannerName string, since time.Time) (*Scan, error)

	// ListByArtifact returns scans for an artifact, newest first.
	ListByArtifact(ctx context.Context, artifactID shared.ID) ([]*Scan, error)

	// ListByRelease returns release-scoped scans, newest first.
	ListByRelease(ctx context.Context, releaseID shared.ID) ([]*Scan, error)

	// CountByArtifacts returns the number of scans per artifact.
	CountByArtifacts(ctx context.Context, artifactIDs []shared.ID) (map[shared.ID]int, error)

	// FailStale fails every non-terminal scan started before cutoff and
	// returns how many were failed.
	FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error)
}

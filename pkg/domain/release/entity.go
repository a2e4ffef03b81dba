// Package release models a versioned cut of a product. A release composes
// artifacts through a bill-of-materials link and is the unit of risk
// reporting.
package release

import (
	"strings"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Release is one named version of a product.
type Release struct {
	id         shared.ID
	productID  shared.ID
	name       string
	commitHash string
	createdAt  time.Time
}

// New creates a release. Name is unique per product, enforced at the
// persistence layer.
func New(productID shared.ID, name, commitHash string) (*Release, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if productID.IsZero() {
		return nil, ErrProductRequired
	}

	return &Release{
		id:         shared.NewID(),
		productID:  productID,
		name:       name,
		commitHash: commitHash,
		createdAt:  time.Now().UTC(),
	}, nil
}

// Reconstitute rebuilds a release from persistence.
func Reconstitute(id, productID shared.ID, name, commitHash string, createdAt time.Time) *Release {
	return &Release{
		id:         id,
		productID:  productID,
		name:       name,
		commitHash: commitHash,
		createdAt:  createdAt,
	}
}

func (r *Release) ID() shared.ID        { return r.id }
func (r *Release) ProductID() shared.ID { return r.productID }
func (r *Release) Name() string         { return r.name }
func (r *Release) CommitHash() string   { return r.commitHash }
func (r *Release) CreatedAt() time.Time { return r.createdAt }

// SetCommitHash records the VCS revision this release was cut from.
func (r *Release) SetCommitHash(hash string) {
	r.commitHash = hash
}

// ArtifactRef identifies an artifact in a bill-of-materials request by its
// natural key.
type ArtifactRef struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// String renders the ref as name:version for error reporting.
func (ref ArtifactRef) String() string {
	return ref.Name + ":" + ref.Version
}

// LinkResult reports the outcome of composing a release from artifact refs.
// Unknown refs are surfaced to the caller instead of being silently dropped.
type LinkResult struct {
	Linked   int
	Rejected []ArtifactRef
}

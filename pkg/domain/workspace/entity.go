// Package workspace defines the top-level isolation boundary. Every product,
// artifact and source repo belongs to exactly one workspace.
package workspace

import (
	"strings"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Workspace is the root aggregation boundary for risk data.
type Workspace struct {
	id          shared.ID
	name        string
	slug        string
	description string
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a workspace with a slug derived from the name.
func New(name, description string) (*Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	now := time.Now().UTC()
	return &Workspace{
		id:          shared.NewID(),
		name:        name,
		slug:        Slugify(name),
		description: description,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstitute rebuilds a workspace from persistence.
func Reconstitute(id shared.ID, name, slug, description string, createdAt, updatedAt time.Time) *Workspace {
	return &Workspace{
		id:          id,
		name:        name,
		slug:        slug,
		description: description,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (w *Workspace) ID() shared.ID       { return w.id }
func (w *Workspace) Name() string        { return w.name }
func (w *Workspace) Slug() string        { return w.slug }
func (w *Workspace) Description() string { return w.description }
func (w *Workspace) CreatedAt() time.Time { return w.createdAt }
func (w *Workspace) UpdatedAt() time.Time { return w.updatedAt }

// Rename updates the name, keeping the slug stable so external references
// do not break.
func (w *Workspace) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrNameRequired
	}
	w.name = name
	w.updatedAt = time.Now().UTC()
	return nil
}

// SetDescription updates the description.
func (w *Workspace) SetDescription(description string) {
	w.description = description
	w.updatedAt = time.Now().UTC()
}

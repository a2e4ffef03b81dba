package artifact

import (
	"strings"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
)

// SourceRepo is the version-control origin of one or more artifacts.
// Identity is the normalized URL within a workspace.
type SourceRepo struct {
	id          shared.ID
	workspaceID shared.ID
	name        string
	url         string
	createdAt   time.Time
}

// NewSourceRepo creates a repo record with a normalized URL. The name
// defaults to the last path segment when empty.
func NewSourceRepo(workspaceID shared.ID, name, rawURL string) (*SourceRepo, error) {
	if workspaceID.IsZero() {
		return nil, ErrWorkspaceRequired
	}
	url := NormalizeRepoURL(rawURL)
	if url == "" {
		return nil, ErrRepoURLRequired
	}

	name = strings.TrimSpace(name)
	if name == "" {
		if idx := strings.LastIndex(url, "/"); idx >= 0 && idx < len(url)-1 {
			name = url[idx+1:]
		} else {
			name = url
		}
	}

	return &SourceRepo{
		id:          shared.NewID(),
		workspaceID: workspaceID,
		name:        name,
		url:         url,
		createdAt:   time.Now().UTC(),
	}, nil
}

// ReconstituteSourceRepo rebuilds a repo from persistence.
func ReconstituteSourceRepo(id, workspaceID shared.ID, name, url string, createdAt time.Time) *SourceRepo {
	return &SourceRepo{
		id:          id,
		workspaceID: workspaceID,
		name:        name,
		url:         url,
		createdAt:   createdAt,
	}
}

func (r *SourceRepo) ID() shared.ID          { return r.id }
func (r *SourceRepo) WorkspaceID() shared.ID { return r.workspaceID }
func (r *SourceRepo) Name() string           { return r.name }
func (r *SourceRepo) URL() string            { return r.url }
func (r *SourceRepo) CreatedAt() time.Time   { return r.createdAt }

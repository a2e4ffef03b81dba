// Package artifact models deployable build outputs and the source repos they
// were built from. Artifacts are the preferred scan scope.
package artifact

import (
	"strings"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Type classifies an artifact.
type Type string

const (
	TypeContainer Type = "CONTAINER"
	TypeLibrary   Type = "LIBRARY"
	TypePackage   Type = "PACKAGE"
	TypeBinary    Type = "BINARY"
)

// IsValid reports whether the type is a known value.
func (t Type) IsValid() bool {
	switch t {
	case TypeContainer, TypeLibrary, TypePackage, TypeBinary:
		return true
	}
	return false
}

// Artifact is a uniquely versioned build output. Identity is (name, version)
// within a workspace.
type Artifact struct {
	id           shared.ID
	workspaceID  shared.ID
	name         string
	version      string
	artifactType Type
	repoID       *shared.ID
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates an artifact. Unknown types fall back to CONTAINER, the most
// common input from CI pipelines.
func New(workspaceID shared.ID, name, version string, artifactType Type) (*Artifact, error) {
	name = strings.TrimSpace(name)
	version = strings.TrimSpace(version)
	if name == "" || version == "" {
		return nil, ErrIdentityRequired
	}
	if workspaceID.IsZero() {
		return nil, ErrWorkspaceRequired
	}
	if !artifactType.IsValid() {
		artifactType = TypeContainer
	}

	now := time.Now().UTC()
	return &Artifact{
		id:           shared.NewID(),
		workspaceID:  workspaceID,
		name:         name,
		version:      version,
		artifactType: artifactType,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstitute rebuilds an artifact from persistence.
func Reconstitute(
	id, workspaceID shared.ID,
	name, version string,
	artifactType Type,
	repoID *shared.ID,
	createdAt, updatedAt time.Time,
) *Artifact {
	return &Artifact{
		id:           id,
		workspaceID:  workspaceID,
		name:         name,
		version:      version,
		artifactType: artifactType,
		repoID:       repoID,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (a *Artifact) ID() shared.ID          { return a.id }
func (a *Artifact) WorkspaceID() shared.ID { return a.workspaceID }
func (a *Artifact) Name() string           { return a.name }
func (a *Artifact) Version() string        { return a.version }
func (a *Artifact) ArtifactType() Type     { return a.artifactType }
func (a *Artifact) RepoID() *shared.ID     { return a.repoID }
func (a *Artifact) CreatedAt() time.Time   { return a.createdAt }
func (a *Artifact) UpdatedAt() time.Time   { return a.updatedAt }

// Ref renders the natural key as name:version.
func (a *Artifact) Ref() string {
	return a.name + ":" + a.version
}

// AttachRepo links the artifact to its source repo. An existing link is
// never overwritten; the first reported origin wins.
func (a *Artifact) AttachRepo(repoID shared.ID) bool {
	if a.repoID != nil || repoID.IsZero() {
		return false
	}
	a.repoID = &repoID
	a.updatedAt = time.Now().UTC()
	return true
}

// Package component models SBOM inventory entries tracked per release.
// Components are never deleted: entries that disappear from a digested SBOM
// are marked REMOVED so the history of a release's composition survives.
package component

import (
	"strings"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Type classifies a component.
type Type string

const (
	TypeLibrary   Type = "LIBRARY"
	TypeFramework Type = "FRAMEWORK"
	TypeContainer Type = "CONTAINER"
	TypeOS        Type = "OS"
)

// IsValid reports whether the type is a known value.
func (t Type) IsValid() bool {
	switch t {
	case TypeLibrary, TypeFramework, TypeContainer, TypeOS:
		return true
	}
	return false
}

// ChangeStatus tracks how the component moved in the latest SBOM digest.
type ChangeStatus string

const (
	ChangeNew       ChangeStatus = "NEW"
	ChangeRemoved   ChangeStatus = "REMOVED"
	ChangeUnchanged ChangeStatus = "UNCHANGED"
)

// UnknownLicense is recorded when an SBOM entry declares no license.
const UnknownLicense = "Unknown"

// Component is one dependency of a release.
type Component struct {
	id           shared.ID
	releaseID    shared.ID
	name         string
	version      string
	compType     Type
	purl         string
	license      string
	changeStatus ChangeStatus
	createdAt    time.Time
	updatedAt    time.Time
}

// New creates a component in NEW state. Unknown types collapse to LIBRARY
// and a missing license is recorded as Unknown.
func New(releaseID shared.ID, name, version string, compType Type, purl, license string) (*Component, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if releaseID.IsZero() {
		return nil, ErrReleaseRequired
	}
	if !compType.IsValid() {
		compType = TypeLibrary
	}
	if strings.TrimSpace(license) == "" {
		license = UnknownLicense
	}

	now := time.Now().UTC()
	return &Component{
		id:           shared.NewID(),
		releaseID:    releaseID,
		name:         name,
		version:      version,
		compType:     compType,
		purl:         purl,
		license:      license,
		changeStatus: ChangeNew,
		createdAt:    now,
		updatedAt:    now,
	}, nil
}

// Reconstitute rebuilds a component from persistence.
func Reconstitute(
	id, releaseID shared.ID,
	name, version string,
	compType Type,
	purl, license string,
	changeStatus ChangeStatus,
	createdAt, updatedAt time.Time,
) *Component {
	return &Component{
		id:           id,
		releaseID:    releaseID,
		name:         name,
		version:      version,
		compType:     compType,
		purl:         purl,
		license:      license,
		changeStatus: changeStatus,
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
}

func (c *Component) ID() shared.ID              { return c.id }
func (c *Component) ReleaseID() shared.ID       { return c.releaseID }
func (c *Component) Name() string               { return c.name }
func (c *Component) Version() string            { return c.version }
func (c *Component) ComponentType() Type        { return c.compType }
func (c *Component) PURL() string               { return c.purl }
func (c *Component) License() string            { return c.license }
func (c *Component) ChangeStatus() ChangeStatus { return c.changeStatus }
func (c *Component) CreatedAt() time.Time       { return c.createdAt }
func (c *Component) UpdatedAt() time.Time       { return c.updatedAt }

// Key returns the identity used for SBOM diffing: purl when present,
// otherwise name@version.
func (c *Component) Key() string {
	return Key(c.purl, c.name, c.version)
}

// Key builds the diff identity from raw SBOM fields.
func Key(purl, name, version string) string {
	if purl != "" {
		return purl
	}
	return name + "@" + version
}

// MarkUnchanged records that the latest digest still contains the
// component.
func (c *Component) MarkUnchanged() {
	c.changeStatus = ChangeUnchanged
	c.updatedAt = time.Now().UTC()
}

// MarkRemoved records that the latest digest dropped the component.
func (c *Component) MarkRemoved() {
	c.changeStatus = ChangeRemoved
	c.updatedAt = time.Now().UTC()
}

// Package product models a deliverable whose releases are tracked for risk.
package product

import (
	"strings"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Product groups releases of one deliverable inside a workspace.
type Product struct {
	id          shared.ID
	workspaceID shared.ID
	name        string
	productType Type
	criticality Criticality
	description string
	tags        []string
	createdAt   time.Time
	updatedAt   time.Time
}

// New creates a product. An unknown type or criticality falls back to the
// defaults rather than failing, matching how scanner-driven creation works.
func New(workspaceID shared.ID, name string, productType Type, criticality Criticality) (*Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}
	if workspaceID.IsZero() {
		return nil, ErrWorkspaceRequired
	}
	if !productType.IsValid() {
		productType = TypeWeb
	}
	if !criticality.IsValid() {
		criticality = CriticalityMedium
	}

	now := time.Now().UTC()
	return &Product{
		id:          shared.NewID(),
		workspaceID: workspaceID,
		name:        name,
		productType: productType,
		criticality: criticality,
		tags:        []string{},
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Reconstitute rebuilds a product from persistence.
func Reconstitute(
	id, workspaceID shared.ID,
	name string,
	productType Type,
	criticality Criticality,
	description string,
	tags []string,
	createdAt, updatedAt time.Time,
) *Product {
	if tags == nil {
		tags = []string{}
	}
	return &Product{
		id:          id,
		workspaceID: workspaceID,
		name:        name,
		productType: productType,
		criticality: criticality,
		description: description,
		tags:        tags,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}
}

func (p *Product) ID() shared.ID            { return p.id }
func (p *Product) WorkspaceID() shared.ID   { return p.workspaceID }
func (p *Product) Name() string             { return p.name }
func (p *Product) ProductType() Type        { return p.productType }
func (p *Product) Criticality() Criticality { return p.criticality }
func (p *Product) Description() string      { return p.description }
func (p *Product) Tags() []string           { return p.tags }
func (p *Product) CreatedAt() time.Time     { return p.createdAt }
func (p *Product) UpdatedAt() time.Time     { return p.updatedAt }

// SetCriticality changes the business criticality.
func (p *Product) SetCriticality(c Criticality) error {
	if !c.IsValid() {
		return ErrInvalidCriticality
	}
	p.criticality = c
	p.updatedAt = time.Now().UTC()
	return nil
}

// SetDescription updates the description.
func (p *Product) SetDescription(description string) {
	p.description = description
	p.updatedAt = time.Now().UTC()
}

// SetTags replaces the tag list.
func (p *Product) SetTags(tags []string) {
	if tags == nil {
		tags = []string{}
	}
	p.tags = tags
	p.updatedAt = time.Now().UTC()
}

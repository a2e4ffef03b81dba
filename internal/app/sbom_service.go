package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/pkg/domain/component"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// SBOMEnqueuer hands accepted SBOM documents to the background queue.
type SBOMEnqueuer interface {
	EnqueueSBOMDigest(ctx context.Context, releaseID shared.ID, objectKey string) error
}

// ErrEmptySBOM is returned when a submitted document has no bytes.
var ErrEmptySBOM = errors.New("sbom document is empty")

// SBOMService digests CycloneDX documents into release component inventories
// and exports the current inventory back out.
type SBOMService struct {
	components component.Repository
	releases   release.Repository
	store      ingest.DocumentStore
	enqueuer   SBOMEnqueuer
	logger     *logger.Logger
}

// NewSBOMService creates a new SBOMService.
func NewSBOMService(
	components component.Repository,
	releases release.Repository,
	store ingest.DocumentStore,
	enqueuer SBOMEnqueuer,
	log *logger.Logger,
) *SBOMService {
	return &SBOMService{
		components: components,
		releases:   releases,
		store:      store,
		enqueuer:   enqueuer,
		logger:     log.With("service", "sbom"),
	}
}

// DigestResult reports how one SBOM document changed the inventory.
type DigestResult struct {
	New       int `json:"new"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
}

// Submit stages an SBOM document and enqueues its digestion.
func (s *SBOMService) Submit(ctx context.Context, releaseID shared.ID, doc []byte) (string, error) {
	if len(doc) == 0 {
		return "", ErrEmptySBOM
	}
	if _, err := s.releases.GetByID(ctx, releaseID); err != nil {
		return "", fmt.Errorf("get release: %w", err)
	}

	key := fmt.Sprintf("sboms/%s/%d.json", releaseID, time.Now().UnixNano())
	if err := s.store.Put(ctx, key, doc); err != nil {
		return "", fmt.Errorf("stage sbom document: %w", err)
	}
	if err := s.enqueuer.EnqueueSBOMDigest(ctx, releaseID, key); err != nil {
		return "", fmt.Errorf("enqueue sbom digest: %w", err)
	}
	return key, nil
}

// Digest diffs a CycloneDX document against the release's current inventory.
// Components present in both stay UNCHANGED, unseen ones are created NEW,
// and current components missing from the document become REMOVED. Nothing
// is physically deleted; REMOVED rows keep licensing history.
func (s *SBOMService) Digest(ctx context.Context, releaseID shared.ID, doc []byte) (DigestResult, error) {
	var result DigestResult

	var bom cycloneDXDocument
	if err := json.Unmarshal(doc, &bom); err != nil {
		return result, fmt.Errorf("parse cyclonedx document: %w", err)
	}

	current, err := s.components.ListActive(ctx, releaseID)
	if err != nil {
		return result, fmt.Errorf("load component inventory: %w", err)
	}
	currentByKey := make(map[string]*component.Component, len(current))
	for _, c := range current {
		currentByKey[c.Key()] = c
	}

	var creates []*component.Component
	var unchangedIDs []shared.ID
	seen := make(map[string]struct{}, len(bom.Components))

	for _, bc := range bom.Components {
		if bc.Name == "" {
			continue
		}
		key := component.Key(bc.PURL, bc.Name, bc.Version)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		if existing, ok := currentByKey[key]; ok {
			unchangedIDs = append(unchangedIDs, existing.ID())
			continue
		}

		c, err := component.New(releaseID, bc.Name, bc.Version, importType(bc.Type), bc.PURL, bc.license())
		if err != nil {
			s.logger.Warn("skipping invalid sbom component", "name", bc.Name, "error", err)
			continue
		}
		creates = append(creates, c)
	}

	var removedIDs []shared.ID
	for key, c := range currentByKey {
		if _, stillSeen := seen[key]; !stillSeen {
			removedIDs = append(removedIDs, c.ID())
		}
	}

	if len(creates) > 0 {
		if err := s.components.CreateBatch(ctx, creates); err != nil {
			return result, fmt.Errorf("create components: %w", err)
		}
	}
	if len(unchangedIDs) > 0 {
		if err := s.components.UpdateStatusBatch(ctx, unchangedIDs, component.ChangeUnchanged); err != nil {
			return result, fmt.Errorf("mark components unchanged: %w", err)
		}
	}
	if len(removedIDs) > 0 {
		if err := s.components.UpdateStatusBatch(ctx, removedIDs, component.ChangeRemoved); err != nil {
			return result, fmt.Errorf("mark components removed: %w", err)
		}
	}

	result = DigestResult{
		New:       len(creates),
		Removed:   len(removedIDs),
		Unchanged: len(unchangedIDs),
	}

	s.logger.Info("sbom digested",
		"release_id", releaseID.String(),
		"new", result.New,
		"removed", result.Removed,
		"unchanged", result.Unchanged,
	)

	return result, nil
}

// Export renders the release's current inventory as a CycloneDX 1.5
// document. REMOVED components are excluded.
func (s *SBOMService) Export(ctx context.Context, releaseID shared.ID) ([]byte, error) {
	rel, err := s.releases.GetByID(ctx, releaseID)
	if err != nil {
		return nil, fmt.Errorf("get release: %w", err)
	}
	active, err := s.components.ListActive(ctx, releaseID)
	if err != nil {
		return nil, fmt.Errorf("load component inventory: %w", err)
	}

	doc := cycloneDXDocument{
		BOMFormat:   "CycloneDX",
		SpecVersion: "1.5",
		Version:     1,
		Metadata: &cycloneDXMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Component: &cycloneDXComponent{
				Type:    "application",
				Name:    rel.Name(),
				Version: rel.CommitHash(),
			},
		},
		Components: make([]cycloneDXComponent, 0, len(active)),
	}

	for _, c := range active {
		out := cycloneDXComponent{
			Type:    exportType(c.ComponentType()),
			Name:    c.Name(),
			Version: c.Version(),
			PURL:    c.PURL(),
		}
		if c.License() != "" && c.License() != component.UnknownLicense {
			out.Licenses = []cycloneDXLicenseChoice{{License: &cycloneDXLicense{ID: c.License()}}}
		}
		doc.Components = append(doc.Components, out)
	}

	return json.MarshalIndent(doc, "", "  ")
}

// importType maps CycloneDX component types onto the inventory's type set.
// Anything outside the known set collapses to LIBRARY.
func importType(raw string) component.Type {
	switch strings.ToLower(raw) {
	case "container":
		return component.TypeContainer
	case "framework":
		return component.TypeFramework
	case "operating-system":
		return component.TypeOS
	default:
		return component.TypeLibrary
	}
}

// exportType maps inventory types back onto CycloneDX component types.
func exportType(t component.Type) string {
	switch t {
	case component.TypeContainer:
		return "container"
	case component.TypeFramework:
		return "framework"
	case component.TypeOS:
		return "operating-system"
	default:
		return "library"
	}
}

// CycloneDX wire structures, shared by digest and export.
type cycloneDXDocument struct {
	BOMFormat   string               `json:"bomFormat,omitempty"`
	SpecVersion string               `json:"specVersion,omitempty"`
	Version     int                  `json:"version,omitempty"`
	Metadata    *cycloneDXMetadata   `json:"metadata,omitempty"`
	Components  []cycloneDXComponent `json:"components"`
}

type cycloneDXMetadata struct {
	Timestamp string              `json:"timestamp,omitempty"`
	Component *cycloneDXComponent `json:"component,omitempty"`
}

type cycloneDXComponent struct {
	Type     string                   `json:"type,omitempty"`
	Name     string                   `json:"name"`
	Version  string                   `json:"version,omitempty"`
	PURL     string                   `json:"purl,omitempty"`
	Licenses []cycloneDXLicenseChoice `json:"licenses,omitempty"`
}

type cycloneDXLicenseChoice struct {
	License *cycloneDXLicense `json:"license,omitempty"`
}

type cycloneDXLicense struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// license resolves the first declared license, preferring the SPDX id.
func (c cycloneDXComponent) license() string {
	for _, choice := range c.Licenses {
		if choice.License == nil {
			continue
		}
		if choice.License.ID != "" {
			return choice.License.ID
		}
		if choice.License.Name != "" {
			return choice.License.Name
		}
	}
	return ""
}

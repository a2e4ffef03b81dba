package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/pkg/domain/component"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/validator"
)

// ReleaseHandler exposes release composition, SBOM and risk endpoints.
type ReleaseHandler struct {
	releases   *app.ReleaseService
	sbom       *app.SBOMService
	risk       *app.RiskService
	components component.Repository
	validator  *validator.Validator

	// maxSBOMBytes bounds raw SBOM uploads; larger documents should be
	// compressed and land here through the decompress middleware.
	maxSBOMBytes int64
}

// NewReleaseHandler creates a new ReleaseHandler.
func NewReleaseHandler(
	releases *app.ReleaseService,
	sbom *app.SBOMService,
	risk *app.RiskService,
	components component.Repository,
	v *validator.Validator,
	maxSBOMBytes int64,
) *ReleaseHandler {
	if maxSBOMBytes <= 0 {
		maxSBOMBytes = 50 << 20
	}
	return &ReleaseHandler{
		releases:     releases,
		sbom:         sbom,
		risk:         risk,
		components:   components,
		validator:    v,
		maxSBOMBytes: maxSBOMBytes,
	}
}

type linkArtifactsRequest struct {
	Artifacts []release.ArtifactRef `json:"artifacts" validate:"required,min=1,max=1000"`
}

type linkArtifactsResponse struct {
	Linked   int                   `json:"linked"`
	Rejected []release.ArtifactRef `json:"rejected,omitempty"`
}

// LinkArtifacts handles POST /api/v1/workspaces/{workspaceID}/releases/{releaseID}/artifacts.
// Unknown refs are reported back instead of failing the whole request.
func (h *ReleaseHandler) LinkArtifacts(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := pathID(r, "workspaceID")
	if err != nil {
		respondError(w, r, err)
		return
	}
	releaseID, err := pathID(r, "releaseID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req linkArtifactsRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondError(w, r, err)
		return
	}

	result, err := h.releases.LinkArtifacts(r.Context(), workspaceID, releaseID, req.Artifacts)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if len(result.Rejected) > 0 {
		status = http.StatusMultiStatus
	}
	writeJSON(w, status, linkArtifactsResponse{Linked: result.Linked, Rejected: result.Rejected})
}

// SubmitSBOM handles POST /api/v1/releases/{releaseID}/sbom. The body is
// the raw CycloneDX document; digestion runs asynchronously.
func (h *ReleaseHandler) SubmitSBOM(w http.ResponseWriter, r *http.Request) {
	releaseID, err := pathID(r, "releaseID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	doc, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxSBOMBytes))
	if err != nil {
		respondError(w, r, err)
		return
	}

	objectKey, err := h.sbom.Submit(r.Context(), releaseID, doc)
	if err != nil {
		respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"release_id": releaseID.String(),
		"object_key": objectKey,
	})
}

// ExportSBOM handles GET /api/v1/releases/{releaseID}/sbom and returns a
// CycloneDX document built from the active component inventory.
func (h *ReleaseHandler) ExportSBOM(w http.ResponseWriter, r *http.Request) {
	releaseID, err := pathID(r, "releaseID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	doc, err := h.sbom.Export(r.Context(), releaseID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

type componentResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	PURL         string    `json:"purl,omitempty"`
	License      string    `json:"license"`
	ChangeStatus string    `json:"change_status"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ListComponents handles GET /api/v1/releases/{releaseID}/components.
// include_removed=true keeps digested-away components in the listing.
func (h *ReleaseHandler) ListComponents(w http.ResponseWriter, r *http.Request) {
	releaseID, err := pathID(r, "releaseID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var components []*component.Component
	if r.URL.Query().Get("include_removed") == "true" {
		components, err = h.components.ListByRelease(r.Context(), releaseID)
	} else {
		components, err = h.components.ListActive(r.Context(), releaseID)
	}
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]componentResponse, 0, len(components))
	for _, c := range components {
		out = append(out, componentResponse{
			ID:           c.ID().String(),
			Name:         c.Name(),
			Version:      c.Version(),
			Type:         string(c.ComponentType()),
			PURL:         c.PURL(),
			License:      c.License(),
			ChangeStatus: string(c.ChangeStatus()),
			UpdatedAt:    c.UpdatedAt(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// Risk handles GET /api/v1/releases/{releaseID}/risk and returns the full
// aggregated risk report.
func (h *ReleaseHandler) Risk(w http.ResponseWriter, r *http.Request) {
	releaseID, err := pathID(r, "releaseID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	report, err := h.risk.Report(r.Context(), releaseID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

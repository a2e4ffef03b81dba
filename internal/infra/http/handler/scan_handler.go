package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wellqio/api/internal/app/ingest"
	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/validator"
)

// ScanHandler accepts scan submissions and exposes scan status.
type ScanHandler struct {
	service   *ingest.Service
	scans     scan.Repository
	validator *validator.Validator
}

// NewScanHandler creates a new ScanHandler.
func NewScanHandler(service *ingest.Service, scans scan.Repository, v *validator.Validator) *ScanHandler {
	return &ScanHandler{service: service, scans: scans, validator: v}
}

type submitScanRequest struct {
	WorkspaceID string `json:"workspace_id" validate:"required,uuid"`
	Scanner     string `json:"scanner" validate:"required,max=100"`

	ArtifactName    string `json:"artifact_name" validate:"max=500"`
	ArtifactVersion string `json:"artifact_version" validate:"max=200"`
	ArtifactType    string `json:"artifact_type" validate:"artifact_type"`
	RepoName        string `json:"repo_name" validate:"max=500"`
	RepoURL         string `json:"repo_url" validate:"omitempty,url"`

	ReleaseID string `json:"release_id" validate:"omitempty,uuid"`

	Document json.RawMessage `json:"document" validate:"required"`
}

type submitScanResponse struct {
	ScanID string `json:"scan_id"`
	Reused bool   `json:"reused"`
	Status string `json:"status"`
}

// Submit handles POST /api/v1/scans. The scan is accepted, staged and
// processed asynchronously; 202 reports the scan to poll.
func (h *ScanHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req submitScanRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondError(w, r, err)
		return
	}

	workspaceID, err := shared.IDFromString(req.WorkspaceID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	submit := ingest.SubmitRequest{
		WorkspaceID:     workspaceID,
		Scanner:         req.Scanner,
		ArtifactName:    req.ArtifactName,
		ArtifactVersion: req.ArtifactVersion,
		ArtifactType:    artifact.Type(req.ArtifactType),
		RepoName:        req.RepoName,
		RepoURL:         req.RepoURL,
		Document:        req.Document,
	}
	if req.ReleaseID != "" {
		releaseID, err := shared.IDFromString(req.ReleaseID)
		if err != nil {
			respondError(w, r, err)
			return
		}
		submit.ReleaseID = releaseID
	}

	result, err := h.service.Submit(r.Context(), submit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := scan.StatusPending
	if result.Reused {
		status = scan.StatusProcessing
	}
	writeJSON(w, http.StatusAccepted, submitScanResponse{
		ScanID: result.ScanID.String(),
		Reused: result.Reused,
		Status: string(status),
	})
}

type scanResponse struct {
	ID            string     `json:"id"`
	ArtifactID    *string    `json:"artifact_id,omitempty"`
	ReleaseID     *string    `json:"release_id,omitempty"`
	Scanner       string     `json:"scanner"`
	Status        string     `json:"status"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	FindingsCount int        `json:"findings_count"`
	LastError     string     `json:"last_error,omitempty"`
}

func toScanResponse(s *scan.Scan) scanResponse {
	resp := scanResponse{
		ID:            s.ID().String(),
		Scanner:       s.ScannerName(),
		Status:        string(s.Status()),
		StartedAt:     s.StartedAt(),
		CompletedAt:   s.CompletedAt(),
		FindingsCount: s.FindingsCount(),
		LastError:     s.LastError(),
	}
	if id := s.ArtifactID(); id != nil {
		str := id.String()
		resp.ArtifactID = &str
	}
	if id := s.ReleaseID(); id != nil {
		str := id.String()
		resp.ReleaseID = &str
	}
	return resp
}

// Get handles GET /api/v1/scans/{scanID}.
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "scanID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	s, err := h.scans.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toScanResponse(s))
}

// listScans is shared by the artifact and release scan listings.
func (h *ScanHandler) listScans(w http.ResponseWriter, r *http.Request, paramName string,
	list func(ctx context.Context, id shared.ID) ([]*scan.Scan, error),
) {
	id, err := pathID(r, paramName)
	if err != nil {
		respondError(w, r, err)
		return
	}

	scans, err := list(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]scanResponse, 0, len(scans))
	for _, s := range scans {
		out = append(out, toScanResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// ListByArtifact handles GET /api/v1/artifacts/{artifactID}/scans.
func (h *ScanHandler) ListByArtifact(w http.ResponseWriter, r *http.Request) {
	h.listScans(w, r, "artifactID", h.scans.ListByArtifact)
}

// ListByRelease handles GET /api/v1/releases/{releaseID}/scans.
func (h *ScanHandler) ListByRelease(w http.ResponseWriter, r *http.Request) {
	h.listScans(w, r, "releaseID", h.scans.ListByRelease)
}

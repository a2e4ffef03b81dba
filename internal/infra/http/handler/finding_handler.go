package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/pkg/apierror"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/pagination"
	"github.com/wellqio/api/pkg/validator"
)

// FindingHandler exposes the finding list and triage operations.
type FindingHandler struct {
	triage    *app.TriageService
	validator *validator.Validator
}

// NewFindingHandler creates a new FindingHandler.
func NewFindingHandler(triage *app.TriageService, v *validator.Validator) *FindingHandler {
	return &FindingHandler{triage: triage, validator: v}
}

type findingResponse struct {
	ID                string         `json:"id"`
	ArtifactID        *string        `json:"artifact_id,omitempty"`
	ReleaseID         *string        `json:"release_id,omitempty"`
	ScanID            string         `json:"scan_id"`
	Title             string         `json:"title"`
	Description       string         `json:"description,omitempty"`
	Severity          string         `json:"severity"`
	Type              string         `json:"type"`
	VulnerabilityID   string         `json:"vulnerability_id,omitempty"`
	PackageName       string         `json:"package_name,omitempty"`
	PackageVersion    string         `json:"package_version,omitempty"`
	FixVersion        string         `json:"fix_version,omitempty"`
	FilePath          string         `json:"file_path,omitempty"`
	Line              int            `json:"line,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty"`
	Status            string         `json:"status"`
	TriageNote        string         `json:"triage_note,omitempty"`
	TriagedBy         string         `json:"triaged_by,omitempty"`
	TriagedAt         *time.Time     `json:"triaged_at,omitempty"`
	RiskAcceptedUntil *time.Time     `json:"risk_accepted_until,omitempty"`
	FirstSeen         time.Time      `json:"first_seen"`
	LastSeen          time.Time      `json:"last_seen"`
}

func toFindingResponse(f *finding.Finding) findingResponse {
	resp := findingResponse{
		ID:                f.ID().String(),
		ScanID:            f.ScanID().String(),
		Title:             f.Title(),
		Description:       f.Description(),
		Severity:          string(f.Severity()),
		Type:              string(f.FindingType()),
		VulnerabilityID:   f.VulnerabilityID(),
		PackageName:       f.PackageName(),
		PackageVersion:    f.PackageVersion(),
		FixVersion:        f.FixVersion(),
		FilePath:          f.FilePath(),
		Line:              f.Line(),
		Metadata:          f.Metadata(),
		Status:            string(f.Status()),
		TriageNote:        f.TriageNote(),
		TriagedBy:         f.TriagedBy(),
		TriagedAt:         f.TriagedAt(),
		RiskAcceptedUntil: f.RiskAcceptedUntil(),
		FirstSeen:         f.FirstSeen(),
		LastSeen:          f.LastSeen(),
	}
	scope := f.Scope()
	if scope.ArtifactID != nil {
		str := scope.ArtifactID.String()
		resp.ArtifactID = &str
	}
	if scope.ReleaseID != nil {
		str := scope.ReleaseID.String()
		resp.ReleaseID = &str
	}
	return resp
}

// List handles GET /api/v1/findings with filter query parameters.
func (h *FindingHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFindingFilter(r)
	if err != nil {
		respondError(w, r, err)
		return
	}
	p := parsePagination(r)

	findings, total, err := h.triage.ListFindings(r.Context(), filter, p)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]findingResponse, 0, len(findings))
	for _, f := range findings {
		out = append(out, toFindingResponse(f))
	}
	writeJSON(w, http.StatusOK, pagination.NewResult(out, total, p))
}

func parseFindingFilter(r *http.Request) (finding.Filter, error) {
	var filter finding.Filter

	if raw := r.URL.Query().Get("artifact_id"); raw != "" {
		id, err := shared.IDFromString(raw)
		if err != nil {
			return filter, apierror.BadRequest("invalid artifact_id")
		}
		scope := finding.ArtifactScope(id)
		filter.Scope = &scope
	}
	if raw := r.URL.Query().Get("release_id"); raw != "" {
		if filter.Scope != nil {
			return filter, apierror.BadRequest("artifact_id and release_id are mutually exclusive")
		}
		id, err := shared.IDFromString(raw)
		if err != nil {
			return filter, apierror.BadRequest("invalid release_id")
		}
		scope := finding.ReleaseScope(id)
		filter.Scope = &scope
	}

	for _, raw := range parseQueryList(r, "status") {
		status := finding.Status(strings.ToUpper(raw))
		if !status.IsValid() {
			return filter, apierror.BadRequest("invalid status: " + raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, raw := range parseQueryList(r, "severity") {
		severity := finding.Severity(strings.ToUpper(raw))
		if !severity.IsValid() {
			return filter, apierror.BadRequest("invalid severity: " + raw)
		}
		filter.Severity = append(filter.Severity, severity)
	}
	for _, raw := range parseQueryList(r, "type") {
		findingType := finding.Type(strings.ToUpper(raw))
		if !findingType.IsValid() {
			return filter, apierror.BadRequest("invalid type: " + raw)
		}
		filter.Types = append(filter.Types, findingType)
	}
	filter.Search = r.URL.Query().Get("search")

	if raw := r.URL.Query().Get("sort"); raw != "" {
		filter.Sort = pagination.NewSortOption(findingSortFields).Parse(raw)
	}

	return filter, nil
}

// findingSortFields allow-lists the sortable columns for finding lists.
// Severity is not listed; its rank ordering is the default already.
var findingSortFields = map[string]string{
	"first_seen":   "first_seen",
	"last_seen":    "last_seen",
	"title":        "title",
	"package_name": "package_name",
	"status":       "status",
}

// Get handles GET /api/v1/findings/{findingID}.
func (h *FindingHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "findingID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	f, err := h.triage.GetFinding(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFindingResponse(f))
}

type reopenRequest struct {
	Actor string `json:"actor" validate:"required,max=200"`
}

// Reopen handles POST /api/v1/findings/{findingID}/reopen. Reopening is
// the one status change that never needs approval.
func (h *FindingHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "findingID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req reopenRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondError(w, r, err)
		return
	}

	f, err := h.triage.Reopen(r.Context(), id, req.Actor)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toFindingResponse(f))
}

type statusRequestRequest struct {
	Status      string `json:"status" validate:"required,finding_status"`
	Note        string `json:"note" validate:"required,max=2000"`
	RequestedBy string `json:"requested_by" validate:"required,max=200"`
	// ExpiresAt bounds a WONT_FIX acceptance; the finding reverts to OPEN
	// past it.
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// RequestStatusChange handles POST /api/v1/findings/{findingID}/status-requests.
// Dispositive statuses are applied only after a reviewer approves.
func (h *FindingHandler) RequestStatusChange(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "findingID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req statusRequestRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondError(w, r, err)
		return
	}

	request, err := h.triage.RequestStatusChange(
		r.Context(), id, finding.Status(req.Status), req.Note, req.RequestedBy, req.ExpiresAt,
	)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toApprovalResponse(request))
}

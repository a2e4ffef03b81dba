package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/wellqio/api/internal/app"
	"github.com/wellqio/api/pkg/domain/approval"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/validator"
)

// ApprovalHandler exposes the approval queue for gated triage decisions.
type ApprovalHandler struct {
	triage    *app.TriageService
	validator *validator.Validator
}

// NewApprovalHandler creates a new ApprovalHandler.
func NewApprovalHandler(triage *app.TriageService, v *validator.Validator) *ApprovalHandler {
	return &ApprovalHandler{triage: triage, validator: v}
}

type approvalResponse struct {
	ID              string     `json:"id"`
	FindingID       string     `json:"finding_id"`
	RequestedStatus string     `json:"requested_status"`
	TriageNote      string     `json:"triage_note"`
	RequestedBy     string     `json:"requested_by"`
	RequestedAt     time.Time  `json:"requested_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Status          string     `json:"status"`
	ReviewedBy      string     `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time `json:"reviewed_at,omitempty"`
	ReviewNote      string     `json:"review_note,omitempty"`
}

func toApprovalResponse(req *approval.Request) approvalResponse {
	return approvalResponse{
		ID:              req.ID().String(),
		FindingID:       req.FindingID().String(),
		RequestedStatus: string(req.RequestedStatus()),
		TriageNote:      req.TriageNote(),
		RequestedBy:     req.RequestedBy(),
		RequestedAt:     req.RequestedAt(),
		ExpiresAt:       req.ExpiresAt(),
		Status:          string(req.Status()),
		ReviewedBy:      req.ReviewedBy(),
		ReviewedAt:      req.ReviewedAt(),
		ReviewNote:      req.ReviewNote(),
	}
}

// ListPending handles GET /api/v1/approvals/pending, oldest first.
func (h *ApprovalHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	requests, err := h.triage.ListPendingApprovals(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]approvalResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toApprovalResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

// ListByFinding handles GET /api/v1/findings/{findingID}/approvals.
func (h *ApprovalHandler) ListByFinding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "findingID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	requests, err := h.triage.ListApprovalsByFinding(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]approvalResponse, 0, len(requests))
	for _, req := range requests {
		out = append(out, toApprovalResponse(req))
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

type reviewRequest struct {
	Reviewer string `json:"reviewer" validate:"required,max=200"`
	Note     string `json:"note" validate:"max=2000"`
}

// Approve handles POST /api/v1/approvals/{requestID}/approve. The
// requested status lands on the finding in the same transaction.
func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.triage.Approve)
}

// Reject handles POST /api/v1/approvals/{requestID}/reject. The finding
// keeps its current status.
func (h *ApprovalHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, h.triage.Reject)
}

func (h *ApprovalHandler) review(w http.ResponseWriter, r *http.Request,
	resolve func(ctx context.Context, requestID shared.ID, reviewer, note string) (*approval.Request, error),
) {
	id, err := pathID(r, "requestID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, h.validator, &req); err != nil {
		respondError(w, r, err)
		return
	}

	resolved, err := resolve(r.Context(), id, req.Reviewer, req.Note)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toApprovalResponse(resolved))
}

package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wellqio/api/pkg/domain/approval"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
	"github.com/wellqio/api/pkg/pagination"
)

// ErrApprovalPending signals that the finding already has an unresolved
// status change request.
var ErrApprovalPending = errors.New("finding already has a pending approval request")

// TriageService runs the finding triage workflow. Reopening is self-service;
// dispositive statuses (FALSE_POSITIVE, WONT_FIX, DUPLICATE) go through the
// approval review queue.
type TriageService struct {
	findings  finding.Repository
	approvals approval.Repository
	logger    *logger.Logger
	now       func() time.Time
}

// NewTriageService creates a new TriageService.
func NewTriageService(
	findings finding.Repository,
	approvals approval.Repository,
	log *logger.Logger,
) *TriageService {
	return &TriageService{
		findings:  findings,
		approvals: approvals,
		logger:    log.With("service", "triage"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// GetFinding returns one finding.
func (s *TriageService) GetFinding(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	return s.findings.GetByID(ctx, id)
}

// ListFindings returns findings matching the filter plus the total count.
func (s *TriageService) ListFindings(ctx context.Context, filter finding.Filter, p pagination.Pagination) ([]*finding.Finding, int64, error) {
	return s.findings.List(ctx, filter, p)
}

// Reopen flips a non-OPEN finding back to OPEN without review. Reopening is
// never gated: putting a finding back on the radar only adds work.
func (s *TriageService) Reopen(ctx context.Context, findingID shared.ID, actor string) (*finding.Finding, error) {
	f, err := s.findings.GetByID(ctx, findingID)
	if err != nil {
		return nil, err
	}
	if err := f.Reopen(s.now()); err != nil {
		return nil, err
	}
	if err := s.findings.Update(ctx, f); err != nil {
		return nil, fmt.Errorf("update finding: %w", err)
	}

	s.logger.Info("finding reopened", "finding_id", findingID.String(), "actor", actor)
	return f, nil
}

// RequestStatusChange files an approval request for a dispositive status.
// One unresolved request per finding at a time. expiresAt bounds a WONT_FIX
// acceptance; past it the finding reverts to OPEN automatically.
func (s *TriageService) RequestStatusChange(
	ctx context.Context,
	findingID shared.ID,
	requestedStatus finding.Status,
	note, requestedBy string,
	expiresAt *time.Time,
) (*approval.Request, error) {
	if _, err := s.findings.GetByID(ctx, findingID); err != nil {
		return nil, err
	}

	pending, err := s.approvals.HasPending(ctx, findingID)
	if err != nil {
		return nil, fmt.Errorf("check pending approvals: %w", err)
	}
	if pending {
		return nil, ErrApprovalPending
	}

	req, err := approval.New(findingID, requestedStatus, note, requestedBy, expiresAt)
	if err != nil {
		return nil, err
	}
	if err := s.approvals.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("create approval request: %w", err)
	}

	s.logger.Info("status change requested",
		"finding_id", findingID.String(),
		"requested_status", string(requestedStatus),
		"requested_by", requestedBy,
	)
	return req, nil
}

// Approve resolves a request and applies the requested status to the
// finding; both rows are written in one transaction.
func (s *TriageService) Approve(ctx context.Context, requestID shared.ID, reviewer, note string) (*approval.Request, error) {
	req, err := s.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	f, err := s.findings.GetByID(ctx, req.FindingID())
	if err != nil {
		return nil, fmt.Errorf("get finding: %w", err)
	}

	if err := req.Approve(reviewer, note); err != nil {
		return nil, err
	}
	if err := f.ApplyTriage(req.RequestedStatus(), req.TriageNote(), req.RequestedBy(), s.now(), req.ExpiresAt()); err != nil {
		return nil, err
	}
	if err := s.approvals.Resolve(ctx, req, f); err != nil {
		return nil, fmt.Errorf("resolve approval request: %w", err)
	}

	s.logger.Info("status change approved",
		"finding_id", f.ID().String(),
		"status", string(f.Status()),
		"reviewer", reviewer,
	)
	return req, nil
}

// Reject resolves a request without touching the finding.
func (s *TriageService) Reject(ctx context.Context, requestID shared.ID, reviewer, note string) (*approval.Request, error) {
	req, err := s.approvals.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if err := req.Reject(reviewer, note); err != nil {
		return nil, err
	}
	if err := s.approvals.Resolve(ctx, req, nil); err != nil {
		return nil, fmt.Errorf("resolve approval request: %w", err)
	}

	s.logger.Info("status change rejected",
		"finding_id", req.FindingID().String(),
		"reviewer", reviewer,
	)
	return req, nil
}

// ListPendingApprovals returns the review queue.
func (s *TriageService) ListPendingApprovals(ctx context.Context) ([]*approval.Request, error) {
	return s.approvals.ListPending(ctx)
}

// ListApprovalsByFinding returns a finding's request history.
func (s *TriageService) ListApprovalsByFinding(ctx context.Context, findingID shared.ID) ([]*approval.Request, error) {
	return s.approvals.ListByFinding(ctx, findingID)
}

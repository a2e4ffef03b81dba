package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/approval"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

func newTestFinding(t *testing.T) *finding.Finding {
	t.Helper()
	f, err := finding.FromCandidate(finding.Candidate{
		Title:           "CVE-2024-9 in zlib",
		Severity:        finding.SeverityHigh,
		Type:            finding.TypeSCA,
		VulnerabilityID: "CVE-2024-9",
		PackageName:     "zlib",
		PackageVersion:  "1.2.11",
	}, finding.ArtifactScope(shared.NewID()), shared.NewID(), time.Now().UTC())
	require.NoError(t, err)
	return f
}

func TestReopen_FixedFinding(t *testing.T) {
	findings := new(mockFindingRepo)
	approvals := new(mockApprovalRepo)

	f := newTestFinding(t)
	f.MarkFixed(time.Now().UTC())

	findings.On("GetByID", mock.Anything, f.ID()).Return(f, nil)
	findings.On("Update", mock.Anything, f).Return(nil)

	svc := NewTriageService(findings, approvals, logger.NewNop())
	reopened, err := svc.Reopen(context.Background(), f.ID(), "analyst")
	require.NoError(t, err)
	assert.Equal(t, finding.StatusOpen, reopened.Status())
}

func TestReopen_TriagedFinding(t *testing.T) {
	findings := new(mockFindingRepo)
	approvals := new(mockApprovalRepo)

	f := newTestFinding(t)
	require.NoError(t, f.ApplyTriage(finding.StatusFalsePositive, "noise", "reviewer", time.Now().UTC(), nil))

	findings.On("GetByID", mock.Anything, f.ID()).Return(f, nil)
	findings.On("Update", mock.Anything, f).Return(nil)

	// Walking a triage decision back to OPEN is self-service; only
	// leaving OPEN goes through the approval workflow.
	svc := NewTriageService(findings, approvals, logger.NewNop())
	reopened, err := svc.Reopen(context.Background(), f.ID(), "analyst")
	require.NoError(t, err)
	assert.Equal(t, finding.StatusOpen, reopened.Status())
	findings.AssertCalled(t, "Update", mock.Anything, f)
}

func TestRequestStatusChange(t *testing.T) {
	t.Run("creates a pending request", func(t *testing.T) {
		findings := new(mockFindingRepo)
		approvals := new(mockApprovalRepo)
		f := newTestFinding(t)

		findings.On("GetByID", mock.Anything, f.ID()).Return(f, nil)
		approvals.On("HasPending", mock.Anything, f.ID()).Return(false, nil)
		approvals.On("Create", mock.Anything, mock.MatchedBy(func(r *approval.Request) bool {
			return r.FindingID().Equals(f.ID()) && r.Status() == approval.StatusPending
		})).Return(nil)

		svc := NewTriageService(findings, approvals, logger.NewNop())
		req, err := svc.RequestStatusChange(context.Background(), f.ID(), finding.StatusFalsePositive, "dev dependency only", "analyst", nil)
		require.NoError(t, err)
		assert.Equal(t, finding.StatusFalsePositive, req.RequestedStatus())
	})

	t.Run("rejects a second request while one is pending", func(t *testing.T) {
		findings := new(mockFindingRepo)
		approvals := new(mockApprovalRepo)
		f := newTestFinding(t)

		findings.On("GetByID", mock.Anything, f.ID()).Return(f, nil)
		approvals.On("HasPending", mock.Anything, f.ID()).Return(true, nil)

		svc := NewTriageService(findings, approvals, logger.NewNop())
		_, err := svc.RequestStatusChange(context.Background(), f.ID(), finding.StatusWontFix, "accepted risk", "analyst", nil)
		assert.ErrorIs(t, err, ErrApprovalPending)
	})

	t.Run("rejects non-gated statuses", func(t *testing.T) {
		findings := new(mockFindingRepo)
		approvals := new(mockApprovalRepo)
		f := newTestFinding(t)

		findings.On("GetByID", mock.Anything, f.ID()).Return(f, nil)
		approvals.On("HasPending", mock.Anything, f.ID()).Return(false, nil)

		svc := NewTriageService(findings, approvals, logger.NewNop())
		_, err := svc.RequestStatusChange(context.Background(), f.ID(), finding.StatusOpen, "n/a", "analyst", nil)
		assert.ErrorIs(t, err, approval.ErrStatusNotGated)
	})
}

func TestApprove_AppliesStatusToFinding(t *testing.T) {
	findings := new(mockFindingRepo)
	approvals := new(mockApprovalRepo)

	f := newTestFinding(t)
	req, err := approval.New(f.ID(), finding.StatusWontFix, "accepted risk", "analyst", nil)
	require.NoError(t, err)

	approvals.On("GetByID", mock.Anything, req.ID()).Return(req, nil)
	findings.On("GetByID", mock.Anything, f.ID()).Return(f, nil)
	approvals.On("Resolve", mock.Anything, req, f).Return(nil)

	svc := NewTriageService(findings, approvals, logger.NewNop())
	resolved, err := svc.Approve(context.Background(), req.ID(), "lead", "confirmed")
	require.NoError(t, err)

	assert.Equal(t, approval.StatusApproved, resolved.Status())
	assert.Equal(t, finding.StatusWontFix, f.Status())
	assert.Equal(t, "accepted risk", f.TriageNote())
	assert.Equal(t, "analyst", f.TriagedBy())
	approvals.AssertExpectations(t)
}

func TestApprove_CarriesExpiryOntoFinding(t *testing.T) {
	findings := new(mockFindingRepo)
	approvals := new(mockApprovalRepo)

	f := newTestFinding(t)
	until := time.Now().UTC().AddDate(0, 3, 0)
	req, err := approval.New(f.ID(), finding.StatusWontFix, "accepted until Q4", "analyst", &until)
	require.NoError(t, err)

	approvals.On("GetByID", mock.Anything, req.ID()).Return(req, nil)
	findings.On("GetByID", mock.Anything, f.ID()).Return(f, nil)
	approvals.On("Resolve", mock.Anything, req, f).Return(nil)

	svc := NewTriageService(findings, approvals, logger.NewNop())
	_, err = svc.Approve(context.Background(), req.ID(), "lead", "confirmed")
	require.NoError(t, err)

	assert.Equal(t, finding.StatusWontFix, f.Status())
	require.NotNil(t, f.RiskAcceptedUntil())
	assert.Equal(t, until, *f.RiskAcceptedUntil())
}

func TestApprove_AlreadyResolvedConflicts(t *testing.T) {
	findings := new(mockFindingRepo)
	approvals := new(mockApprovalRepo)

	f := newTestFinding(t)
	req, err := approval.New(f.ID(), finding.StatusDuplicate, "same as another", "analyst", nil)
	require.NoError(t, err)
	require.NoError(t, req.Reject("lead", "keep both"))

	approvals.On("GetByID", mock.Anything, req.ID()).Return(req, nil)
	findings.On("GetByID", mock.Anything, f.ID()).Return(f, nil)

	svc := NewTriageService(findings, approvals, logger.NewNop())
	_, err = svc.Approve(context.Background(), req.ID(), "lead", "changed my mind")
	assert.ErrorIs(t, err, approval.ErrAlreadyResolved)
	assert.Equal(t, finding.StatusOpen, f.Status(), "a conflicting approval must not touch the finding")
}

func TestReject_LeavesFindingUntouched(t *testing.T) {
	findings := new(mockFindingRepo)
	approvals := new(mockApprovalRepo)

	f := newTestFinding(t)
	req, err := approval.New(f.ID(), finding.StatusFalsePositive, "looks benign", "analyst", nil)
	require.NoError(t, err)

	approvals.On("GetByID", mock.Anything, req.ID()).Return(req, nil)
	approvals.On("Resolve", mock.Anything, req, (*finding.Finding)(nil)).Return(nil)

	svc := NewTriageService(findings, approvals, logger.NewNop())
	resolved, err := svc.Reject(context.Background(), req.ID(), "lead", "exploitable in prod")
	require.NoError(t, err)

	assert.Equal(t, approval.StatusRejected, resolved.Status())
	assert.Equal(t, finding.StatusOpen, f.Status())
	findings.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

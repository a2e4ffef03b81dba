// Package approval models the review workflow gating dispositive finding
// statuses. Marking a finding FALSE_POSITIVE, WONT_FIX or DUPLICATE needs a
// request that a reviewer approves or rejects.
package approval

import (
	"strings"
	"time"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
)

// Status is the review state of a request.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Request asks for a finding status change that requires review.
type Request struct {
	id              shared.ID
	findingID       shared.ID
	requestedStatus finding.Status
	triageNote      string
	requestedBy     string
	requestedAt     time.Time
	// expiresAt bounds a WONT_FIX acceptance; carried onto the finding on
	// approval.
	expiresAt  *time.Time
	status     Status
	reviewedBy string
	reviewedAt *time.Time
	reviewNote string
}

// New creates a pending request. Only approval-gated statuses are accepted
// and a justification note is mandatory. expiresAt is only meaningful for
// WONT_FIX requests and must be in the future when set.
func New(findingID shared.ID, requestedStatus finding.Status, triageNote, requestedBy string, expiresAt *time.Time) (*Request, error) {
	if findingID.IsZero() {
		return nil, ErrFindingRequired
	}
	if !requestedStatus.RequiresApproval() {
		return nil, ErrStatusNotGated
	}
	if strings.TrimSpace(triageNote) == "" {
		return nil, ErrNoteRequired
	}
	if expiresAt != nil {
		if requestedStatus != finding.StatusWontFix {
			return nil, ErrExpiryNotAllowed
		}
		if !expiresAt.After(time.Now().UTC()) {
			return nil, ErrExpiryInPast
		}
	}

	return &Request{
		id:              shared.NewID(),
		findingID:       findingID,
		requestedStatus: requestedStatus,
		triageNote:      triageNote,
		requestedBy:     requestedBy,
		requestedAt:     time.Now().UTC(),
		expiresAt:       expiresAt,
		status:          StatusPending,
	}, nil
}

// Reconstitute rebuilds a request from persistence.
func Reconstitute(
	id, findingID shared.ID,
	requestedStatus finding.Status,
	triageNote, requestedBy string,
	requestedAt time.Time,
	expiresAt *time.Time,
	status Status,
	reviewedBy string,
	reviewedAt *time.Time,
	reviewNote string,
) *Request {
	return &Request{
		id:              id,
		findingID:       findingID,
		requestedStatus: requestedStatus,
		triageNote:      triageNote,
		requestedBy:     requestedBy,
		requestedAt:     requestedAt,
		expiresAt:       expiresAt,
		status:          status,
		reviewedBy:      reviewedBy,
		reviewedAt:      reviewedAt,
		reviewNote:      reviewNote,
	}
}

func (r *Request) ID() shared.ID                    { return r.id }
func (r *Request) FindingID() shared.ID             { return r.findingID }
func (r *Request) RequestedStatus() finding.Status  { return r.requestedStatus }
func (r *Request) TriageNote() string               { return r.triageNote }
func (r *Request) RequestedBy() string              { return r.requestedBy }
func (r *Request) RequestedAt() time.Time           { return r.requestedAt }
func (r *Request) ExpiresAt() *time.Time            { return r.expiresAt }
func (r *Request) Status() Status                   { return r.status }
func (r *Request) ReviewedBy() string               { return r.reviewedBy }
func (r *Request) ReviewedAt() *time.Time           { return r.reviewedAt }
func (r *Request) ReviewNote() string               { return r.reviewNote }

// Approve resolves the request positively. Resolving a request twice is a
// conflict.
func (r *Request) Approve(reviewer, note string) error {
	return r.resolve(StatusApproved, reviewer, note)
}

// Reject resolves the request negatively.
func (r *Request) Reject(reviewer, note string) error {
	return r.resolve(StatusRejected, reviewer, note)
}

func (r *Request) resolve(status Status, reviewer, note string) error {
	if r.status != StatusPending {
		return ErrAlreadyResolved
	}
	now := time.Now().UTC()
	r.status = status
	r.reviewedBy = reviewer
	r.reviewedAt = &now
	r.reviewNote = note
	return nil
}

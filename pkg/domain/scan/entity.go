// Package scan models one execution of a security scanner against a scope.
package scan

import (
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
)

// Status is the lifecycle state of a scan.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// IsValid reports whether the status is a known value.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether the scan can no longer change state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Scan is one run of a scanner against an artifact or, for legacy products
// tracked without a bill of materials, directly against a release.
type Scan struct {
	id            shared.ID
	artifactID    *shared.ID
	releaseID     *shared.ID
	scannerName   string
	status        Status
	startedAt     time.Time
	completedAt   *time.Time
	findingsCount int
	lastError     string
}

// NewForArtifact creates a pending scan scoped to an artifact.
func NewForArtifact(artifactID shared.ID, scannerName string) (*Scan, error) {
	if artifactID.IsZero() {
		return nil, ErrScopeRequired
	}
	return newScan(&artifactID, nil, scannerName)
}

// NewForRelease creates a pending scan scoped directly to a release.
func NewForRelease(releaseID shared.ID, scannerName string) (*Scan, error) {
	if releaseID.IsZero() {
		return nil, ErrScopeRequired
	}
	return newScan(nil, &releaseID, scannerName)
}

func newScan(artifactID, releaseID *shared.ID, scannerName string) (*Scan, error) {
	if scannerName == "" {
		return nil, ErrScannerRequired
	}
	return &Scan{
		id:          shared.NewID(),
		artifactID:  artifactID,
		releaseID:   releaseID,
		scannerName: scannerName,
		status:      StatusPending,
		startedAt:   time.Now().UTC(),
	}, nil
}

// Reconstitute rebuilds a scan from persistence.
func Reconstitute(
	id shared.ID,
	artifactID, releaseID *shared.ID,
	scannerName string,
	status Status,
	startedAt time.Time,
	completedAt *time.Time,
	findingsCount int,
	lastError string,
) *Scan {
	return &Scan{
		id:            id,
		artifactID:    artifactID,
		releaseID:     releaseID,
		scannerName:   scannerName,
		status:        status,
		startedAt:     startedAt,
		completedAt:   completedAt,
		findingsCount: findingsCount,
		lastError:     lastError,
	}
}

func (s *Scan) ID() shared.ID           { return s.id }
func (s *Scan) ArtifactID() *shared.ID  { return s.artifactID }
func (s *Scan) ReleaseID() *shared.ID   { return s.releaseID }
func (s *Scan) ScannerName() string     { return s.scannerName }
func (s *Scan) Status() Status          { return s.status }
func (s *Scan) StartedAt() time.Time    { return s.startedAt }
func (s *Scan) CompletedAt() *time.Time { return s.completedAt }
func (s *Scan) FindingsCount() int      { return s.findingsCount }
func (s *Scan) LastError() string       { return s.lastError }

// ScopeID returns the identifier findings of this scan are reconciled
// under: the artifact when present, otherwise the release.
func (s *Scan) ScopeID() shared.ID {
	if s.artifactID != nil {
		return *s.artifactID
	}
	if s.releaseID != nil {
		return *s.releaseID
	}
	return shared.ID{}
}

// HasArtifactScope reports whether the scan is artifact-scoped.
func (s *Scan) HasArtifactScope() bool {
	return s.artifactID != nil
}

// Start moves the scan from PENDING to PROCESSING.
func (s *Scan) Start() error {
	if s.status != StatusPending {
		return ErrInvalidTransition
	}
	s.status = StatusProcessing
	return nil
}

// Restart puts a COMPLETED scan back into PROCESSING. Same-window
// re-uploads attach to the existing scan record, so a completed scan must
// be able to re-enter processing when a new document arrives for it.
func (s *Scan) Restart() error {
	if s.status != StatusCompleted {
		return ErrInvalidTransition
	}
	s.status = StatusProcessing
	s.completedAt = nil
	s.lastError = ""
	return nil
}

// Complete finishes the scan and records the number of open findings in
// its scope.
func (s *Scan) Complete(findingsCount int) error {
	if s.status != StatusProcessing {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	s.status = StatusCompleted
	s.completedAt = &now
	s.findingsCount = findingsCount
	return nil
}

// Fail marks the scan failed, keeping the triggering error for operators.
// Failing is allowed from any non-terminal state.
func (s *Scan) Fail(reason string) error {
	if s.status.IsTerminal() {
		return ErrInvalidTransition
	}
	now := time.Now().UTC()
	s.status = StatusFailed
	s.completedAt = &now
	s.lastError = reason
	return nil
}

// Reusable reports whether a later submission may attach to this scan
// instead of creating a new one. Failed scans are never reused so a retry
// gets a fresh record.
func (s *Scan) Reusable() bool {
	return s.status != StatusFailed
}

// Package finding models the canonical security finding record and its
// lifecycle. Findings are deduplicated by fingerprint within a scope and
// survive across scans until the scanner stops reporting them.
package finding

import (
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/fingerprint"
)

// Scope identifies where a finding was observed: an artifact, or a release
// for legacy products scanned without a bill of materials.
type Scope struct {
	ArtifactID *shared.ID
	ReleaseID  *shared.ID
}

// ArtifactScope builds an artifact scope.
func ArtifactScope(id shared.ID) Scope { return Scope{ArtifactID: &id} }

// ReleaseScope builds a release scope.
func ReleaseScope(id shared.ID) Scope { return Scope{ReleaseID: &id} }

// ID returns the scope identifier used in fingerprints.
func (s Scope) ID() shared.ID {
	if s.ArtifactID != nil {
		return *s.ArtifactID
	}
	if s.ReleaseID != nil {
		return *s.ReleaseID
	}
	return shared.ID{}
}

// IsZero reports whether no scope is set.
func (s Scope) IsZero() bool {
	return s.ArtifactID == nil && s.ReleaseID == nil
}

// Finding is one deduplicated weakness observed in a scope.
type Finding struct {
	id              shared.ID
	scope           Scope
	scanID          shared.ID
	title           string
	description     string
	severity        Severity
	findingType     Type
	vulnerabilityID string
	packageName     string
	packageVersion  string
	fixVersion      string
	filePath        string
	line            int
	metadata        Metadata
	status          Status
	triageNote      string
	triagedBy       string
	triagedAt       *time.Time
	// riskAcceptedUntil bounds a WONT_FIX decision; past the deadline the
	// finding reverts to OPEN.
	riskAcceptedUntil *time.Time
	firstSeen         time.Time
	lastSeen          time.Time
	hashID            string
}

// Candidate is a normalized finding produced by a scanner adapter, before
// reconciliation assigns identity and lifecycle.
type Candidate struct {
	Title           string
	Description     string
	Severity        Severity
	Type            Type
	VulnerabilityID string
	PackageName     string
	PackageVersion  string
	FixVersion      string
	FilePath        string
	Line            int
	Metadata        Metadata
}

// Fingerprint computes the candidate's stable hash within the scope.
func (c Candidate) Fingerprint(scopeID shared.ID) string {
	return fingerprint.Compute(fingerprint.Input{
		FindingType:     string(c.Type),
		Title:           c.Title,
		FilePath:        c.FilePath,
		Line:            c.Line,
		VulnerabilityID: c.VulnerabilityID,
		PackageName:     c.PackageName,
		PackageVersion:  c.PackageVersion,
		SecretHash:      c.Metadata.SecretHash(),
	}, scopeID.String())
}

// FromCandidate materializes a new OPEN finding from an adapter candidate.
func FromCandidate(c Candidate, scope Scope, scanID shared.ID, observedAt time.Time) (*Finding, error) {
	if scope.IsZero() {
		return nil, ErrScopeRequired
	}
	if !c.Severity.IsValid() {
		c.Severity = SeverityInfo
	}
	if !c.Type.IsValid() {
		return nil, ErrInvalidType
	}
	meta := c.Metadata
	if meta == nil {
		meta = Metadata{}
	}

	return &Finding{
		id:              shared.NewID(),
		scope:           scope,
		scanID:          scanID,
		title:           c.Title,
		description:     c.Description,
		severity:        c.Severity,
		findingType:     c.Type,
		vulnerabilityID: c.VulnerabilityID,
		packageName:     c.PackageName,
		packageVersion:  c.PackageVersion,
		fixVersion:      c.FixVersion,
		filePath:        c.FilePath,
		line:            c.Line,
		metadata:        meta,
		status:          StatusOpen,
		firstSeen:       observedAt,
		lastSeen:        observedAt,
		hashID:          c.Fingerprint(scope.ID()),
	}, nil
}

// Reconstitute rebuilds a finding from persistence.
func Reconstitute(
	id shared.ID,
	scope Scope,
	scanID shared.ID,
	title, description string,
	severity Severity,
	findingType Type,
	vulnerabilityID, packageName, packageVersion, fixVersion, filePath string,
	line int,
	metadata Metadata,
	status Status,
	triageNote, triagedBy string,
	triagedAt, riskAcceptedUntil *time.Time,
	firstSeen, lastSeen time.Time,
	hashID string,
) *Finding {
	if metadata == nil {
		metadata = Metadata{}
	}
	return &Finding{
		id:                id,
		scope:             scope,
		scanID:            scanID,
		title:             title,
		description:       description,
		severity:          severity,
		findingType:       findingType,
		vulnerabilityID:   vulnerabilityID,
		packageName:       packageName,
		packageVersion:    packageVersion,
		fixVersion:        fixVersion,
		filePath:          filePath,
		line:              line,
		metadata:          metadata,
		status:            status,
		triageNote:        triageNote,
		triagedBy:         triagedBy,
		triagedAt:         triagedAt,
		riskAcceptedUntil: riskAcceptedUntil,
		firstSeen:         firstSeen,
		lastSeen:          lastSeen,
		hashID:            hashID,
	}
}

func (f *Finding) ID() shared.ID           { return f.id }
func (f *Finding) Scope() Scope            { return f.scope }
func (f *Finding) ScanID() shared.ID       { return f.scanID }
func (f *Finding) Title() string           { return f.title }
func (f *Finding) Description() string     { return f.description }
func (f *Finding) Severity() Severity      { return f.severity }
func (f *Finding) FindingType() Type       { return f.findingType }
func (f *Finding) VulnerabilityID() string { return f.vulnerabilityID }
func (f *Finding) PackageName() string     { return f.packageName }
func (f *Finding) PackageVersion() string  { return f.packageVersion }
func (f *Finding) FixVersion() string      { return f.fixVersion }
func (f *Finding) FilePath() string        { return f.filePath }
func (f *Finding) Line() int               { return f.line }
func (f *Finding) Metadata() Metadata      { return f.metadata }
func (f *Finding) Status() Status          { return f.status }
func (f *Finding) TriageNote() string      { return f.triageNote }
func (f *Finding) TriagedBy() string       { return f.triagedBy }
func (f *Finding) TriagedAt() *time.Time   { return f.triagedAt }

// RiskAcceptedUntil returns the WONT_FIX deadline, nil for open-ended
// acceptances and for every other status.
func (f *Finding) RiskAcceptedUntil() *time.Time { return f.riskAcceptedUntil }
func (f *Finding) FirstSeen() time.Time    { return f.firstSeen }
func (f *Finding) LastSeen() time.Time     { return f.lastSeen }
func (f *Finding) HashID() string          { return f.hashID }

// IsKEV reports whether the finding is known-exploited.
func (f *Finding) IsKEV() bool { return f.metadata.KEV() }

// Reopen flips the finding back to OPEN. Used for scanner regressions and
// the self-service triage fast path: any triage decision can be walked back
// to OPEN without an approval round trip, only leaving OPEN is gated.
func (f *Finding) Reopen(observedAt time.Time) error {
	if f.status == StatusOpen {
		return nil
	}
	f.status = StatusOpen
	f.riskAcceptedUntil = nil
	f.lastSeen = observedAt
	return nil
}

// MarkFixed closes the finding because the scanner no longer reports it.
func (f *Finding) MarkFixed(observedAt time.Time) {
	f.status = StatusFixed
	f.lastSeen = observedAt
}

// ApplyTriage sets a human-decided status. Approval-gated statuses must
// come through the approval workflow; this method only records the result.
// expiresAt bounds a WONT_FIX acceptance and is ignored for other statuses.
func (f *Finding) ApplyTriage(status Status, note, actor string, at time.Time, expiresAt *time.Time) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	f.status = status
	f.triageNote = note
	f.triagedBy = actor
	f.triagedAt = &at
	if status == StatusWontFix {
		f.riskAcceptedUntil = expiresAt
	} else {
		f.riskAcceptedUntil = nil
	}
	f.lastSeen = at
	return nil
}

// SetMetadata replaces the metadata bag, used by the enrichment job.
func (f *Finding) SetMetadata(m Metadata) {
	if m == nil {
		m = Metadata{}
	}
	f.metadata = m
}

// Package threatintel models external exploit intelligence feeds: FIRST.org
// EPSS scores and the CISA Known Exploited Vulnerabilities catalog.
package threatintel

import "time"

// EPSSScore is one EPSS row keyed by CVE ID.
type EPSSScore struct {
	cveID        string
	score        float64
	percentile   float64
	modelVersion string
	scoreDate    time.Time
	updatedAt    time.Time
}

// NewEPSSScore creates an EPSS score entry.
func NewEPSSScore(cveID string, score, percentile float64, modelVersion string, scoreDate time.Time) *EPSSScore {
	return &EPSSScore{
		cveID:        cveID,
		score:        score,
		percentile:   percentile,
		modelVersion: modelVersion,
		scoreDate:    scoreDate,
		updatedAt:    time.Now().UTC(),
	}
}

// ReconstituteEPSSScore rebuilds an entry from persistence.
func ReconstituteEPSSScore(cveID string, score, percentile float64, modelVersion string, scoreDate, updatedAt time.Time) *EPSSScore {
	return &EPSSScore{
		cveID:        cveID,
		score:        score,
		percentile:   percentile,
		modelVersion: modelVersion,
		scoreDate:    scoreDate,
		updatedAt:    updatedAt,
	}
}

func (e *EPSSScore) CVEID() string        { return e.cveID }
func (e *EPSSScore) Score() float64       { return e.score }
func (e *EPSSScore) Percentile() float64  { return e.percentile }
func (e *EPSSScore) ModelVersion() string { return e.modelVersion }
func (e *EPSSScore) ScoreDate() time.Time { return e.scoreDate }
func (e *EPSSScore) UpdatedAt() time.Time { return e.updatedAt }

// KEVEntry is one CISA Known Exploited Vulnerabilities catalog entry.
type KEVEntry struct {
	cveID          string
	vendorProject  string
	product        string
	name           string
	dateAdded      time.Time
	dueDate        time.Time
	ransomwareUse  string
	notes          string
	updatedAt      time.Time
}

// NewKEVEntry creates a KEV catalog entry.
func NewKEVEntry(cveID, vendorProject, product, name string, dateAdded, dueDate time.Time, ransomwareUse, notes string) *KEVEntry {
	return &KEVEntry{
		cveID:         cveID,
		vendorProject: vendorProject,
		product:       product,
		name:          name,
		dateAdded:     dateAdded,
		dueDate:       dueDate,
		ransomwareUse: ransomwareUse,
		notes:         notes,
		updatedAt:     time.Now().UTC(),
	}
}

// ReconstituteKEVEntry rebuilds an entry from persistence.
func ReconstituteKEVEntry(cveID, vendorProject, product, name string, dateAdded, dueDate time.Time, ransomwareUse, notes string, updatedAt time.Time) *KEVEntry {
	return &KEVEntry{
		cveID:         cveID,
		vendorProject: vendorProject,
		product:       product,
		name:          name,
		dateAdded:     dateAdded,
		dueDate:       dueDate,
		ransomwareUse: ransomwareUse,
		notes:         notes,
		updatedAt:     updatedAt,
	}
}

func (k *KEVEntry) CVEID() string         { return k.cveID }
func (k *KEVEntry) VendorProject() string { return k.vendorProject }
func (k *KEVEntry) Product() string       { return k.product }
func (k *KEVEntry) Name() string          { return k.name }
func (k *KEVEntry) DateAdded() time.Time  { return k.dateAdded }
func (k *KEVEntry) DueDate() time.Time    { return k.dueDate }
func (k *KEVEntry) RansomwareUse() string { return k.ransomwareUse }
func (k *KEVEntry) Notes() string         { return k.notes }
func (k *KEVEntry) UpdatedAt() time.Time  { return k.updatedAt }

// Sync sources.
const (
	SourceEPSS = "epss"
	SourceKEV  = "kev"
)

// SyncState is the outcome of the latest feed sync.
type SyncState string

const (
	SyncStateNever   SyncState = "NEVER"
	SyncStateRunning SyncState = "RUNNING"
	SyncStateSuccess SyncState = "SUCCESS"
	SyncStateFailed  SyncState = "FAILED"
)

// SyncStatus is the bookkeeping record for one feed source.
type SyncStatus struct {
	source        string
	enabled       bool
	state         SyncState
	lastSyncAt    *time.Time
	lastError     string
	recordsSynced int64
}

// NewSyncStatus creates a never-synced status record.
func NewSyncStatus(source string, enabled bool) *SyncStatus {
	return &SyncStatus{source: source, enabled: enabled, state: SyncStateNever}
}

// ReconstituteSyncStatus rebuilds a status from persistence.
func ReconstituteSyncStatus(source string, enabled bool, state SyncState, lastSyncAt *time.Time, lastError string, recordsSynced int64) *SyncStatus {
	return &SyncStatus{
		source:        source,
		enabled:       enabled,
		state:         state,
		lastSyncAt:    lastSyncAt,
		lastError:     lastError,
		recordsSynced: recordsSynced,
	}
}

func (s *SyncStatus) Source() string         { return s.source }
func (s *SyncStatus) Enabled() bool          { return s.enabled }
func (s *SyncStatus) State() SyncState       { return s.state }
func (s *SyncStatus) LastSyncAt() *time.Time { return s.lastSyncAt }
func (s *SyncStatus) LastError() string      { return s.lastError }
func (s *SyncStatus) RecordsSynced() int64   { return s.recordsSynced }

// MarkStarted records a sync beginning.
func (s *SyncStatus) MarkStarted() {
	s.state = SyncStateRunning
	s.lastError = ""
}

// MarkSuccess records a completed sync.
func (s *SyncStatus) MarkSuccess(records int64) {
	now := time.Now().UTC()
	s.state = SyncStateSuccess
	s.lastSyncAt = &now
	s.recordsSynced = records
	s.lastError = ""
}

// MarkFailed records a failed sync with its error.
func (s *SyncStatus) MarkFailed(err error) {
	now := time.Now().UTC()
	s.state = SyncStateFailed
	s.lastSyncAt = &now
	if err != nil {
		s.lastError = err.Error()
	}
}

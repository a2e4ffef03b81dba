package finding

import (
	"context"
	"time"

	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/pagination"
)

// HashState is the minimal per-finding state reconciliation needs.
type HashState struct {
	ID     shared.ID
	Status Status
}

// RiskCounts aggregates OPEN findings of one scope for risk scoring.
type RiskCounts struct {
	Critical int
	High     int
	Medium   int
	Low      int
	Info     int
	KEV      int
	Secrets  int
}

// Total returns the number of open findings counted.
func (c RiskCounts) Total() int {
	return c.Critical + c.High + c.Medium + c.Low + c.Info
}

// ToxicPackage is a package with at least one open known-exploited finding.
type ToxicPackage struct {
	Name       string
	Version    string
	KEVCount   int
	FixVersion string
}

// Filter narrows finding list queries.
type Filter struct {
	Scope    *Scope
	Statuses []Status
	Severity []Severity
	Types    []Type
	Search   string
	// Sort overrides the default severity-first ordering.
	Sort *pagination.SortOption
}

// ChangeSet is the batched outcome of reconciling one scan against the
// stored findings of its scope. Applying it issues one statement per
// non-empty bucket inside a single transaction.
type ChangeSet struct {
	// Creates are findings observed for the first time.
	Creates []*Finding
	// ReopenIDs are FIXED findings the scanner reported again.
	ReopenIDs []shared.ID
	// RefreshIDs are all re-observed findings; their last_seen moves
	// forward and they re-point at ScanID.
	RefreshIDs []shared.ID
	// CloseIDs are findings the scanner stopped reporting; they become
	// FIXED with last_seen bumped.
	CloseIDs []shared.ID

	ScanID     shared.ID
	ObservedAt time.Time
}

// Empty reports whether applying the change set would do nothing.
func (cs ChangeSet) Empty() bool {
	return len(cs.Creates) == 0 && len(cs.ReopenIDs) == 0 &&
		len(cs.RefreshIDs) == 0 && len(cs.CloseIDs) == 0
}

// Repository defines persistence operations for findings. Reconciliation
// methods are batch-shaped so one scan issues a constant number of
// statements regardless of finding count.
type Repository interface {
	GetByID(ctx context.Context, id shared.ID) (*Finding, error)
	Update(ctx context.Context, f *Finding) error
	List(ctx context.Context, filter Filter, p pagination.Pagination) ([]*Finding, int64, error)

	// HashIndex returns hash -> state for every finding in the scope.
	HashIndex(ctx context.Context, scope Scope) (map[string]HashState, error)

	// ApplyChangeSet commits a reconciliation outcome atomically.
	ApplyChangeSet(ctx context.Context, cs ChangeSet) error

	// CountOpen returns the number of OPEN findings in the scope.
	CountOpen(ctx context.Context, scope Scope) (int, error)

	// RiskCountsByScope aggregates OPEN findings per scope in one grouped
	// query.
	RiskCountsByScope(ctx context.Context, scopes []Scope) (map[shared.ID]RiskCounts, error)

	// ListBlocking returns OPEN findings that are known-exploited or
	// secrets, ordered severity then recency.
	ListBlocking(ctx context.Context, scopes []Scope) ([]*Finding, error)

	// ListSLABreaches returns OPEN CRITICAL findings first seen before
	// the cutoff.
	ListSLABreaches(ctx context.Context, scopes []Scope, cutoff time.Time) ([]*Finding, error)

	// ToxicPackages aggregates packages with open KEV findings in one
	// grouped query.
	ToxicPackages(ctx context.Context, scopes []Scope) ([]ToxicPackage, error)

	// ListEnrichable pages through SCA findings that carry a
	// vulnerability ID, for threat-intel enrichment.
	ListEnrichable(ctx context.Context, offset, limit int) ([]*Finding, error)

	// UpdateMetadataBatch persists enrichment metadata changes in one
	// statement per batch.
	UpdateMetadataBatch(ctx context.Context, findings []*Finding) error

	// ExpireRiskAcceptances reverts WONT_FIX findings whose acceptance
	// deadline passed back to OPEN, annotating the triage note. Returns
	// how many findings were reverted.
	ExpireRiskAcceptances(ctx context.Context, now time.Time) (int, error)
}

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// ReconcilePolicy tunes lifecycle decisions.
type ReconcilePolicy struct {
	// PreserveTriaged keeps FALSE_POSITIVE/WONT_FIX/DUPLICATE findings
	// untouched by auto-close. Off by default: a triaged finding the
	// scanner stops reporting is closed like any other.
	PreserveTriaged bool
}

// ReconcileResult summarizes what one scan changed.
type ReconcileResult struct {
	Created    int
	Reobserved int
	Reopened   int
	AutoClosed int
	// OpenCount is the scope's OPEN finding count after reconciliation.
	OpenCount int
}

// Reconciler merges parsed candidates into the persistent finding set of a
// scope. One run loads the scope's hash index once and writes the outcome
// as a single atomic change set.
type Reconciler struct {
	findings finding.Repository
	policy   ReconcilePolicy
	logger   *logger.Logger
	now      func() time.Time
}

// NewReconciler creates a reconciler.
func NewReconciler(findings finding.Repository, policy ReconcilePolicy, log *logger.Logger) *Reconciler {
	return &Reconciler{
		findings: findings,
		policy:   policy,
		logger:   log.With("component", "reconciler"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Reconcile applies one scan's candidates to the scope. Candidates with
// identical fingerprints are collapsed, first occurrence wins.
func (r *Reconciler) Reconcile(
	ctx context.Context,
	scope finding.Scope,
	scanID shared.ID,
	candidates []finding.Candidate,
) (ReconcileResult, error) {
	var result ReconcileResult

	known, err := r.findings.HashIndex(ctx, scope)
	if err != nil {
		return result, fmt.Errorf("load hash index: %w", err)
	}

	observedAt := r.now()
	cs := finding.ChangeSet{ScanID: scanID, ObservedAt: observedAt}
	seen := make(map[string]struct{}, len(candidates))

	for _, c := range candidates {
		hash := c.Fingerprint(scope.ID())
		if _, dup := seen[hash]; dup {
			continue
		}
		seen[hash] = struct{}{}

		state, exists := known[hash]
		if exists {
			cs.RefreshIDs = append(cs.RefreshIDs, state.ID)
			if state.Status == finding.StatusFixed {
				cs.ReopenIDs = append(cs.ReopenIDs, state.ID)
			}
			continue
		}

		f, err := finding.FromCandidate(c, scope, scanID, observedAt)
		if err != nil {
			r.logger.Warn("skipping invalid candidate",
				"title", c.Title,
				"error", err,
			)
			continue
		}
		cs.Creates = append(cs.Creates, f)
	}

	// Findings the scanner stopped reporting get auto-closed.
	for hash, state := range known {
		if _, stillSeen := seen[hash]; stillSeen {
			continue
		}
		if state.Status == finding.StatusFixed {
			continue
		}
		if r.policy.PreserveTriaged && state.Status.IsTriaged() {
			continue
		}
		cs.CloseIDs = append(cs.CloseIDs, state.ID)
	}

	if err := r.findings.ApplyChangeSet(ctx, cs); err != nil {
		return result, fmt.Errorf("apply change set: %w", err)
	}

	openCount, err := r.findings.CountOpen(ctx, scope)
	if err != nil {
		return result, fmt.Errorf("count open findings: %w", err)
	}

	result = ReconcileResult{
		Created:    len(cs.Creates),
		Reobserved: len(cs.RefreshIDs),
		Reopened:   len(cs.ReopenIDs),
		AutoClosed: len(cs.CloseIDs),
		OpenCount:  openCount,
	}

	r.logger.Info("scope reconciled",
		"scope_id", scope.ID().String(),
		"scan_id", scanID.String(),
		"created", result.Created,
		"reobserved", result.Reobserved,
		"reopened", result.Reopened,
		"auto_closed", result.AutoClosed,
		"open", result.OpenCount,
	)

	return result, nil
}

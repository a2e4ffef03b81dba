package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// DocumentStore stages raw scanner documents between the HTTP boundary and
// the worker that processes them.
type DocumentStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// ScopeLocker serializes reconciliation per scope. Acquire returns
// ErrScopeBusy when another holder owns the scope.
type ScopeLocker interface {
	Acquire(ctx context.Context, scopeID string, ttl time.Duration) (release func(context.Context), err error)
}

// Enqueuer hands accepted submissions to the background queue.
type Enqueuer interface {
	EnqueueScanIngest(ctx context.Context, scanID shared.ID, objectKey string) error
}

// ArtifactDirectory resolves or creates artifacts from submission
// coordinates.
type ArtifactDirectory interface {
	Upsert(ctx context.Context, workspaceID shared.ID, name, version string, artifactType artifact.Type, repoName, repoURL string) (*artifact.Artifact, bool, error)
}

// SubmitRequest is a validated scan submission.
type SubmitRequest struct {
	WorkspaceID shared.ID
	Scanner     string

	// Artifact coordinates; preferred scope.
	ArtifactName    string
	ArtifactVersion string
	ArtifactType    artifact.Type
	RepoName        string
	RepoURL         string

	// ReleaseID scopes the scan directly to a release when no artifact
	// coordinates are given (legacy products).
	ReleaseID shared.ID

	Document []byte
}

// SubmitResult reports the accepted scan.
type SubmitResult struct {
	ScanID    shared.ID
	Reused    bool
	ObjectKey string
}

// Config tunes the ingestion service.
type Config struct {
	// DedupWindow is how far back a submission may attach to an existing
	// scan of the same artifact and scanner. Zero means since midnight
	// UTC.
	DedupWindow time.Duration
	// ScopeLockTTL bounds one reconciliation's hold on its scope.
	ScopeLockTTL time.Duration
}

// Service accepts scan submissions and processes staged documents.
type Service struct {
	registry  *Registry
	reconciler *Reconciler
	artifacts ArtifactDirectory
	scans     scan.Repository
	releases  release.Repository
	store     DocumentStore
	locker    ScopeLocker
	enqueuer  Enqueuer
	metrics   *Metrics
	cfg       Config
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates the ingestion service.
func NewService(
	registry *Registry,
	reconciler *Reconciler,
	artifacts ArtifactDirectory,
	scans scan.Repository,
	releases release.Repository,
	store DocumentStore,
	locker ScopeLocker,
	enqueuer Enqueuer,
	metrics *Metrics,
	cfg Config,
	log *logger.Logger,
) *Service {
	if cfg.ScopeLockTTL <= 0 {
		cfg.ScopeLockTTL = 5 * time.Minute
	}
	return &Service{
		registry:   registry,
		reconciler: reconciler,
		artifacts:  artifacts,
		scans:      scans,
		releases:   releases,
		store:      store,
		locker:     locker,
		enqueuer:   enqueuer,
		metrics:    metrics,
		cfg:        cfg,
		logger:     log.With("component", "ingest_service"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates a submission, resolves its scope, attaches or creates
// the scan, stages the document and enqueues processing. Unsupported
// scanners are rejected synchronously.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	var result SubmitResult

	if !s.registry.Supported(req.Scanner) {
		return result, fmt.Errorf("%w: %s", ErrUnsupportedScanner, req.Scanner)
	}
	if len(req.Document) == 0 {
		return result, ErrEmptyDocument
	}

	sc, reused, err := s.resolveScan(ctx, req)
	if err != nil {
		return result, err
	}

	key := fmt.Sprintf("scans/%s/%d.json", sc.ID().String(), s.now().UnixNano())
	if err := s.store.Put(ctx, key, req.Document); err != nil {
		return result, fmt.Errorf("stage document: %w", err)
	}

	if err := s.enqueuer.EnqueueScanIngest(ctx, sc.ID(), key); err != nil {
		return result, fmt.Errorf("enqueue scan: %w", err)
	}

	s.metrics.submissionAccepted(req.Scanner, reused)
	s.logger.Info("scan submission accepted",
		"scan_id", sc.ID().String(),
		"scanner", req.Scanner,
		"reused", reused,
		"bytes", len(req.Document),
	)

	return SubmitResult{ScanID: sc.ID(), Reused: reused, ObjectKey: key}, nil
}

// resolveScan finds a reusable same-window scan or creates a new one.
func (s *Service) resolveScan(ctx context.Context, req SubmitRequest) (*scan.Scan, bool, error) {
	if req.ArtifactName != "" {
		art, _, err := s.artifacts.Upsert(ctx, req.WorkspaceID, req.ArtifactName, req.ArtifactVersion, req.ArtifactType, req.RepoName, req.RepoURL)
		if err != nil {
			return nil, false, fmt.Errorf("upsert artifact: %w", err)
		}

		existing, err := s.scans.FindReusable(ctx, art.ID(), req.Scanner, s.dedupCutoff())
		if err == nil && existing.Reusable() {
			return existing, true, nil
		}

		sc, err := scan.NewForArtifact(art.ID(), req.Scanner)
		if err != nil {
			return nil, false, err
		}
		if err := s.scans.Create(ctx, sc); err != nil {
			return nil, false, fmt.Errorf("create scan: %w", err)
		}
		return sc, false, nil
	}

	if req.ReleaseID.IsZero() {
		return nil, false, scan.ErrScopeRequired
	}
	if _, err := s.releases.GetByID(ctx, req.ReleaseID); err != nil {
		return nil, false, fmt.Errorf("resolve release scope: %w", err)
	}

	sc, err := scan.NewForRelease(req.ReleaseID, req.Scanner)
	if err != nil {
		return nil, false, err
	}
	if err := s.scans.Create(ctx, sc); err != nil {
		return nil, false, fmt.Errorf("create scan: %w", err)
	}
	return sc, false, nil
}

// dedupCutoff returns the earliest start time a scan may have to be
// reused by the current submission.
func (s *Service) dedupCutoff() time.Time {
	now := s.now()
	if s.cfg.DedupWindow > 0 {
		return now.Add(-s.cfg.DedupWindow)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// Process fetches a staged document, parses it and reconciles the scan's
// scope. It is called from the background worker; ErrScopeBusy is
// retryable.
func (s *Service) Process(ctx context.Context, scanID shared.ID, objectKey string) error {
	sc, err := s.scans.GetByID(ctx, scanID)
	if err != nil {
		return fmt.Errorf("load scan: %w", err)
	}
	if sc.Status() == scan.StatusFailed {
		s.logger.Info("scan already failed, skipping", "scan_id", scanID.String())
		return nil
	}

	scope := s.scanScope(sc)
	releaseLock, err := s.locker.Acquire(ctx, scope.ID().String(), s.cfg.ScopeLockTTL)
	if err != nil {
		return err
	}
	defer releaseLock(ctx)

	doc, err := s.store.Get(ctx, objectKey)
	if err != nil {
		// A completed scan whose staged document is gone is a duplicate
		// delivery: the document was consumed and deleted on the first
		// pass. A reused scan's fresh re-upload still has its document,
		// so it falls through to Restart below.
		if sc.Status() == scan.StatusCompleted {
			s.logger.Info("document already processed, skipping",
				"scan_id", scanID.String(), "key", objectKey)
			return nil
		}
		return fmt.Errorf("fetch document: %w", err)
	}

	switch sc.Status() {
	case scan.StatusPending:
		err = sc.Start()
	case scan.StatusCompleted:
		err = sc.Restart()
	}
	if err != nil {
		return err
	}
	if err := s.scans.Update(ctx, sc); err != nil {
		return fmt.Errorf("mark scan processing: %w", err)
	}

	parser, err := s.registry.Get(sc.ScannerName())
	if err != nil {
		return err
	}

	started := s.now()
	candidates, err := parser.Parse(ctx, doc)
	if err != nil {
		s.metrics.scanFailed("parse")
		return fmt.Errorf("parse %s document: %w", sc.ScannerName(), err)
	}

	result, err := s.reconciler.Reconcile(ctx, scope, sc.ID(), candidates)
	if err != nil {
		s.metrics.scanFailed("reconcile")
		return fmt.Errorf("reconcile scope: %w", err)
	}

	if err := sc.Complete(result.OpenCount); err != nil {
		return err
	}
	if err := s.scans.Update(ctx, sc); err != nil {
		return fmt.Errorf("complete scan: %w", err)
	}

	if err := s.store.Delete(ctx, objectKey); err != nil {
		s.logger.Warn("failed to delete staged document", "key", objectKey, "error", err)
	}

	s.metrics.scanProcessed(sc.ScannerName(), s.now().Sub(started), result)
	return nil
}

// MarkFailed records a terminal processing failure, called when the job
// queue exhausts retries.
func (s *Service) MarkFailed(ctx context.Context, scanID shared.ID, reason string) error {
	sc, err := s.scans.GetByID(ctx, scanID)
	if err != nil {
		return fmt.Errorf("load scan: %w", err)
	}
	if sc.Status().IsTerminal() {
		return nil
	}
	if err := sc.Fail(reason); err != nil {
		return err
	}
	if err := s.scans.Update(ctx, sc); err != nil {
		return fmt.Errorf("mark scan failed: %w", err)
	}
	s.metrics.scanFailed("exhausted")
	return nil
}

func (s *Service) scanScope(sc *scan.Scan) finding.Scope {
	if id := sc.ArtifactID(); id != nil {
		return finding.ArtifactScope(*id)
	}
	return finding.ReleaseScope(*sc.ReleaseID())
}

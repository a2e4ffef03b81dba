package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

const trivyTwoCVEs = `{
	"Results": [{
		"Target": "app/go.mod",
		"Type": "gomod",
		"Vulnerabilities": [
			{"VulnerabilityID": "CVE-2024-0001", "PkgName": "pkg-a", "InstalledVersion": "1.0", "Severity": "HIGH"},
			{"VulnerabilityID": "CVE-2024-0002", "PkgName": "pkg-b", "InstalledVersion": "2.0", "Severity": "HIGH"}
		]
	}]
}`

const trivyOneCVE = `{
	"Results": [{
		"Target": "app/go.mod",
		"Type": "gomod",
		"Vulnerabilities": [
			{"VulnerabilityID": "CVE-2024-0001", "PkgName": "pkg-a", "InstalledVersion": "1.0", "Severity": "HIGH"}
		]
	}]
}`

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: map[string][]byte{}} }

func (s *memStore) Put(_ context.Context, key string, data []byte) error {
	s.objects[key] = data
	return nil
}

func (s *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %s not found", key)
	}
	return data, nil
}

func (s *memStore) Delete(_ context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

type nopLocker struct{}

func (nopLocker) Acquire(context.Context, string, time.Duration) (func(context.Context), error) {
	return func(context.Context) {}, nil
}

type captureEnqueuer struct {
	keys []string
}

func (e *captureEnqueuer) EnqueueScanIngest(_ context.Context, _ shared.ID, objectKey string) error {
	e.keys = append(e.keys, objectKey)
	return nil
}

type stubArtifacts struct {
	art *artifact.Artifact
}

func (s *stubArtifacts) Upsert(context.Context, shared.ID, string, string, artifact.Type, string, string) (*artifact.Artifact, bool, error) {
	return s.art, false, nil
}

type memScanRepo struct {
	scan.Repository

	scans map[shared.ID]*scan.Scan
}

func newMemScanRepo() *memScanRepo { return &memScanRepo{scans: map[shared.ID]*scan.Scan{}} }

func (r *memScanRepo) Create(_ context.Context, s *scan.Scan) error {
	r.scans[s.ID()] = s
	return nil
}

func (r *memScanRepo) GetByID(_ context.Context, id shared.ID) (*scan.Scan, error) {
	s, ok := r.scans[id]
	if !ok {
		return nil, scan.ErrNotFound
	}
	return s, nil
}

func (r *memScanRepo) Update(_ context.Context, s *scan.Scan) error {
	r.scans[s.ID()] = s
	return nil
}

func (r *memScanRepo) FindReusable(_ context.Context, artifactID shared.ID, scannerName string, since time.Time) (*scan.Scan, error) {
	var best *scan.Scan
	for _, s := range r.scans {
		if s.ArtifactID() == nil || !s.ArtifactID().Equals(artifactID) {
			continue
		}
		if s.ScannerName() != scannerName || s.Status() == scan.StatusFailed {
			continue
		}
		if s.StartedAt().Before(since) {
			continue
		}
		if best == nil || s.StartedAt().After(best.StartedAt()) {
			best = s
		}
	}
	if best == nil {
		return nil, scan.ErrNotFound
	}
	return best, nil
}

// memFindingRepo keeps just enough reconciliation state for round-trip
// tests: one scope, hash index and per-finding status.
type memFindingRepo struct {
	finding.Repository

	byHash    map[string]finding.HashState
	status    map[shared.ID]finding.Status
	refreshed map[shared.ID]time.Time
}

func newMemFindingRepo() *memFindingRepo {
	return &memFindingRepo{
		byHash:    map[string]finding.HashState{},
		status:    map[shared.ID]finding.Status{},
		refreshed: map[shared.ID]time.Time{},
	}
}

func (r *memFindingRepo) HashIndex(context.Context, finding.Scope) (map[string]finding.HashState, error) {
	out := make(map[string]finding.HashState, len(r.byHash))
	for h, st := range r.byHash {
		out[h] = st
	}
	return out, nil
}

func (r *memFindingRepo) ApplyChangeSet(_ context.Context, cs finding.ChangeSet) error {
	for _, f := range cs.Creates {
		r.byHash[f.HashID()] = finding.HashState{ID: f.ID(), Status: finding.StatusOpen}
		r.status[f.ID()] = finding.StatusOpen
	}
	for _, id := range cs.ReopenIDs {
		r.setStatus(id, finding.StatusOpen)
	}
	for _, id := range cs.RefreshIDs {
		r.refreshed[id] = cs.ObservedAt
	}
	for _, id := range cs.CloseIDs {
		r.setStatus(id, finding.StatusFixed)
	}
	return nil
}

func (r *memFindingRepo) setStatus(id shared.ID, status finding.Status) {
	r.status[id] = status
	for h, st := range r.byHash {
		if st.ID.Equals(id) {
			r.byHash[h] = finding.HashState{ID: id, Status: status}
		}
	}
}

func (r *memFindingRepo) CountOpen(context.Context, finding.Scope) (int, error) {
	n := 0
	for _, s := range r.status {
		if s == finding.StatusOpen {
			n++
		}
	}
	return n, nil
}

func (r *memFindingRepo) countStatus(status finding.Status) int {
	n := 0
	for _, s := range r.status {
		if s == status {
			n++
		}
	}
	return n
}

func newTestService(t *testing.T) (*Service, *memScanRepo, *memFindingRepo, *memStore) {
	t.Helper()

	art, err := artifact.New(shared.NewID(), "payment-service-image", "sha256:abc", artifact.TypeContainer)
	require.NoError(t, err)

	findings := newMemFindingRepo()
	scans := newMemScanRepo()
	store := newMemStore()

	log := logger.NewNop()
	svc := NewService(
		NewRegistry(NewTrivyParser()),
		NewReconciler(findings, ReconcilePolicy{}, log),
		&stubArtifacts{art: art},
		scans,
		nil,
		store,
		nopLocker{},
		&captureEnqueuer{},
		NewMetrics(prometheus.NewRegistry()),
		Config{DedupWindow: time.Hour},
		log,
	)
	return svc, scans, findings, store
}

func submitRequest(doc string) SubmitRequest {
	return SubmitRequest{
		WorkspaceID:     shared.NewID(),
		Scanner:         ScannerTrivy,
		ArtifactName:    "payment-service-image",
		ArtifactVersion: "sha256:abc",
		ArtifactType:    artifact.TypeContainer,
		Document:        []byte(doc),
	}
}

func TestService_ReuploadWithinWindowReconciles(t *testing.T) {
	svc, scans, findings, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, submitRequest(trivyTwoCVEs))
	require.NoError(t, err)
	assert.False(t, first.Reused)
	require.NoError(t, svc.Process(ctx, first.ScanID, first.ObjectKey))

	assert.Equal(t, 2, findings.countStatus(finding.StatusOpen))
	sc, err := scans.GetByID(ctx, first.ScanID)
	require.NoError(t, err)
	assert.Equal(t, scan.StatusCompleted, sc.Status())
	assert.Equal(t, 2, sc.FindingsCount())

	// Same artifact and scanner inside the dedup window: the submission
	// attaches to the completed scan, and its document must still be
	// reconciled, not dropped.
	second, err := svc.Submit(ctx, submitRequest(trivyOneCVE))
	require.NoError(t, err)
	assert.True(t, second.Reused)
	assert.True(t, second.ScanID.Equals(first.ScanID))
	require.NoError(t, svc.Process(ctx, second.ScanID, second.ObjectKey))

	assert.Equal(t, 1, findings.countStatus(finding.StatusOpen))
	assert.Equal(t, 1, findings.countStatus(finding.StatusFixed), "the CVE missing from the re-upload must auto-close")
	assert.Len(t, findings.refreshed, 1, "the re-observed finding's last_seen moves forward")

	sc, err = scans.GetByID(ctx, second.ScanID)
	require.NoError(t, err)
	assert.Equal(t, scan.StatusCompleted, sc.Status())
	assert.Equal(t, 1, sc.FindingsCount())
}

func TestService_ReingestUnchangedDocumentIsIdempotent(t *testing.T) {
	svc, _, findings, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Submit(ctx, submitRequest(trivyTwoCVEs))
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, first.ScanID, first.ObjectKey))

	second, err := svc.Submit(ctx, submitRequest(trivyTwoCVEs))
	require.NoError(t, err)
	assert.True(t, second.Reused)
	require.NoError(t, svc.Process(ctx, second.ScanID, second.ObjectKey))

	assert.Len(t, findings.status, 2, "no new rows for an unchanged document")
	assert.Equal(t, 2, findings.countStatus(finding.StatusOpen))
	assert.Len(t, findings.refreshed, 2)
}

func TestService_DuplicateDeliverySkips(t *testing.T) {
	svc, scans, findings, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.Submit(ctx, submitRequest(trivyTwoCVEs))
	require.NoError(t, err)
	require.NoError(t, svc.Process(ctx, res.ScanID, res.ObjectKey))

	// The staged document was deleted on the first pass; redelivering the
	// same task is a no-op, not a failure.
	require.NoError(t, svc.Process(ctx, res.ScanID, res.ObjectKey))

	assert.Equal(t, 2, findings.countStatus(finding.StatusOpen))
	sc, err := scans.GetByID(ctx, res.ScanID)
	require.NoError(t, err)
	assert.Equal(t, scan.StatusCompleted, sc.Status())
}

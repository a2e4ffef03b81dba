package app

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/wellqio/api/pkg/domain/approval"
	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/component"
	"github.com/wellqio/api/pkg/domain/finding"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/scan"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/domain/threatintel"
	"github.com/wellqio/api/pkg/domain/workspace"
	"github.com/wellqio/api/pkg/pagination"
)

type mockFindingRepo struct{ mock.Mock }

func (m *mockFindingRepo) GetByID(ctx context.Context, id shared.ID) (*finding.Finding, error) {
	args := m.Called(ctx, id)
	f, _ := args.Get(0).(*finding.Finding)
	return f, args.Error(1)
}

func (m *mockFindingRepo) Update(ctx context.Context, f *finding.Finding) error {
	return m.Called(ctx, f).Error(0)
}

func (m *mockFindingRepo) List(ctx context.Context, filter finding.Filter, p pagination.Pagination) ([]*finding.Finding, int64, error) {
	args := m.Called(ctx, filter, p)
	fs, _ := args.Get(0).([]*finding.Finding)
	return fs, int64(args.Int(1)), args.Error(2)
}

func (m *mockFindingRepo) HashIndex(ctx context.Context, scope finding.Scope) (map[string]finding.HashState, error) {
	args := m.Called(ctx, scope)
	idx, _ := args.Get(0).(map[string]finding.HashState)
	return idx, args.Error(1)
}

func (m *mockFindingRepo) ApplyChangeSet(ctx context.Context, cs finding.ChangeSet) error {
	return m.Called(ctx, cs).Error(0)
}

func (m *mockFindingRepo) CountOpen(ctx context.Context, scope finding.Scope) (int, error) {
	args := m.Called(ctx, scope)
	return args.Int(0), args.Error(1)
}

func (m *mockFindingRepo) RiskCountsByScope(ctx context.Context, scopes []finding.Scope) (map[shared.ID]finding.RiskCounts, error) {
	args := m.Called(ctx, scopes)
	counts, _ := args.Get(0).(map[shared.ID]finding.RiskCounts)
	return counts, args.Error(1)
}

func (m *mockFindingRepo) ListBlocking(ctx context.Context, scopes []finding.Scope) ([]*finding.Finding, error) {
	args := m.Called(ctx, scopes)
	fs, _ := args.Get(0).([]*finding.Finding)
	return fs, args.Error(1)
}

func (m *mockFindingRepo) ListSLABreaches(ctx context.Context, scopes []finding.Scope, cutoff time.Time) ([]*finding.Finding, error) {
	args := m.Called(ctx, scopes, cutoff)
	fs, _ := args.Get(0).([]*finding.Finding)
	return fs, args.Error(1)
}

func (m *mockFindingRepo) ToxicPackages(ctx context.Context, scopes []finding.Scope) ([]finding.ToxicPackage, error) {
	args := m.Called(ctx, scopes)
	ps, _ := args.Get(0).([]finding.ToxicPackage)
	return ps, args.Error(1)
}

func (m *mockFindingRepo) ListEnrichable(ctx context.Context, offset, limit int) ([]*finding.Finding, error) {
	args := m.Called(ctx, offset, limit)
	fs, _ := args.Get(0).([]*finding.Finding)
	return fs, args.Error(1)
}

func (m *mockFindingRepo) UpdateMetadataBatch(ctx context.Context, findings []*finding.Finding) error {
	return m.Called(ctx, findings).Error(0)
}

func (m *mockFindingRepo) ExpireRiskAcceptances(ctx context.Context, now time.Time) (int, error) {
	args := m.Called(ctx, now)
	return args.Int(0), args.Error(1)
}

type mockScanRepo struct{ mock.Mock }

func (m *mockScanRepo) Create(ctx context.Context, s *scan.Scan) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockScanRepo) GetByID(ctx context.Context, id shared.ID) (*scan.Scan, error) {
	args := m.Called(ctx, id)
	s, _ := args.Get(0).(*scan.Scan)
	return s, args.Error(1)
}

func (m *mockScanRepo) Update(ctx context.Context, s *scan.Scan) error {
	return m.Called(ctx, s).Error(0)
}

func (m *mockScanRepo) FindReusable(ctx context.Context, artifactID shared.ID, scannerName string, since time.Time) (*scan.Scan, error) {
	args := m.Called(ctx, artifactID, scannerName, since)
	s, _ := args.Get(0).(*scan.Scan)
	return s, args.Error(1)
}

func (m *mockScanRepo) ListByArtifact(ctx context.Context, artifactID shared.ID) ([]*scan.Scan, error) {
	args := m.Called(ctx, artifactID)
	ss, _ := args.Get(0).([]*scan.Scan)
	return ss, args.Error(1)
}

func (m *mockScanRepo) ListByRelease(ctx context.Context, releaseID shared.ID) ([]*scan.Scan, error) {
	args := m.Called(ctx, releaseID)
	ss, _ := args.Get(0).([]*scan.Scan)
	return ss, args.Error(1)
}

func (m *mockScanRepo) CountByArtifacts(ctx context.Context, artifactIDs []shared.ID) (map[shared.ID]int, error) {
	args := m.Called(ctx, artifactIDs)
	counts, _ := args.Get(0).(map[shared.ID]int)
	return counts, args.Error(1)
}

func (m *mockScanRepo) FailStale(ctx context.Context, cutoff time.Time, reason string) (int, error) {
	args := m.Called(ctx, cutoff, reason)
	return args.Int(0), args.Error(1)
}

type mockReleaseRepo struct{ mock.Mock }

func (m *mockReleaseRepo) Create(ctx context.Context, r *release.Release) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockReleaseRepo) GetByID(ctx context.Context, id shared.ID) (*release.Release, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*release.Release)
	return r, args.Error(1)
}

func (m *mockReleaseRepo) GetByName(ctx context.Context, productID shared.ID, name string) (*release.Release, error) {
	args := m.Called(ctx, productID, name)
	r, _ := args.Get(0).(*release.Release)
	return r, args.Error(1)
}

func (m *mockReleaseRepo) ListByProduct(ctx context.Context, productID shared.ID) ([]*release.Release, error) {
	args := m.Called(ctx, productID)
	rs, _ := args.Get(0).([]*release.Release)
	return rs, args.Error(1)
}

func (m *mockReleaseRepo) LinkArtifact(ctx context.Context, releaseID, artifactID shared.ID) error {
	return m.Called(ctx, releaseID, artifactID).Error(0)
}

func (m *mockReleaseRepo) ArtifactIDs(ctx context.Context, releaseID shared.ID) ([]shared.ID, error) {
	args := m.Called(ctx, releaseID)
	ids, _ := args.Get(0).([]shared.ID)
	return ids, args.Error(1)
}

type mockArtifactRepo struct{ mock.Mock }

func (m *mockArtifactRepo) Create(ctx context.Context, a *artifact.Artifact) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockArtifactRepo) GetByID(ctx context.Context, id shared.ID) (*artifact.Artifact, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*artifact.Artifact)
	return a, args.Error(1)
}

func (m *mockArtifactRepo) GetByRef(ctx context.Context, workspaceID shared.ID, name, version string) (*artifact.Artifact, error) {
	args := m.Called(ctx, workspaceID, name, version)
	a, _ := args.Get(0).(*artifact.Artifact)
	return a, args.Error(1)
}

func (m *mockArtifactRepo) GetByRefs(ctx context.Context, workspaceID shared.ID, refs []string) (map[string]*artifact.Artifact, error) {
	args := m.Called(ctx, workspaceID, refs)
	as, _ := args.Get(0).(map[string]*artifact.Artifact)
	return as, args.Error(1)
}

func (m *mockArtifactRepo) ListByWorkspace(ctx context.Context, workspaceID shared.ID) ([]*artifact.Artifact, error) {
	args := m.Called(ctx, workspaceID)
	as, _ := args.Get(0).([]*artifact.Artifact)
	return as, args.Error(1)
}

func (m *mockArtifactRepo) Update(ctx context.Context, a *artifact.Artifact) error {
	return m.Called(ctx, a).Error(0)
}

type mockRepoRepo struct{ mock.Mock }

func (m *mockRepoRepo) Create(ctx context.Context, r *artifact.SourceRepo) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockRepoRepo) GetByID(ctx context.Context, id shared.ID) (*artifact.SourceRepo, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*artifact.SourceRepo)
	return r, args.Error(1)
}

func (m *mockRepoRepo) GetByURL(ctx context.Context, workspaceID shared.ID, url string) (*artifact.SourceRepo, error) {
	args := m.Called(ctx, workspaceID, url)
	r, _ := args.Get(0).(*artifact.SourceRepo)
	return r, args.Error(1)
}

type mockComponentRepo struct{ mock.Mock }

func (m *mockComponentRepo) ListActive(ctx context.Context, releaseID shared.ID) ([]*component.Component, error) {
	args := m.Called(ctx, releaseID)
	cs, _ := args.Get(0).([]*component.Component)
	return cs, args.Error(1)
}

func (m *mockComponentRepo) ListByRelease(ctx context.Context, releaseID shared.ID) ([]*component.Component, error) {
	args := m.Called(ctx, releaseID)
	cs, _ := args.Get(0).([]*component.Component)
	return cs, args.Error(1)
}

func (m *mockComponentRepo) CreateBatch(ctx context.Context, components []*component.Component) error {
	return m.Called(ctx, components).Error(0)
}

func (m *mockComponentRepo) UpdateStatusBatch(ctx context.Context, ids []shared.ID, status component.ChangeStatus) error {
	return m.Called(ctx, ids, status).Error(0)
}

func (m *mockComponentRepo) LicenseCounts(ctx context.Context, releaseID shared.ID) (map[string]int, error) {
	args := m.Called(ctx, releaseID)
	counts, _ := args.Get(0).(map[string]int)
	return counts, args.Error(1)
}

type mockApprovalRepo struct{ mock.Mock }

func (m *mockApprovalRepo) Create(ctx context.Context, r *approval.Request) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockApprovalRepo) GetByID(ctx context.Context, id shared.ID) (*approval.Request, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*approval.Request)
	return r, args.Error(1)
}

func (m *mockApprovalRepo) Update(ctx context.Context, r *approval.Request) error {
	return m.Called(ctx, r).Error(0)
}

func (m *mockApprovalRepo) ListPending(ctx context.Context) ([]*approval.Request, error) {
	args := m.Called(ctx)
	rs, _ := args.Get(0).([]*approval.Request)
	return rs, args.Error(1)
}

func (m *mockApprovalRepo) ListByFinding(ctx context.Context, findingID shared.ID) ([]*approval.Request, error) {
	args := m.Called(ctx, findingID)
	rs, _ := args.Get(0).([]*approval.Request)
	return rs, args.Error(1)
}

func (m *mockApprovalRepo) HasPending(ctx context.Context, findingID shared.ID) (bool, error) {
	args := m.Called(ctx, findingID)
	return args.Bool(0), args.Error(1)
}

func (m *mockApprovalRepo) Resolve(ctx context.Context, r *approval.Request, f *finding.Finding) error {
	return m.Called(ctx, r, f).Error(0)
}

type mockEPSSRepo struct{ mock.Mock }

func (m *mockEPSSRepo) UpsertBatch(ctx context.Context, scores []*threatintel.EPSSScore) error {
	return m.Called(ctx, scores).Error(0)
}

func (m *mockEPSSRepo) GetByCVEIDs(ctx context.Context, cveIDs []string) (map[string]*threatintel.EPSSScore, error) {
	args := m.Called(ctx, cveIDs)
	scores, _ := args.Get(0).(map[string]*threatintel.EPSSScore)
	return scores, args.Error(1)
}

func (m *mockEPSSRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return int64(args.Int(0)), args.Error(1)
}

type mockKEVRepo struct{ mock.Mock }

func (m *mockKEVRepo) UpsertBatch(ctx context.Context, entries []*threatintel.KEVEntry) error {
	return m.Called(ctx, entries).Error(0)
}

func (m *mockKEVRepo) GetByCVEIDs(ctx context.Context, cveIDs []string) (map[string]*threatintel.KEVEntry, error) {
	args := m.Called(ctx, cveIDs)
	entries, _ := args.Get(0).(map[string]*threatintel.KEVEntry)
	return entries, args.Error(1)
}

func (m *mockKEVRepo) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return int64(args.Int(0)), args.Error(1)
}

type mockSyncStatusRepo struct{ mock.Mock }

func (m *mockSyncStatusRepo) GetBySource(ctx context.Context, source string) (*threatintel.SyncStatus, error) {
	args := m.Called(ctx, source)
	s, _ := args.Get(0).(*threatintel.SyncStatus)
	return s, args.Error(1)
}

func (m *mockSyncStatusRepo) GetAll(ctx context.Context) ([]*threatintel.SyncStatus, error) {
	args := m.Called(ctx)
	ss, _ := args.Get(0).([]*threatintel.SyncStatus)
	return ss, args.Error(1)
}

func (m *mockSyncStatusRepo) Upsert(ctx context.Context, status *threatintel.SyncStatus) error {
	return m.Called(ctx, status).Error(0)
}

type mockWorkspaceRepo struct{ mock.Mock }

func (m *mockWorkspaceRepo) Create(ctx context.Context, w *workspace.Workspace) error {
	return m.Called(ctx, w).Error(0)
}

func (m *mockWorkspaceRepo) GetByID(ctx context.Context, id shared.ID) (*workspace.Workspace, error) {
	args := m.Called(ctx, id)
	w, _ := args.Get(0).(*workspace.Workspace)
	return w, args.Error(1)
}

func (m *mockWorkspaceRepo) GetBySlug(ctx context.Context, slug string) (*workspace.Workspace, error) {
	args := m.Called(ctx, slug)
	w, _ := args.Get(0).(*workspace.Workspace)
	return w, args.Error(1)
}

func (m *mockWorkspaceRepo) List(ctx context.Context) ([]*workspace.Workspace, error) {
	args := m.Called(ctx)
	ws, _ := args.Get(0).([]*workspace.Workspace)
	return ws, args.Error(1)
}

func (m *mockWorkspaceRepo) Update(ctx context.Context, w *workspace.Workspace) error {
	return m.Called(ctx, w).Error(0)
}

type mockFeedFetcher struct{ mock.Mock }

func (m *mockFeedFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	args := m.Called(ctx, url)
	rc, _ := args.Get(0).(io.ReadCloser)
	return rc, args.Error(1)
}

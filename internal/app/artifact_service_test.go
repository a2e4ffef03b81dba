package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/domain/workspace"
	"github.com/wellqio/api/pkg/logger"
)

func TestArtifactUpsert_CreatesOnFirstSight(t *testing.T) {
	artifacts := new(mockArtifactRepo)
	repos := new(mockRepoRepo)
	workspaceID := shared.NewID()

	artifacts.On("GetByRef", mock.Anything, workspaceID, "api-server", "1.0.0").
		Return(nil, artifact.ErrNotFound)
	artifacts.On("Create", mock.Anything, mock.MatchedBy(func(a *artifact.Artifact) bool {
		return a.Name() == "api-server" && a.Version() == "1.0.0"
	})).Return(nil)

	svc := NewArtifactService(artifacts, repos, logger.NewNop())
	art, created, err := svc.Upsert(context.Background(), workspaceID, "api-server", "1.0.0", artifact.TypeContainer, "", "")
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, "api-server:1.0.0", art.Ref())
}

func TestArtifactUpsert_ReturnsExisting(t *testing.T) {
	artifacts := new(mockArtifactRepo)
	repos := new(mockRepoRepo)
	workspaceID := shared.NewID()

	existing, err := artifact.New(workspaceID, "api-server", "1.0.0", artifact.TypeContainer)
	require.NoError(t, err)

	artifacts.On("GetByRef", mock.Anything, workspaceID, "api-server", "1.0.0").
		Return(existing, nil)

	svc := NewArtifactService(artifacts, repos, logger.NewNop())
	art, created, err := svc.Upsert(context.Background(), workspaceID, "api-server", "1.0.0", artifact.TypeContainer, "", "")
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, existing.ID(), art.ID())
	artifacts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestArtifactUpsert_AttachesRepoOnce(t *testing.T) {
	artifacts := new(mockArtifactRepo)
	repos := new(mockRepoRepo)
	workspaceID := shared.NewID()

	existing, err := artifact.New(workspaceID, "api-server", "1.0.0", artifact.TypeContainer)
	require.NoError(t, err)
	repo, err := artifact.NewSourceRepo(workspaceID, "api-server", "git@github.com:acme/api-server.git")
	require.NoError(t, err)

	artifacts.On("GetByRef", mock.Anything, workspaceID, "api-server", "1.0.0").
		Return(existing, nil)
	repos.On("GetByURL", mock.Anything, workspaceID, "https://github.com/acme/api-server").
		Return(repo, nil)
	artifacts.On("Update", mock.Anything, existing).Return(nil)

	svc := NewArtifactService(artifacts, repos, logger.NewNop())
	art, _, err := svc.Upsert(
		context.Background(), workspaceID,
		"api-server", "1.0.0", artifact.TypeContainer,
		"api-server", "git@github.com:acme/api-server.git",
	)
	require.NoError(t, err)

	require.NotNil(t, art.RepoID())
	assert.True(t, art.RepoID().Equals(repo.ID()))

	// Second submission with a different origin leaves the link alone.
	art2, _, err := svc.Upsert(
		context.Background(), workspaceID,
		"api-server", "1.0.0", artifact.TypeContainer,
		"fork", "https://github.com/fork/api-server",
	)
	require.NoError(t, err)
	assert.True(t, art2.RepoID().Equals(repo.ID()))
}

func TestArtifactUpsert_RepoFailureDoesNotBlock(t *testing.T) {
	artifacts := new(mockArtifactRepo)
	repos := new(mockRepoRepo)
	workspaceID := shared.NewID()

	existing, err := artifact.New(workspaceID, "api-server", "1.0.0", artifact.TypeContainer)
	require.NoError(t, err)

	artifacts.On("GetByRef", mock.Anything, workspaceID, "api-server", "1.0.0").
		Return(existing, nil)
	repos.On("GetByURL", mock.Anything, workspaceID, mock.Anything).
		Return(nil, assert.AnError)

	svc := NewArtifactService(artifacts, repos, logger.NewNop())
	art, _, err := svc.Upsert(
		context.Background(), workspaceID,
		"api-server", "1.0.0", artifact.TypeContainer,
		"", "https://github.com/acme/api-server",
	)
	require.NoError(t, err)
	assert.Nil(t, art.RepoID())
}

func TestWorkspaceEnsure_Idempotent(t *testing.T) {
	workspaces := new(mockWorkspaceRepo)

	existing, err := workspace.New("Payments Team", "")
	require.NoError(t, err)

	workspaces.On("GetBySlug", mock.Anything, "payments-team").Return(existing, nil)

	svc := NewWorkspaceService(workspaces, logger.NewNop())
	ws, err := svc.Ensure(context.Background(), "Payments Team", "ignored")
	require.NoError(t, err)

	assert.Equal(t, existing.ID(), ws.ID())
	workspaces.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestLinkArtifacts_ReportsRejections(t *testing.T) {
	releases := new(mockReleaseRepo)
	artifacts := new(mockArtifactRepo)
	workspaceID := shared.NewID()

	rel := release.Reconstitute(shared.NewID(), shared.NewID(), "2024.09", "", time.Now())
	known, err := artifact.New(workspaceID, "api-server", "1.0.0", artifact.TypeContainer)
	require.NoError(t, err)

	releases.On("GetByID", mock.Anything, rel.ID()).Return(rel, nil)
	artifacts.On("GetByRefs", mock.Anything, workspaceID, []string{"api-server:1.0.0", "ghost:9.9.9"}).
		Return(map[string]*artifact.Artifact{"api-server:1.0.0": known}, nil)
	releases.On("LinkArtifact", mock.Anything, rel.ID(), known.ID()).Return(nil)

	svc := NewReleaseService(releases, artifacts, logger.NewNop())
	result, err := svc.LinkArtifacts(context.Background(), workspaceID, rel.ID(), []release.ArtifactRef{
		{Name: "api-server", Version: "1.0.0"},
		{Name: "ghost", Version: "9.9.9"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Linked)
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, "ghost:9.9.9", result.Rejected[0].String())
	releases.AssertExpectations(t)
}

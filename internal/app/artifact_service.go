package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// ArtifactService manages the artifact directory: uniquely versioned build
// outputs and the source repos they came from.
type ArtifactService struct {
	artifacts artifact.Repository
	repos     artifact.RepoRepository
	logger    *logger.Logger
}

// NewArtifactService creates a new ArtifactService.
func NewArtifactService(
	artifacts artifact.Repository,
	repos artifact.RepoRepository,
	log *logger.Logger,
) *ArtifactService {
	return &ArtifactService{
		artifacts: artifacts,
		repos:     repos,
		logger:    log.With("service", "artifact"),
	}
}

// Upsert returns the artifact identified by (name, version) in the
// workspace, creating it on first sight. A repo origin attaches only while
// the artifact has none; the first reported origin wins. The returned bool
// reports whether the artifact was created by this call.
func (s *ArtifactService) Upsert(
	ctx context.Context,
	workspaceID shared.ID,
	name, version string,
	artifactType artifact.Type,
	repoName, repoURL string,
) (*artifact.Artifact, bool, error) {
	art, err := s.artifacts.GetByRef(ctx, workspaceID, name, version)
	created := false

	switch {
	case err == nil:
		// exists
	case errors.Is(err, artifact.ErrNotFound):
		art, err = artifact.New(workspaceID, name, version, artifactType)
		if err != nil {
			return nil, false, err
		}
		if createErr := s.artifacts.Create(ctx, art); createErr != nil {
			// Concurrent submission can win the insert race; fall back
			// to the row it created.
			if errors.Is(createErr, shared.ErrAlreadyExists) {
				art, err = s.artifacts.GetByRef(ctx, workspaceID, name, version)
				if err != nil {
					return nil, false, fmt.Errorf("reload artifact after conflict: %w", err)
				}
			} else {
				return nil, false, fmt.Errorf("create artifact: %w", createErr)
			}
		} else {
			created = true
		}
	default:
		return nil, false, fmt.Errorf("get artifact: %w", err)
	}

	if repoURL != "" && art.RepoID() == nil {
		repo, err := s.ensureRepo(ctx, workspaceID, repoName, repoURL)
		if err != nil {
			// A missing repo link never blocks ingestion.
			s.logger.Warn("failed to resolve source repo",
				"artifact", art.Ref(),
				"repo_url", repoURL,
				"error", err,
			)
		} else if art.AttachRepo(repo.ID()) {
			if err := s.artifacts.Update(ctx, art); err != nil {
				return nil, false, fmt.Errorf("attach repo: %w", err)
			}
		}
	}

	return art, created, nil
}

// ensureRepo resolves a source repo by its normalized URL, creating it when
// unseen.
func (s *ArtifactService) ensureRepo(ctx context.Context, workspaceID shared.ID, name, rawURL string) (*artifact.SourceRepo, error) {
	normalized := artifact.NormalizeRepoURL(rawURL)
	if normalized == "" {
		return nil, artifact.ErrRepoURLRequired
	}

	repo, err := s.repos.GetByURL(ctx, workspaceID, normalized)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, artifact.ErrRepoNotFound) {
		return nil, err
	}

	repo, err = artifact.NewSourceRepo(workspaceID, name, rawURL)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Create(ctx, repo); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.repos.GetByURL(ctx, workspaceID, normalized)
		}
		return nil, err
	}
	return repo, nil
}

// GetByID returns one artifact.
func (s *ArtifactService) GetByID(ctx context.Context, id shared.ID) (*artifact.Artifact, error) {
	return s.artifacts.GetByID(ctx, id)
}

// ListByWorkspace returns all artifacts in a workspace.
func (s *ArtifactService) ListByWorkspace(ctx context.Context, workspaceID shared.ID) ([]*artifact.Artifact, error) {
	return s.artifacts.ListByWorkspace(ctx, workspaceID)
}

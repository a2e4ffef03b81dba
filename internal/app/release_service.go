package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/wellqio/api/pkg/domain/artifact"
	"github.com/wellqio/api/pkg/domain/release"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// ReleaseService manages releases and their bill-of-materials composition.
type ReleaseService struct {
	releases  release.Repository
	artifacts artifact.Repository
	logger    *logger.Logger
}

// NewReleaseService creates a new ReleaseService.
func NewReleaseService(
	releases release.Repository,
	artifacts artifact.Repository,
	log *logger.Logger,
) *ReleaseService {
	return &ReleaseService{
		releases:  releases,
		artifacts: artifacts,
		logger:    log.With("service", "release"),
	}
}

// Ensure returns the release named name under the product, creating it on
// first sight. An existing release keeps its commit hash.
func (s *ReleaseService) Ensure(ctx context.Context, productID shared.ID, name, commitHash string) (*release.Release, error) {
	rel, err := s.releases.GetByName(ctx, productID, name)
	if err == nil {
		return rel, nil
	}
	if !errors.Is(err, release.ErrNotFound) {
		return nil, err
	}

	rel, err = release.New(productID, name, commitHash)
	if err != nil {
		return nil, err
	}
	if err := s.releases.Create(ctx, rel); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.releases.GetByName(ctx, productID, name)
		}
		return nil, err
	}

	s.logger.Info("release created", "name", name, "product_id", productID.String())
	return rel, nil
}

// GetByID returns one release.
func (s *ReleaseService) GetByID(ctx context.Context, id shared.ID) (*release.Release, error) {
	return s.releases.GetByID(ctx, id)
}

// ListByProduct returns all releases of a product.
func (s *ReleaseService) ListByProduct(ctx context.Context, productID shared.ID) ([]*release.Release, error) {
	return s.releases.ListByProduct(ctx, productID)
}

// LinkArtifacts composes the release from artifact refs. Refs are resolved
// by natural key within the workspace; refs naming no known artifact are
// returned as rejections rather than silently dropped, so the caller can
// surface an incomplete bill of materials. Linking is idempotent.
func (s *ReleaseService) LinkArtifacts(
	ctx context.Context,
	workspaceID, releaseID shared.ID,
	refs []release.ArtifactRef,
) (release.LinkResult, error) {
	var result release.LinkResult

	if _, err := s.releases.GetByID(ctx, releaseID); err != nil {
		return result, fmt.Errorf("get release: %w", err)
	}
	if len(refs) == 0 {
		return result, nil
	}

	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		keys = append(keys, ref.String())
	}
	resolved, err := s.artifacts.GetByRefs(ctx, workspaceID, keys)
	if err != nil {
		return result, fmt.Errorf("resolve artifact refs: %w", err)
	}

	for _, ref := range refs {
		art, ok := resolved[ref.String()]
		if !ok {
			result.Rejected = append(result.Rejected, ref)
			continue
		}
		if err := s.releases.LinkArtifact(ctx, releaseID, art.ID()); err != nil {
			return result, fmt.Errorf("link artifact %s: %w", ref, err)
		}
		result.Linked++
	}

	if len(result.Rejected) > 0 {
		s.logger.Warn("bill of materials has unknown artifact refs",
			"release_id", releaseID.String(),
			"rejected", len(result.Rejected),
		)
	}

	return result, nil
}

// ArtifactIDs returns the IDs of the artifacts composing the release.
func (s *ReleaseService) ArtifactIDs(ctx context.Context, releaseID shared.ID) ([]shared.ID, error) {
	return s.releases.ArtifactIDs(ctx, releaseID)
}

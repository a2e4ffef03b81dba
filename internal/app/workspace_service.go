package app

import (
	"context"
	"errors"

	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/domain/workspace"
	"github.com/wellqio/api/pkg/logger"
)

// WorkspaceService manages workspaces.
type WorkspaceService struct {
	workspaces workspace.Repository
	logger     *logger.Logger
}

// NewWorkspaceService creates a new WorkspaceService.
func NewWorkspaceService(workspaces workspace.Repository, log *logger.Logger) *WorkspaceService {
	return &WorkspaceService{
		workspaces: workspaces,
		logger:     log.With("service", "workspace"),
	}
}

// Ensure returns the workspace with the slug derived from name, creating it
// on first sight.
func (s *WorkspaceService) Ensure(ctx context.Context, name, description string) (*workspace.Workspace, error) {
	ws, err := s.workspaces.GetBySlug(ctx, workspace.Slugify(name))
	if err == nil {
		return ws, nil
	}
	if !errors.Is(err, workspace.ErrNotFound) {
		return nil, err
	}

	ws, err = workspace.New(name, description)
	if err != nil {
		return nil, err
	}
	if err := s.workspaces.Create(ctx, ws); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.workspaces.GetBySlug(ctx, ws.Slug())
		}
		return nil, err
	}

	s.logger.Info("workspace created", "slug", ws.Slug())
	return ws, nil
}

// GetByID returns one workspace.
func (s *WorkspaceService) GetByID(ctx context.Context, id shared.ID) (*workspace.Workspace, error) {
	return s.workspaces.GetByID(ctx, id)
}

// GetBySlug returns one workspace by slug.
func (s *WorkspaceService) GetBySlug(ctx context.Context, slug string) (*workspace.Workspace, error) {
	return s.workspaces.GetBySlug(ctx, slug)
}

// List returns all workspaces.
func (s *WorkspaceService) List(ctx context.Context) ([]*workspace.Workspace, error) {
	return s.workspaces.List(ctx)
}

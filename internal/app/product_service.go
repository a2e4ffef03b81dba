package app

import (
	"context"
	"errors"

	"github.com/wellqio/api/pkg/domain/product"
	"github.com/wellqio/api/pkg/domain/shared"
	"github.com/wellqio/api/pkg/logger"
)

// ProductService manages products.
type ProductService struct {
	products product.Repository
	logger   *logger.Logger
}

// NewProductService creates a new ProductService.
func NewProductService(products product.Repository, log *logger.Logger) *ProductService {
	return &ProductService{
		products: products,
		logger:   log.With("service", "product"),
	}
}

// Ensure returns the product named name in the workspace, creating it on
// first sight.
func (s *ProductService) Ensure(
	ctx context.Context,
	workspaceID shared.ID,
	name string,
	productType product.Type,
	criticality product.Criticality,
) (*product.Product, error) {
	p, err := s.products.GetByName(ctx, workspaceID, name)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, product.ErrNotFound) {
		return nil, err
	}

	p, err = product.New(workspaceID, name, productType, criticality)
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		if errors.Is(err, shared.ErrAlreadyExists) {
			return s.products.GetByName(ctx, workspaceID, name)
		}
		return nil, err
	}

	s.logger.Info("product created", "name", name, "workspace_id", workspaceID.String())
	return p, nil
}

// GetByID returns one product.
func (s *ProductService) GetByID(ctx context.Context, id shared.ID) (*product.Product, error) {
	return s.products.GetByID(ctx, id)
}

// ListByWorkspace returns all products in a workspace.
func (s *ProductService) ListByWorkspace(ctx context.Context, workspaceID shared.ID) ([]*product.Product, error) {
	return s.products.ListByWorkspace(ctx, workspaceID)
}

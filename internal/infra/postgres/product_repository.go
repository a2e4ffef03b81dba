package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/wellqio/api/pkg/domain/product"
	"github.com/wellqio/api/pkg/domain/shared"
)

// ProductRepository implements product.Repository using PostgreSQL.
type ProductRepository struct {
	db *DB
}

// NewProductRepository creates a new ProductRepository.
func NewProductRepository(db *DB) *ProductRepository {
	return &ProductRepository{db: db}
}

const productColumns = `id, workspace_id, name, product_type, criticality, description, tags, created_at, updated_at`

// Create persists a new product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	query := `
		INSERT INTO products (id, workspace_id, name, product_type, criticality, description, tags, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID().String(),
		p.WorkspaceID().String(),
		p.Name(),
		string(p.ProductType()),
		string(p.Criticality()),
		p.Description(),
		pq.Array(p.Tags()),
		p.CreatedAt(),
		p.UpdatedAt(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepository) GetByID(ctx context.Context, id shared.ID) (*product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	return r.scanProduct(r.db.QueryRowContext(ctx, query, id.String()))
}

// GetByName retrieves a product by its workspace-scoped name.
func (r *ProductRepository) GetByName(ctx context.Context, workspaceID shared.ID, name string) (*product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE workspace_id = $1 AND name = $2`
	return r.scanProduct(r.db.QueryRowContext(ctx, query, workspaceID.String(), name))
}

// ListByWorkspace returns the workspace's products ordered by name.
func (r *ProductRepository) ListByWorkspace(ctx context.Context, workspaceID shared.ID) ([]*product.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE workspace_id = $1 ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, workspaceID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var out []*product.Product
	for rows.Next() {
		p, err := r.scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update persists product changes.
func (r *ProductRepository) Update(ctx context.Context, p *product.Product) error {
	query := `
		UPDATE products
		SET criticality = $2, description = $3, tags = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		p.ID().String(),
		string(p.Criticality()),
		p.Description(),
		pq.Array(p.Tags()),
		p.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return product.ErrNotFound
	}
	return nil
}

func (r *ProductRepository) scanProduct(row rowScanner) (*product.Product, error) {
	var (
		idStr, workspaceIDStr, name           string
		productType, criticality, description string
		tags                                  pq.StringArray
		createdAt, updatedAt                  time.Time
	)

	err := row.Scan(&idStr, &workspaceIDStr, &name, &productType, &criticality, &description, &tags, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan product: %w", err)
	}

	id, err := shared.IDFromString(idStr)
	if err != nil {
		return nil, err
	}
	workspaceID, err := shared.IDFromString(workspaceIDStr)
	if err != nil {
		return nil, err
	}

	return product.Reconstitute(
		id, workspaceID, name,
		product.Type(productType),
		product.Criticality(criticality),
		description, tags, createdAt, updatedAt,
	), nil
}

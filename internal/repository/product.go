package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/solentra/storefront/internal/domain/product"
)

const (
	productColumns = `id, name, description, price, image, category, is_featured`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	listFeaturedSQL = `SELECT ` + productColumns + ` FROM products WHERE is_featured ORDER BY created_at DESC`

	listByCategorySQL = `SELECT ` + productColumns + ` FROM products WHERE category = $1 ORDER BY created_at DESC`

	sampleProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY random() LIMIT $1`

	createProductSQL = `INSERT INTO products (id, name, description, price, image, category, is_featured)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	deleteProductSQL = `DELETE FROM products WHERE id = $1
		RETURNING ` + productColumns

	toggleFeaturedSQL = `UPDATE products SET is_featured = NOT is_featured WHERE id = $1
		RETURNING ` + productColumns
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns the full catalog, newest first.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// ListFeatured returns every product with the featured flag set.
func (r *ProductRepository) ListFeatured(ctx context.Context) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listFeaturedSQL)
	if err != nil {
		return nil, fmt.Errorf("listing featured products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// ListByCategory returns products in the given category.
func (r *ProductRepository) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, listByCategorySQL, category)
	if err != nil {
		return nil, fmt.Errorf("listing products in category %q: %w", category, err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Sample returns up to n products chosen uniformly at random.
func (r *ProductRepository) Sample(ctx context.Context, n int) ([]product.Product, error) {
	rows, err := r.pool.Query(ctx, sampleProductsSQL, n)
	if err != nil {
		return nil, fmt.Errorf("sampling products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create persists a new product.
func (r *ProductRepository) Create(ctx context.Context, p *product.Product) error {
	_, err := r.pool.Exec(ctx, createProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Image, p.Category, p.IsFeatured,
	)
	if err != nil {
		return fmt.Errorf("creating product %q: %w", p.ID, err)
	}
	return nil
}

// Delete removes a product and returns the deleted record.
func (r *ProductRepository) Delete(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, deleteProductSQL, id)
	if err != nil {
		return nil, fmt.Errorf("deleting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("deleting product %q: %w", id, err)
	}
	return &p, nil
}

// ToggleFeatured flips the featured flag and returns the updated product.
func (r *ProductRepository) ToggleFeatured(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.pool.Query(ctx, toggleFeaturedSQL, id)
	if err != nil {
		return nil, fmt.Errorf("toggling featured for product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("toggling featured for product %q: %w", id, err)
	}
	return &p, nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var (
		p     product.Product
		price decimal.Decimal
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &price, &p.Image, &p.Category, &p.IsFeatured,
	)
	p.Price = price
	return p, err
}

package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	IsFeatured  bool            `json:"isFeatured"`
}

// Repository defines persistence operations for the product catalog.
// The persistent store is authoritative; the featured-products cache holds a
// denormalized copy of the ListFeatured result only.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	ListFeatured(ctx context.Context) ([]Product, error)
	ListByCategory(ctx context.Context, category string) ([]Product, error)
	// Sample returns up to n products chosen at random.
	Sample(ctx context.Context, n int) ([]Product, error)
	Create(ctx context.Context, p *Product) error
	// Delete removes a product and returns the deleted record so callers can
	// clean up externally hosted assets. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id string) (*Product, error)
	// ToggleFeatured flips the featured flag and returns the updated product.
	ToggleFeatured(ctx context.Context, id string) (*Product, error)
}

package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrDuplicate is returned by Create when an order with the same provider
// order and payment identifiers has already been committed.
var ErrDuplicate = errors.New("order already committed for payment")

// Order is the immutable record of a captured payment.
type Order struct {
	ID                string
	UserID            string
	Items             []LineItem
	TotalAmount       decimal.Decimal
	ProviderOrderID   string
	ProviderPaymentID string
	CreatedAt         time.Time
}

// LineItem is a single purchased position, reconstructed from the client cart
// at confirmation time.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists a new order exactly once. A repeated commit for the
	// same provider identifiers returns ErrDuplicate.
	Create(ctx context.Context, o *Order) error
	// GetByProviderIDs returns the order committed for the given provider
	// order and payment identifiers.
	GetByProviderIDs(ctx context.Context, providerOrderID, providerPaymentID string) (*Order, error)
}

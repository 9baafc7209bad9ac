package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/solentra/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, total_amount, provider_order_id, provider_payment_id)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderByProviderIDsSQL = `SELECT id, user_id, items, total_amount, provider_order_id, provider_payment_id, created_at
		FROM orders WHERE provider_order_id = $1 AND provider_payment_id = $2`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order, items serialized into the JSONB column. The
// unique constraint on provider identifiers turns a replayed confirmation
// into order.ErrDuplicate instead of a second order row.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, o.TotalAmount, o.ProviderOrderID, o.ProviderPaymentID,
	)
	if err != nil {
		if isUniqueViolation(err, "orders_provider_once") {
			return order.ErrDuplicate
		}
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	return nil
}

// GetByProviderIDs returns the order committed for the given provider order
// and payment identifiers.
func (r *OrderRepository) GetByProviderIDs(ctx context.Context, providerOrderID, providerPaymentID string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByProviderIDsSQL, providerOrderID, providerPaymentID)
	if err != nil {
		return nil, fmt.Errorf("getting order for payment %q: %w", providerPaymentID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("no order for payment %q: %w", providerPaymentID, err)
		}
		return nil, fmt.Errorf("getting order for payment %q: %w", providerPaymentID, err)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		itemsJSON []byte
		total     decimal.Decimal
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &total,
		&o.ProviderOrderID, &o.ProviderPaymentID, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	o.TotalAmount = total

	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	return o, nil
}

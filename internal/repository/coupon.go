package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/solentra/storefront/internal/domain/coupon"
)

const (
	couponColumns = `id, code, user_id, discount_percentage, is_active, expiration_date, created_at`

	findActiveCouponSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE code = $1 AND user_id = $2 AND is_active`

	findCouponByUserSQL = `SELECT ` + couponColumns + ` FROM coupons
		WHERE user_id = $1 AND is_active`

	deleteCouponByUserSQL = `DELETE FROM coupons WHERE user_id = $1`

	insertCouponSQL = `INSERT INTO coupons (id, code, user_id, discount_percentage, is_active, expiration_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// Conditional update: only an active row is flipped, so concurrent
	// redemptions of the same coupon cannot both succeed.
	deactivateCouponSQL = `UPDATE coupons SET is_active = FALSE
		WHERE code = $1 AND user_id = $2 AND is_active`
)

var _ coupon.Ledger = (*CouponRepository)(nil)

// CouponRepository implements coupon.Ledger backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool, now: time.Now}
}

// IssueFor replaces any existing coupon for userID with a freshly generated
// one. Delete-then-insert runs in a transaction; the unique constraint on
// user_id backstops the single-coupon-per-user invariant under races.
func (r *CouponRepository) IssueFor(ctx context.Context, userID string) (*coupon.Coupon, error) {
	c := coupon.New(userID, r.now())

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("issuing coupon for user %q: %w", userID, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, deleteCouponByUserSQL, userID); err != nil {
		return nil, fmt.Errorf("deleting prior coupon for user %q: %w", userID, err)
	}

	_, err = tx.Exec(ctx, insertCouponSQL,
		c.ID, c.Code, c.UserID, c.DiscountPercentage, c.IsActive, c.ExpirationDate, c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting coupon for user %q: %w", userID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("issuing coupon for user %q: %w", userID, err)
	}
	return c, nil
}

// Deactivate marks the matching active coupon inactive. Missing or
// already-inactive coupons are a no-op, which makes redemption idempotent.
func (r *CouponRepository) Deactivate(ctx context.Context, code, userID string) error {
	_, err := r.pool.Exec(ctx, deactivateCouponSQL, code, userID)
	if err != nil {
		return fmt.Errorf("deactivating coupon %q: %w", code, err)
	}
	return nil
}

// FindActive returns the active coupon matching code and user. Expiration is
// deliberately not filtered here: expired-but-active coupons stay applicable
// until deactivated.
func (r *CouponRepository) FindActive(ctx context.Context, code, userID string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findActiveCouponSQL, code, userID)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return &c, nil
}

// FindByUser returns the user's current active coupon.
func (r *CouponRepository) FindByUser(ctx context.Context, userID string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByUserSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("finding coupon for user %q: %w", userID, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon for user %q: %w", userID, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.UserID, &c.DiscountPercentage,
		&c.IsActive, &c.ExpirationDate, &c.CreatedAt,
	)
	return c, err
}

// Package checkout orchestrates a single checkout attempt: quote, provider
// order creation, payment confirmation, order commit, and the coupon
// lifecycle around it.
package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/solentra/storefront/internal/domain/coupon"
	"github.com/solentra/storefront/internal/domain/order"
	"github.com/solentra/storefront/internal/pricing"
)

// Currency is the fixed settlement currency. The gateway amount is always in
// its minor unit (paise).
const Currency = "INR"

// Terminal confirmation failures. Neither mutates any state and neither is
// retried.
var (
	ErrSignatureMismatch  = errors.New("invalid payment signature")
	ErrPaymentNotCaptured = errors.New("payment not captured")
)

// UpstreamError wraps a payment provider failure so handlers can map it to a
// 500-class response.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("payment provider %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Session is the result of the create phase: a provider order the client pays
// against, with the cart echoed back for reconciliation.
type Session struct {
	ProviderOrderID string
	AmountPaise     int64
	Currency        string
	Lines           []pricing.CartLine
	CouponCode      string
}

// Result is the outcome of a confirmed checkout.
type Result struct {
	OrderID string
	// AlreadyCommitted is true when this confirmation was a replay of an
	// order that had been committed before.
	AlreadyCommitted bool
}

// Service drives the checkout state machine. All dependencies are injected;
// there is no ambient provider or store client.
type Service struct {
	gateway Gateway
	coupons coupon.Ledger
	orders  order.Repository
	secret  []byte
	now     func() time.Time
	lg      *zap.Logger
	tracer  trace.Tracer
}

// NewService creates a checkout Service. secret is the provider key secret
// used to verify payment confirmation signatures.
func NewService(
	gateway Gateway,
	coupons coupon.Ledger,
	orders order.Repository,
	secret []byte,
	lg *zap.Logger,
) *Service {
	return &Service{
		gateway: gateway,
		coupons: coupons,
		orders:  orders,
		secret:  secret,
		now:     time.Now,
		lg:      lg,
		tracer:  otel.Tracer("storefront/checkout"),
	}
}

// CreateSession quotes the cart and opens a provider order for the computed
// total. Nothing is persisted yet; the order record is only committed once the
// provider confirms capture.
//
// When the discounted total reaches the loyalty threshold, a fresh coupon is
// issued for the user before the session is returned.
func (s *Service) CreateSession(ctx context.Context, userID string, lines []pricing.CartLine, couponCode string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.CreateSession")
	defer span.End()

	// Unknown, foreign, or inactive codes are silently ignored: the quote
	// proceeds undiscounted.
	var applied *coupon.Coupon
	if couponCode != "" {
		c, err := s.coupons.FindActive(ctx, couponCode, userID)
		switch {
		case err == nil:
			applied = c
		case errors.Is(err, coupon.ErrNotFound):
		default:
			return nil, errors.Wrap(err, "lookup coupon")
		}
	}

	quote, err := pricing.Compute(lines, applied)
	if err != nil {
		return nil, err
	}

	receipt := fmt.Sprintf("order_%d", s.now().UnixMilli())
	gwOrder, err := s.gateway.CreateOrder(ctx, quote.TotalPaise, Currency, receipt)
	if err != nil {
		return nil, &UpstreamError{Op: "create order", Err: err}
	}

	if quote.QualifiesForLoyaltyCoupon() {
		if _, err := s.coupons.IssueFor(ctx, userID); err != nil {
			return nil, errors.Wrap(err, "issue loyalty coupon")
		}
		s.lg.Info("loyalty coupon issued",
			zap.String("user_id", userID),
			zap.Int64("total_paise", quote.TotalPaise),
		)
	}

	return &Session{
		ProviderOrderID: gwOrder.ID,
		AmountPaise:     quote.TotalPaise,
		Currency:        Currency,
		Lines:           lines,
		CouponCode:      couponCode,
	}, nil
}

// Confirm completes a checkout after the client has paid with the provider.
//
// The sequence is: verify the confirmation signature, check the provider's
// authoritative payment status, consume the coupon, commit the order. The
// committed total comes from the provider's captured amount, never from the
// client, so a tampered cart cannot change what was charged.
func (s *Service) Confirm(
	ctx context.Context,
	userID string,
	providerOrderID, providerPaymentID, signature string,
	lines []pricing.CartLine,
	couponCode string,
) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.Confirm")
	defer span.End()

	if !verifySignature(s.secret, providerOrderID, providerPaymentID, signature) {
		return nil, ErrSignatureMismatch
	}

	payment, err := s.gateway.FetchPayment(ctx, providerPaymentID)
	if err != nil {
		return nil, &UpstreamError{Op: "fetch payment", Err: err}
	}
	if payment.Status != StatusCaptured {
		return nil, ErrPaymentNotCaptured
	}

	// Consume the coupon with a conditional update: already-inactive or
	// missing coupons are a no-op, so replays and races cannot double-apply.
	if couponCode != "" {
		if err := s.coupons.Deactivate(ctx, couponCode, userID); err != nil {
			return nil, errors.Wrap(err, "deactivate coupon")
		}
	}

	items := make([]order.LineItem, len(lines))
	for i, line := range lines {
		items[i] = order.LineItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
	}

	o := &order.Order{
		ID:                uuid.New().String(),
		UserID:            userID,
		Items:             items,
		TotalAmount:       decimal.NewFromInt(payment.Amount).Div(decimal.NewFromInt(100)),
		ProviderOrderID:   providerOrderID,
		ProviderPaymentID: providerPaymentID,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, order.ErrDuplicate) {
			return s.resolveReplay(ctx, providerOrderID, providerPaymentID)
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.lg.Info("order committed",
		zap.String("order_id", o.ID),
		zap.String("provider_order_id", providerOrderID),
		zap.String("provider_payment_id", providerPaymentID),
	)

	return &Result{OrderID: o.ID}, nil
}

// resolveReplay answers a repeated confirmation with the already-committed
// order, keeping the confirm phase at-most-once per payment.
func (s *Service) resolveReplay(ctx context.Context, providerOrderID, providerPaymentID string) (*Result, error) {
	existing, err := s.orders.GetByProviderIDs(ctx, providerOrderID, providerPaymentID)
	if err != nil {
		return nil, errors.Wrap(err, "load committed order")
	}

	s.lg.Warn("duplicate checkout confirmation",
		zap.String("order_id", existing.ID),
		zap.String("provider_payment_id", providerPaymentID),
	)

	return &Result{OrderID: existing.ID, AlreadyCommitted: true}, nil
}

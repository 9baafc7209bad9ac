package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/solentra/storefront/internal/domain/coupon"
	"github.com/solentra/storefront/internal/domain/order"
	"github.com/solentra/storefront/internal/pricing"
)

// --- Mock implementations ---

type mockGateway struct {
	createdAmount   int64
	createdReceipt  string
	createOrderErr  error
	payment         *GatewayPayment
	fetchPaymentErr error
	fetchedID       string
}

func (m *mockGateway) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*GatewayOrder, error) {
	if m.createOrderErr != nil {
		return nil, m.createOrderErr
	}
	m.createdAmount = amount
	m.createdReceipt = receipt
	return &GatewayOrder{ID: "rzp_order_1", Amount: amount, Currency: currency}, nil
}

func (m *mockGateway) FetchPayment(_ context.Context, paymentID string) (*GatewayPayment, error) {
	m.fetchedID = paymentID
	if m.fetchPaymentErr != nil {
		return nil, m.fetchPaymentErr
	}
	return m.payment, nil
}

type mockLedger struct {
	active          *coupon.Coupon
	findErr         error
	issuedFor       []string
	issueErr        error
	deactivated     []string
	deactivateCalls int
}

func (m *mockLedger) IssueFor(_ context.Context, userID string) (*coupon.Coupon, error) {
	if m.issueErr != nil {
		return nil, m.issueErr
	}
	m.issuedFor = append(m.issuedFor, userID)
	return coupon.New(userID, time.Now()), nil
}

func (m *mockLedger) Deactivate(_ context.Context, code, userID string) error {
	m.deactivateCalls++
	m.deactivated = append(m.deactivated, code+"/"+userID)
	return nil
}

func (m *mockLedger) FindActive(_ context.Context, code, userID string) (*coupon.Coupon, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.active == nil || m.active.Code != code || m.active.UserID != userID {
		return nil, coupon.ErrNotFound
	}
	return m.active, nil
}

func (m *mockLedger) FindByUser(_ context.Context, _ string) (*coupon.Coupon, error) {
	if m.active == nil {
		return nil, coupon.ErrNotFound
	}
	return m.active, nil
}

type mockOrderRepo struct {
	created   []*order.Order
	createErr error
	existing  *order.Order
	getErr    error
}

func (m *mockOrderRepo) Create(_ context.Context, o *order.Order) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, o)
	return nil
}

func (m *mockOrderRepo) GetByProviderIDs(_ context.Context, _, _ string) (*order.Order, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.existing, nil
}

// --- Helpers ---

const testSecret = "test_key_secret"

func newTestService(gw *mockGateway, ledger *mockLedger, orders *mockOrderRepo) *Service {
	return NewService(gw, ledger, orders, []byte(testSecret), zap.NewNop())
}

func cartLine(id, price string, qty int) pricing.CartLine {
	return pricing.CartLine{
		ProductID: id,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func activeCoupon(code, userID string, pct int) *coupon.Coupon {
	return &coupon.Coupon{
		Code:               code,
		UserID:             userID,
		DiscountPercentage: pct,
		IsActive:           true,
		ExpirationDate:     time.Now().Add(24 * time.Hour),
	}
}

// --- CreateSession ---

func TestCreateSession_NoCoupon(t *testing.T) {
	gw := &mockGateway{}
	svc := newTestService(gw, &mockLedger{}, &mockOrderRepo{})

	sess, err := svc.CreateSession(context.Background(), "u1",
		[]pricing.CartLine{cartLine("p1", "50.00", 2)}, "")

	require.NoError(t, err)
	assert.Equal(t, "rzp_order_1", sess.ProviderOrderID)
	assert.Equal(t, int64(10000), sess.AmountPaise)
	assert.Equal(t, "INR", sess.Currency)
	assert.Equal(t, int64(10000), gw.createdAmount)
	assert.Contains(t, gw.createdReceipt, "order_")
}

func TestCreateSession_AppliesUserCoupon(t *testing.T) {
	gw := &mockGateway{}
	ledger := &mockLedger{active: activeCoupon("GIFTAAAAAA", "u1", 10)}
	svc := newTestService(gw, ledger, &mockOrderRepo{})

	sess, err := svc.CreateSession(context.Background(), "u1",
		[]pricing.CartLine{cartLine("p1", "100.00", 2)}, "GIFTAAAAAA")

	require.NoError(t, err)
	assert.Equal(t, int64(18000), sess.AmountPaise)
	assert.Equal(t, "GIFTAAAAAA", sess.CouponCode)
}

func TestCreateSession_UnknownCouponIgnored(t *testing.T) {
	gw := &mockGateway{}
	svc := newTestService(gw, &mockLedger{}, &mockOrderRepo{})

	sess, err := svc.CreateSession(context.Background(), "u1",
		[]pricing.CartLine{cartLine("p1", "100.00", 2)}, "NOSUCHCODE")

	require.NoError(t, err)
	assert.Equal(t, int64(20000), sess.AmountPaise)
}

// A coupon belonging to another user must not discount this user's quote.
func TestCreateSession_ForeignCouponIgnored(t *testing.T) {
	gw := &mockGateway{}
	ledger := &mockLedger{active: activeCoupon("GIFTAAAAAA", "other", 10)}
	svc := newTestService(gw, ledger, &mockOrderRepo{})

	sess, err := svc.CreateSession(context.Background(), "u1",
		[]pricing.CartLine{cartLine("p1", "100.00", 2)}, "GIFTAAAAAA")

	require.NoError(t, err)
	assert.Equal(t, int64(20000), sess.AmountPaise)
}

func TestCreateSession_EmptyCart(t *testing.T) {
	svc := newTestService(&mockGateway{}, &mockLedger{}, &mockOrderRepo{})

	_, err := svc.CreateSession(context.Background(), "u1", nil, "")
	require.ErrorIs(t, err, pricing.ErrEmptyCart)
}

func TestCreateSession_GatewayFailure(t *testing.T) {
	gw := &mockGateway{createOrderErr: errors.New("provider down")}
	ledger := &mockLedger{}
	svc := newTestService(gw, ledger, &mockOrderRepo{})

	_, err := svc.CreateSession(context.Background(), "u1",
		[]pricing.CartLine{cartLine("p1", "300.00", 1)}, "")

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
	// No loyalty coupon on a failed session.
	assert.Empty(t, ledger.issuedFor)
}

func TestCreateSession_IssuesLoyaltyCouponAtThreshold(t *testing.T) {
	ledger := &mockLedger{}
	svc := newTestService(&mockGateway{}, ledger, &mockOrderRepo{})

	_, err := svc.CreateSession(context.Background(), "u1",
		[]pricing.CartLine{cartLine("p1", "200.00", 1)}, "")

	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ledger.issuedFor)
}

func TestCreateSession_NoLoyaltyCouponBelowThreshold(t *testing.T) {
	ledger := &mockLedger{}
	svc := newTestService(&mockGateway{}, ledger, &mockOrderRepo{})

	_, err := svc.CreateSession(context.Background(), "u1",
		[]pricing.CartLine{cartLine("p1", "199.99", 1)}, "")

	require.NoError(t, err)
	assert.Empty(t, ledger.issuedFor)
}

// --- Confirm ---

func capturedPayment(amountPaise int64) *GatewayPayment {
	return &GatewayPayment{
		ID:       "pay_1",
		Status:   StatusCaptured,
		Amount:   amountPaise,
		Currency: "INR",
	}
}

func TestConfirm_Success(t *testing.T) {
	gw := &mockGateway{payment: capturedPayment(18000)}
	ledger := &mockLedger{}
	orders := &mockOrderRepo{}
	svc := newTestService(gw, ledger, orders)

	lines := []pricing.CartLine{cartLine("p1", "100.00", 2)}
	sig := Sign([]byte(testSecret), "rzp_order_1", "pay_1")

	res, err := svc.Confirm(context.Background(), "u1", "rzp_order_1", "pay_1", sig, lines, "GIFTAAAAAA")

	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderID)
	assert.False(t, res.AlreadyCommitted)

	require.Len(t, orders.created, 1)
	o := orders.created[0]
	assert.Equal(t, "u1", o.UserID)
	assert.Equal(t, "rzp_order_1", o.ProviderOrderID)
	assert.Equal(t, "pay_1", o.ProviderPaymentID)
	// Total comes from the provider's captured amount, in major units.
	assert.True(t, decimal.RequireFromString("180").Equal(o.TotalAmount))
	require.Len(t, o.Items, 1)
	assert.Equal(t, "p1", o.Items[0].ProductID)

	assert.Equal(t, []string{"GIFTAAAAAA/u1"}, ledger.deactivated)
}

func TestConfirm_TamperedSignature(t *testing.T) {
	gw := &mockGateway{payment: capturedPayment(18000)}
	ledger := &mockLedger{}
	orders := &mockOrderRepo{}
	svc := newTestService(gw, ledger, orders)

	_, err := svc.Confirm(context.Background(), "u1", "rzp_order_1", "pay_1",
		"deadbeef", []pricing.CartLine{cartLine("p1", "100.00", 2)}, "GIFTAAAAAA")

	require.ErrorIs(t, err, ErrSignatureMismatch)
	assert.Empty(t, orders.created)
	assert.Zero(t, ledger.deactivateCalls)
	// Provider must not even be queried for an unverified confirmation.
	assert.Empty(t, gw.fetchedID)
}

func TestConfirm_PaymentNotCaptured(t *testing.T) {
	gw := &mockGateway{payment: &GatewayPayment{ID: "pay_1", Status: "authorized", Amount: 18000}}
	ledger := &mockLedger{}
	orders := &mockOrderRepo{}
	svc := newTestService(gw, ledger, orders)

	sig := Sign([]byte(testSecret), "rzp_order_1", "pay_1")
	_, err := svc.Confirm(context.Background(), "u1", "rzp_order_1", "pay_1", sig,
		[]pricing.CartLine{cartLine("p1", "100.00", 2)}, "GIFTAAAAAA")

	require.ErrorIs(t, err, ErrPaymentNotCaptured)
	assert.Empty(t, orders.created)
	assert.Zero(t, ledger.deactivateCalls)
}

func TestConfirm_NoCouponSkipsDeactivation(t *testing.T) {
	gw := &mockGateway{payment: capturedPayment(20000)}
	ledger := &mockLedger{}
	svc := newTestService(gw, ledger, &mockOrderRepo{})

	sig := Sign([]byte(testSecret), "rzp_order_1", "pay_1")
	_, err := svc.Confirm(context.Background(), "u1", "rzp_order_1", "pay_1", sig,
		[]pricing.CartLine{cartLine("p1", "100.00", 2)}, "")

	require.NoError(t, err)
	assert.Zero(t, ledger.deactivateCalls)
}

func TestConfirm_ReplayReturnsCommittedOrder(t *testing.T) {
	gw := &mockGateway{payment: capturedPayment(20000)}
	orders := &mockOrderRepo{
		createErr: order.ErrDuplicate,
		existing:  &order.Order{ID: "existing-order"},
	}
	svc := newTestService(gw, &mockLedger{}, orders)

	sig := Sign([]byte(testSecret), "rzp_order_1", "pay_1")
	res, err := svc.Confirm(context.Background(), "u1", "rzp_order_1", "pay_1", sig,
		[]pricing.CartLine{cartLine("p1", "100.00", 2)}, "")

	require.NoError(t, err)
	assert.Equal(t, "existing-order", res.OrderID)
	assert.True(t, res.AlreadyCommitted)
}

func TestConfirm_GatewayFetchFailure(t *testing.T) {
	gw := &mockGateway{fetchPaymentErr: errors.New("timeout")}
	svc := newTestService(gw, &mockLedger{}, &mockOrderRepo{})

	sig := Sign([]byte(testSecret), "rzp_order_1", "pay_1")
	_, err := svc.Confirm(context.Background(), "u1", "rzp_order_1", "pay_1", sig,
		[]pricing.CartLine{cartLine("p1", "100.00", 2)}, "")

	var upErr *UpstreamError
	require.ErrorAs(t, err, &upErr)
}

func TestSign_MatchesKnownVector(t *testing.T) {
	// HMAC-SHA256("order_a|pay_b", "secret"), independently computed.
	got := Sign([]byte("secret"), "order_a", "pay_b")
	assert.Len(t, got, 64)
	assert.Equal(t, got, Sign([]byte("secret"), "order_a", "pay_b"))
	assert.NotEqual(t, got, Sign([]byte("other"), "order_a", "pay_b"))
}

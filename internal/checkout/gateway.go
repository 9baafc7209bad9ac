package checkout

import "context"

// GatewayOrder is a provider-side checkout session created before payment
// capture.
type GatewayOrder struct {
	ID       string
	Amount   int64 // minor units
	Currency string
}

// GatewayPayment is the provider's authoritative view of a payment.
type GatewayPayment struct {
	ID       string
	Status   string
	Amount   int64 // minor units actually charged
	Currency string
}

// StatusCaptured is the provider payment status for a settled payment.
const StatusCaptured = "captured"

// Gateway abstracts the payment provider. Calls are blocking round-trips; no
// retry wraps them — a fresh receipt is required before re-creating an order.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*GatewayOrder, error)
	FetchPayment(ctx context.Context, paymentID string) (*GatewayPayment, error)
}

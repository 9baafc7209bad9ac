// Package razorpay adapts the Razorpay SDK to the checkout.Gateway interface.
package razorpay

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	razorpay "github.com/razorpay/razorpay-go"

	"github.com/solentra/storefront/internal/checkout"
)

var _ checkout.Gateway = (*Client)(nil)

// Client wraps the Razorpay REST SDK. The SDK performs blocking HTTP
// round-trips with its own default timeouts; no retry is layered on top.
type Client struct {
	rzp *razorpay.Client
}

// New creates a Client authenticated with the given key id and secret.
func New(keyID, keySecret string) *Client {
	return &Client{rzp: razorpay.NewClient(keyID, keySecret)}
}

// CreateOrder opens a Razorpay order for the given minor-unit amount with
// automatic payment capture.
func (c *Client) CreateOrder(_ context.Context, amount int64, currency, receipt string) (*checkout.GatewayOrder, error) {
	body, err := c.rzp.Order.Create(map[string]interface{}{
		"amount":          amount,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "razorpay order create")
	}

	id, _ := body["id"].(string)
	if id == "" {
		return nil, errors.New("razorpay order create: response missing id")
	}

	return &checkout.GatewayOrder{
		ID:       id,
		Amount:   minorUnits(body["amount"]),
		Currency: currency,
	}, nil
}

// FetchPayment returns Razorpay's authoritative view of a payment.
func (c *Client) FetchPayment(_ context.Context, paymentID string) (*checkout.GatewayPayment, error) {
	body, err := c.rzp.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "razorpay payment fetch")
	}

	status, _ := body["status"].(string)
	currency, _ := body["currency"].(string)

	return &checkout.GatewayPayment{
		ID:       paymentID,
		Status:   status,
		Amount:   minorUnits(body["amount"]),
		Currency: currency,
	}, nil
}

// minorUnits extracts an integer minor-unit amount from a decoded JSON value.
func minorUnits(v interface{}) int64 {
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

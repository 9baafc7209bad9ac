package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/solentra/storefront/internal/pricing"
)

// cartLineJSON is the wire form of a client cart line. Prices are in major
// currency units.
type cartLineJSON struct {
	ID       string          `json:"id"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func toCartLines(items []cartLineJSON) []pricing.CartLine {
	lines := make([]pricing.CartLine, len(items))
	for i, item := range items {
		lines[i] = pricing.CartLine{
			ProductID: item.ID,
			UnitPrice: item.Price,
			Quantity:  item.Quantity,
		}
	}
	return lines
}

type createSessionRequest struct {
	Products   []cartLineJSON `json:"products"`
	CouponCode string         `json:"couponCode"`
}

type createSessionResponse struct {
	OrderID    string         `json:"orderId"`
	Amount     int64          `json:"amount"`
	Currency   string         `json:"currency"`
	Products   []cartLineJSON `json:"products"`
	CouponCode *string        `json:"couponCode"`
}

func (h *Handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Products) == 0 {
		respondError(w, http.StatusBadRequest, "Invalid or empty products array")
		return
	}

	user := PrincipalFromContext(r.Context())
	sess, err := h.checkout.CreateSession(r.Context(), user.UserID, toCartLines(req.Products), req.CouponCode)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	var couponCode *string
	if sess.CouponCode != "" {
		couponCode = &sess.CouponCode
	}

	respondJSON(w, http.StatusOK, createSessionResponse{
		OrderID:    sess.ProviderOrderID,
		Amount:     sess.AmountPaise,
		Currency:   sess.Currency,
		Products:   req.Products,
		CouponCode: couponCode,
	})
}

type checkoutSuccessRequest struct {
	RazorpayOrderID   string         `json:"razorpay_order_id"`
	RazorpayPaymentID string         `json:"razorpay_payment_id"`
	RazorpaySignature string         `json:"razorpay_signature"`
	Products          []cartLineJSON `json:"products"`
	CouponCode        string         `json:"couponCode"`
}

type checkoutSuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	OrderID string `json:"orderId"`
}

func (h *Handler) checkoutSuccess(w http.ResponseWriter, r *http.Request) {
	var req checkoutSuccessRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user := PrincipalFromContext(r.Context())
	res, err := h.checkout.Confirm(
		r.Context(),
		user.UserID,
		req.RazorpayOrderID,
		req.RazorpayPaymentID,
		req.RazorpaySignature,
		toCartLines(req.Products),
		req.CouponCode,
	)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	message := "Payment successful, order created, and coupon deactivated if used."
	if res.AlreadyCommitted {
		message = "Payment already processed for this order."
	}

	respondJSON(w, http.StatusOK, checkoutSuccessResponse{
		Success: true,
		Message: message,
		OrderID: res.OrderID,
	})
}

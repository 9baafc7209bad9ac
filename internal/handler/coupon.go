package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/solentra/storefront/internal/domain/coupon"
)

// getCoupon returns the caller's current active coupon, or JSON null when the
// user has none.
func (h *Handler) getCoupon(w http.ResponseWriter, r *http.Request) {
	user := PrincipalFromContext(r.Context())

	c, err := h.coupons.FindByUser(r.Context(), user.UserID)
	if errors.Is(err, coupon.ErrNotFound) {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

type validateCouponRequest struct {
	Code string `json:"code"`
}

// validateCoupon checks a code for the calling user. Validation is the one
// place expiry is enforced: an expired coupon is deactivated here and reported
// as expired.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	var req validateCouponRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Code == "" {
		respondError(w, http.StatusBadRequest, "code is required")
		return
	}

	user := PrincipalFromContext(r.Context())

	c, err := h.coupons.FindActive(r.Context(), req.Code, user.UserID)
	if errors.Is(err, coupon.ErrNotFound) {
		respondError(w, http.StatusNotFound, "Coupon not found")
		return
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if time.Now().After(c.ExpirationDate) {
		if err := h.coupons.Deactivate(r.Context(), c.Code, user.UserID); err != nil {
			zctx.From(r.Context()).Warn("deactivating expired coupon failed",
				zap.String("code", c.Code),
				zap.Error(err),
			)
		}
		respondError(w, http.StatusNotFound, "Coupon expired")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":            "Coupon is valid",
		"code":               c.Code,
		"discountPercentage": c.DiscountPercentage,
	})
}

package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/solentra/storefront/internal/checkout"
	"github.com/solentra/storefront/internal/domain/product"
	"github.com/solentra/storefront/internal/pricing"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]any{
		"code":    status,
		"message": message,
	})
}

// respondDomainError maps domain errors to HTTP responses per the service
// error taxonomy: validation 400, terminal payment failures 400, missing
// resources 404, everything else 500 with the underlying message.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var lineErr *pricing.InvalidLineError
	switch {
	case errors.Is(err, pricing.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "Invalid or empty products array")
	case errors.As(err, &lineErr):
		respondError(w, http.StatusBadRequest, lineErr.Error())
	case errors.Is(err, checkout.ErrSignatureMismatch):
		respondError(w, http.StatusBadRequest, "Invalid payment signature")
	case errors.Is(err, checkout.ErrPaymentNotCaptured):
		respondError(w, http.StatusBadRequest, "Payment not captured")
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusNotFound, "Product not found")
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// Package handler exposes the storefront HTTP API over chi.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/solentra/storefront/internal/cache"
	"github.com/solentra/storefront/internal/checkout"
	"github.com/solentra/storefront/internal/domain/auth"
	"github.com/solentra/storefront/internal/domain/coupon"
	"github.com/solentra/storefront/internal/domain/product"
	"github.com/solentra/storefront/internal/imagehost"
)

// recommendationCount is how many random products the recommendations
// endpoint returns.
const recommendationCount = 4

// Handler carries the injected domain dependencies for all routes.
type Handler struct {
	products product.Repository
	featured *cache.FeaturedCache
	checkout *checkout.Service
	coupons  coupon.Ledger
	images   imagehost.Uploader
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Repository,
	featured *cache.FeaturedCache,
	checkoutSvc *checkout.Service,
	coupons coupon.Ledger,
	images imagehost.Uploader,
) *Handler {
	return &Handler{
		products: products,
		featured: featured,
		checkout: checkoutSvc,
		coupons:  coupons,
		images:   images,
	}
}

// Routes registers every API route on r. sec guards authenticated and admin
// surfaces.
func (h *Handler) Routes(r chi.Router, sec *Security) {
	r.Route("/payments", func(r chi.Router) {
		r.Use(sec.Authenticate)
		r.Post("/create-checkout-session", h.createCheckoutSession)
		r.Post("/checkout-success", h.checkoutSuccess)
	})

	r.Route("/coupons", func(r chi.Router) {
		r.Use(sec.Authenticate)
		r.Get("/", h.getCoupon)
		r.Post("/validate", h.validateCoupon)
	})

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.listProducts)
		r.Get("/featured", h.getFeaturedProducts)
		r.Get("/recommendations", h.getRecommendations)
		r.Get("/category/{category}", h.listByCategory)

		r.Group(func(r chi.Router) {
			r.Use(sec.Authenticate, sec.RequireScope(auth.ScopeAdmin))
			r.Post("/", h.createProduct)
			r.Delete("/{id}", h.deleteProduct)
			r.Patch("/{id}/toggle-featured", h.toggleFeatured)
		})
	})
}

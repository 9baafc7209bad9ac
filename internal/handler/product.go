package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/solentra/storefront/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

// getFeaturedProducts serves the cache-backed featured subset. The cache layer
// guarantees a store-sourced answer even when the cache is down.
func (h *Handler) getFeaturedProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.featured.GetFeatured(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) getRecommendations(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.Sample(r.Context(), recommendationCount)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (h *Handler) listByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	products, err := h.products.ListByCategory(r.Context(), category)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"products": products})
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	IsFeatured  bool            `json:"isFeatured"`
	// Image is a ready-to-use URL; ImageData is base64 content to upload to
	// the external image host. ImageData wins when both are set.
	Image     string `json:"image"`
	ImageData string `json:"imageData"`
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.Price.IsNegative() {
		respondError(w, http.StatusBadRequest, "name and a non-negative price are required")
		return
	}

	imageURL := req.Image
	if req.ImageData != "" {
		uploaded, err := h.images.Upload(r.Context(), req.Name, req.ImageData)
		if err != nil {
			respondDomainError(w, r, err)
			return
		}
		imageURL = uploaded
	}

	p := &product.Product{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Image:       imageURL,
		Category:    req.Category,
		IsFeatured:  req.IsFeatured,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		respondDomainError(w, r, err)
		return
	}

	if p.IsFeatured {
		if err := h.featured.Refresh(r.Context()); err != nil {
			zctx.From(r.Context()).Warn("featured cache refresh failed", zap.Error(err))
		}
	}

	respondJSON(w, http.StatusCreated, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deleted, err := h.products.Delete(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	// Image removal is best-effort: the product row is already gone.
	if deleted.Image != "" {
		if err := h.images.Delete(r.Context(), deleted.Image); err != nil {
			zctx.From(r.Context()).Warn("image host delete failed",
				zap.String("product_id", id),
				zap.Error(err),
			)
		}
	}

	if deleted.IsFeatured {
		if err := h.featured.Refresh(r.Context()); err != nil {
			zctx.From(r.Context()).Warn("featured cache refresh failed", zap.Error(err))
		}
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *Handler) toggleFeatured(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	updated, err := h.products.ToggleFeatured(r.Context(), id)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	if err := h.featured.Refresh(r.Context()); err != nil {
		zctx.From(r.Context()).Warn("featured cache refresh failed", zap.Error(err))
	}

	respondJSON(w, http.StatusOK, updated)
}

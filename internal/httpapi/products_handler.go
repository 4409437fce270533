package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/adashop/storefront/internal/catalog"
)

type ProductsHandler struct {
	catalog catalog.Repository
	timeout time.Duration
}

func NewProductsHandler(cat catalog.Repository, timeout time.Duration) *ProductsHandler {
	return &ProductsHandler{catalog: cat, timeout: timeout}
}

// GET /api/v1/products
func (h *ProductsHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	products, err := h.catalog.ListActive(ctx)
	if err != nil {
		log.Printf("list products failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to list products")
		return
	}
	if products == nil {
		products = []*catalog.Product{}
	}

	respondJSON(w, http.StatusOK, products)
}

// GET /api/v1/products/{product_id}
func (h *ProductsHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productID := chi.URLParam(r, "product_id")
	if productID == "" {
		respondError(w, http.StatusBadRequest, "missing_product_id", "product_id is required")
		return
	}

	p, err := h.catalog.GetProduct(ctx, productID)
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "product_not_found", "product not found")
		} else {
			log.Printf("get product %s failed: %v", productID, err)
			respondError(w, http.StatusInternalServerError, "internal_error", "failed to load product")
		}
		return
	}

	respondJSON(w, http.StatusOK, p)
}

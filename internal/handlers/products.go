package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/biovolt/marketplace-api/internal/repositories"
)

// ProductHandler serves public catalog reads.
type ProductHandler struct {
	products repositories.ProductRepository
}

// NewProductHandler constructs the handler.
func NewProductHandler(products repositories.ProductRepository) *ProductHandler {
	return &ProductHandler{products: products}
}

// Register mounts the catalog routes.
func (h *ProductHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Get("/products/{productID}", h.get)
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"products": out})
}

func (h *ProductHandler) get(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")

	product, err := h.products.FindByID(r.Context(), productID)
	if err != nil {
		if repositories.IsNotFound(err) {
			writeNotFound(r.Context(), w, "product not found")
			return
		}
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toProductResponse(product))
}

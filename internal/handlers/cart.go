package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/platform/auth"
	"github.com/biovolt/marketplace-api/internal/services"
)

// CartHandler serves cart operations for authenticated users and anonymous
// session-token shoppers alike.
type CartHandler struct {
	carts services.CartService
}

// NewCartHandler constructs the handler.
func NewCartHandler(carts services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

// Register mounts the cart routes.
func (h *CartHandler) Register(r chi.Router) {
	r.Get("/cart", h.get)
	r.Post("/cart/items", h.addItem)
	r.Patch("/cart/items/{itemID}", h.updateItem)
	r.Delete("/cart/items/{itemID}", h.removeItem)
}

func cartOwner(r *http.Request) services.CartOwner {
	if identity, ok := auth.IdentityFromContext(r.Context()); ok {
		return services.CartOwner{UserID: identity.UserID}
	}
	return services.CartOwner{SessionToken: auth.SessionToken(r)}
}

// respondCart echoes the session token in a header so anonymous clients can
// persist it after the first touch.
func (h *CartHandler) respondCart(w http.ResponseWriter, r *http.Request, cart domain.Cart, status int) {
	if cart.SessionToken != "" {
		w.Header().Set(auth.SessionTokenHeader, cart.SessionToken)
	}
	writeJSON(r.Context(), w, status, toCartResponse(cart))
}

func (h *CartHandler) get(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.GetOrCreate(r.Context(), cartOwner(r))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	h.respondCart(w, r, cart, http.StatusOK)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(r.Context(), w, "malformed request body")
		return
	}
	if req.ProductID == "" {
		writeBadRequest(r.Context(), w, "product_id is required")
		return
	}

	cart, err := h.carts.AddItem(r.Context(), cartOwner(r), services.AddItemInput{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	h.respondCart(w, r, cart, http.StatusCreated)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *CartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(r.Context(), w, "malformed request body")
		return
	}

	cart, err := h.carts.UpdateItemQuantity(r.Context(), cartOwner(r), chi.URLParam(r, "itemID"), req.Quantity)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	h.respondCart(w, r, cart, http.StatusOK)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.carts.RemoveItem(r.Context(), cartOwner(r), chi.URLParam(r, "itemID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	h.respondCart(w, r, cart, http.StatusOK)
}

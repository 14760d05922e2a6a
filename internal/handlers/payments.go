package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/platform/auth"
	"github.com/biovolt/marketplace-api/internal/platform/httpx"
	"github.com/biovolt/marketplace-api/internal/services"
)

// PaymentHandler bridges the cart to the hosted checkout.
type PaymentHandler struct {
	checkout services.CheckoutService
}

// NewPaymentHandler constructs the handler.
func NewPaymentHandler(checkout services.CheckoutService) *PaymentHandler {
	return &PaymentHandler{checkout: checkout}
}

// Register mounts the payment routes.
func (h *PaymentHandler) Register(r chi.Router) {
	r.Post("/payments/create-checkout-session", h.createSession)
	r.Get("/payments/session-status/{sessionID}", h.sessionStatus)
}

type createSessionRequest struct {
	Email           string          `json:"email,omitempty"`
	ShippingAddress domain.Address  `json:"shipping_address"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty"`
	// SuccessURL and CancelURL override the configured redirect targets
	// for this session only.
	SuccessURL string `json:"successUrl,omitempty"`
	CancelURL  string `json:"cancelUrl,omitempty"`
	// Items are advisory display data from the client. Pricing always
	// comes from the caller's server-side cart.
	Items []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"items,omitempty"`
}

func (h *PaymentHandler) createSession(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	var req createSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(r.Context(), w, "malformed request body")
		return
	}
	email := req.Email
	if email == "" {
		email = identity.Email
	}

	session, err := h.checkout.CreateSession(r.Context(), services.CheckoutInput{
		CreateOrderInput: services.CreateOrderInput{
			UserID:          identity.UserID,
			Email:           email,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
		},
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"id":       session.SessionID,
		"url":      session.URL,
		"order_id": session.OrderID,
	})
}

func (h *PaymentHandler) sessionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.checkout.SessionStatus(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{
		"id":             status.ID,
		"status":         status.Status,
		"payment_status": status.PaymentStatus,
		"customer_email": status.CustomerEmail,
	})
}

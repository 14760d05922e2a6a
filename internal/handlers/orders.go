package handlers

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/platform/auth"
	"github.com/biovolt/marketplace-api/internal/platform/httpx"
	"github.com/biovolt/marketplace-api/internal/services"
)

// OrderHandler serves the order lifecycle endpoints. All routes require
// authentication; the status transition route additionally requires the
// admin role at the router.
type OrderHandler struct {
	orders   services.OrderService
	invoices services.InvoiceService
}

// NewOrderHandler constructs the handler.
func NewOrderHandler(orders services.OrderService, invoices services.InvoiceService) *OrderHandler {
	return &OrderHandler{orders: orders, invoices: invoices}
}

// Register mounts the order routes.
func (h *OrderHandler) Register(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders", h.list)
	r.Get("/orders/{orderID}", h.get)
	r.Post("/orders/{orderID}/cancel", h.cancel)
	r.Get("/orders/{orderID}/invoice", h.invoice)
}

// RegisterAdmin mounts admin-only order routes.
func (h *OrderHandler) RegisterAdmin(r chi.Router) {
	r.Patch("/orders/{orderID}/status", h.updateStatus)
}

type createOrderRequest struct {
	Email           string          `json:"email,omitempty"`
	ShippingAddress domain.Address  `json:"shipping_address"`
	BillingAddress  *domain.Address `json:"billing_address,omitempty"`
	// PaymentMethod is accepted for client bookkeeping; it plays no part
	// in pricing or payment state.
	PaymentMethod string `json:"payment_method,omitempty"`
}

func (h *OrderHandler) create(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthorized", "authentication required", http.StatusUnauthorized))
		return
	}

	var req createOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(r.Context(), w, "malformed request body")
		return
	}
	email := req.Email
	if email == "" {
		email = identity.Email
	}

	order, err := h.orders.CreateFromCart(r.Context(), services.CreateOrderInput{
		UserID:          identity.UserID,
		Email:           email,
		ShippingAddress: req.ShippingAddress,
		BillingAddress:  req.BillingAddress,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusCreated, map[string]any{
		"order_id": order.ID,
		"order":    toOrderResponse(order),
	})
}

func (h *OrderHandler) list(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	orders, err := h.orders.ListForUser(r.Context(), identity.UserID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]any{"orders": out})
}

// loadOwned fetches the order and enforces visibility: the owner and admins
// see it, everyone else gets 404 rather than 403 so order ids do not leak.
func (h *OrderHandler) loadOwned(w http.ResponseWriter, r *http.Request) (domain.Order, bool) {
	identity, _ := auth.IdentityFromContext(r.Context())
	orderID := chi.URLParam(r, "orderID")

	order, err := h.orders.Get(r.Context(), orderID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return domain.Order{}, false
	}
	if order.UserID != identity.UserID && !identity.IsAdmin() {
		writeNotFound(r.Context(), w, "order not found")
		return domain.Order{}, false
	}
	return order, true
}

func (h *OrderHandler) get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOwned(w, r)
	if !ok {
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toOrderResponse(order))
}

func (h *OrderHandler) cancel(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	cancelled, err := h.orders.Cancel(r.Context(), order.ID)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toOrderResponse(cancelled))
}

func (h *OrderHandler) invoice(w http.ResponseWriter, r *http.Request) {
	order, ok := h.loadOwned(w, r)
	if !ok {
		return
	}

	pdf, err := h.invoices.Render(order)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, order.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

var settableStatuses = map[domain.OrderStatus]bool{
	domain.OrderStatusProcessing: true,
	domain.OrderStatusShipped:    true,
	domain.OrderStatusDelivered:  true,
	domain.OrderStatusCancelled:  true,
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBadRequest(r.Context(), w, "malformed request body")
		return
	}

	next := domain.OrderStatus(req.Status)
	if !settableStatuses[next] {
		writeBadRequest(r.Context(), w, "unknown status "+req.Status)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), next)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, toOrderResponse(order))
}

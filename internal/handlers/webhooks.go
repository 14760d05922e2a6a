package handlers

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/payments"
	"github.com/biovolt/marketplace-api/internal/platform/httpx"
	"github.com/biovolt/marketplace-api/internal/platform/requestctx"
	"github.com/biovolt/marketplace-api/internal/services"
)

// Stripe signs the exact raw bytes; the route must see the body unparsed.
const maxWebhookBytes = 64 << 10

// WebhookHandler receives provider callbacks.
type WebhookHandler struct {
	provider payments.Provider
	webhooks services.WebhookService
}

// NewWebhookHandler constructs the handler.
func NewWebhookHandler(provider payments.Provider, webhooks services.WebhookService) *WebhookHandler {
	return &WebhookHandler{provider: provider, webhooks: webhooks}
}

// Register mounts the webhook route.
func (h *WebhookHandler) Register(r chi.Router) {
	r.Post("/webhooks/stripe", h.stripe)
}

func (h *WebhookHandler) stripe(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_payload", "could not read payload", http.StatusBadRequest))
		return
	}

	event, err := h.provider.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		requestctx.Logger(r.Context()).Warn("webhook rejected", zap.Error(err))
		writeServiceError(r.Context(), w, err)
		return
	}

	if err := h.webhooks.ProcessEvent(r.Context(), event); err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeJSON(r.Context(), w, http.StatusOK, map[string]bool{"received": true})
}

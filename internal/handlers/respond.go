package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/payments"
	"github.com/biovolt/marketplace-api/internal/platform/httpx"
	"github.com/biovolt/marketplace-api/internal/platform/requestctx"
	"github.com/biovolt/marketplace-api/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		requestctx.Logger(ctx).Error("encode response", zap.Error(err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode request body: %w", err)
	}
	return nil
}

// writeServiceError maps service sentinels onto the HTTP error taxonomy.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCartEmpty):
		httpx.WriteError(ctx, w, httpx.NewError("cart_empty", "cart is empty", http.StatusBadRequest))
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrInvalidQuantity):
		httpx.WriteError(ctx, w, httpx.NewError("validation", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrVariantNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("validation", "unknown product variant", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderInvalidState),
		errors.Is(err, services.ErrInvalidTransition):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_state", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrProductNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "product not found", http.StatusNotFound))
	case errors.Is(err, services.ErrCartItemNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "cart item not found", http.StatusNotFound))
	case errors.Is(err, services.ErrInsufficientStock):
		httpx.WriteError(ctx, w, httpx.NewError("insufficient_stock", "insufficient stock for one or more items", http.StatusConflict))
	case errors.Is(err, payments.ErrSignatureVerification):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_signature", "webhook signature verification failed", http.StatusBadRequest))
	default:
		requestctx.Logger(ctx).Error("unhandled service error", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("internal", "internal server error", http.StatusInternalServerError))
	}
}

func writeBadRequest(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("validation", message, http.StatusBadRequest))
}

func writeNotFound(ctx context.Context, w http.ResponseWriter, message string) {
	httpx.WriteError(ctx, w, httpx.NewError("not_found", message, http.StatusNotFound))
}

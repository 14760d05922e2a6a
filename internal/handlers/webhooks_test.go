package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/biovolt/marketplace-api/internal/payments"
)

type stubProvider struct {
	event     payments.Event
	verifyErr error

	gotPayload   []byte
	gotSignature string
}

func (s *stubProvider) CreateCheckoutSession(context.Context, payments.CreateSessionInput) (payments.Session, error) {
	return payments.Session{}, nil
}

func (s *stubProvider) GetSessionStatus(context.Context, string) (payments.SessionStatus, error) {
	return payments.SessionStatus{}, nil
}

func (s *stubProvider) VerifyWebhook(payload []byte, signature string) (payments.Event, error) {
	s.gotPayload = payload
	s.gotSignature = signature
	return s.event, s.verifyErr
}

type stubWebhookService struct {
	got payments.Event
	err error
}

func (s *stubWebhookService) ProcessEvent(_ context.Context, event payments.Event) error {
	s.got = event
	return s.err
}

func webhookTestRouter(provider *stubProvider, svc *stubWebhookService) chi.Router {
	r := chi.NewRouter()
	NewWebhookHandler(provider, svc).Register(r)
	return r
}

func TestStripeWebhook(t *testing.T) {
	provider := &stubProvider{
		event: payments.Event{ID: "evt_1", Type: payments.EventTypeCheckoutCompleted, OrderID: "ord_1"},
	}
	svc := &stubWebhookService{}
	router := webhookTestRouter(provider, svc)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{"id":"evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"received":true`) {
		t.Errorf("body = %s", rec.Body.String())
	}
	if string(provider.gotPayload) != `{"id":"evt_1"}` {
		t.Errorf("raw payload altered: %s", provider.gotPayload)
	}
	if provider.gotSignature != "t=1,v1=abc" {
		t.Errorf("signature = %q", provider.gotSignature)
	}
	if svc.got.OrderID != "ord_1" {
		t.Errorf("service received %+v", svc.got)
	}
}

func TestStripeWebhookBadSignature(t *testing.T) {
	provider := &stubProvider{verifyErr: payments.ErrSignatureVerification}
	svc := &stubWebhookService{}
	router := webhookTestRouter(provider, svc)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
	if svc.got.ID != "" {
		t.Error("service must not be called on signature failure")
	}
}

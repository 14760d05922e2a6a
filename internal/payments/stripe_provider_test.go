package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/stripe/stripe-go/v78"
)

type stubSessionAPI struct {
	newParams *stripe.CheckoutSessionParams
	newResult *stripe.CheckoutSession
	newErr    error

	getID     string
	getResult *stripe.CheckoutSession
	getErr    error
}

func (s *stubSessionAPI) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.newParams = params
	return s.newResult, s.newErr
}

func (s *stubSessionAPI) Get(id string, _ *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	s.getID = id
	return s.getResult, s.getErr
}

func TestCreateCheckoutSession(t *testing.T) {
	stub := &stubSessionAPI{
		newResult: &stripe.CheckoutSession{ID: "cs_test_1", URL: "https://checkout.stripe.test/cs_test_1"},
	}
	p := &StripeProvider{sessions: stub, successURL: "https://shop.test/ok", cancelURL: "https://shop.test/back"}

	got, err := p.CreateCheckoutSession(context.Background(), CreateSessionInput{
		OrderID:       "ord_1",
		CustomerEmail: "buyer@example.com",
		LineItems: []LineItem{
			{Name: "Methane Digester", UnitAmount: 1000, Quantity: 2},
			{Name: "Turbine", Description: "5kW", UnitAmount: 3000, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if got.ID != "cs_test_1" || got.URL == "" {
		t.Errorf("session = %+v", got)
	}

	params := stub.newParams
	if params.Metadata["order_id"] != "ord_1" {
		t.Errorf("metadata order_id = %q", params.Metadata["order_id"])
	}
	if len(params.LineItems) != 2 {
		t.Fatalf("line items = %d, want 2", len(params.LineItems))
	}
	first := params.LineItems[0]
	if *first.PriceData.UnitAmount != 1000 || *first.Quantity != 2 {
		t.Errorf("first line = amount %d qty %d", *first.PriceData.UnitAmount, *first.Quantity)
	}
	if *first.PriceData.Currency != "usd" {
		t.Errorf("currency = %q", *first.PriceData.Currency)
	}
}

func TestCreateCheckoutSessionRedirectURLs(t *testing.T) {
	t.Run("request overrides win", func(t *testing.T) {
		stub := &stubSessionAPI{newResult: &stripe.CheckoutSession{ID: "cs_1"}}
		p := &StripeProvider{sessions: stub, successURL: "https://shop.test/ok", cancelURL: "https://shop.test/back"}

		_, err := p.CreateCheckoutSession(context.Background(), CreateSessionInput{
			OrderID:    "ord_1",
			SuccessURL: "https://shop.example/thanks",
			CancelURL:  "https://shop.example/cart",
		})
		if err != nil {
			t.Fatalf("create session: %v", err)
		}
		if *stub.newParams.SuccessURL != "https://shop.example/thanks" {
			t.Errorf("success url = %q", *stub.newParams.SuccessURL)
		}
		if *stub.newParams.CancelURL != "https://shop.example/cart" {
			t.Errorf("cancel url = %q", *stub.newParams.CancelURL)
		}
	})

	t.Run("configured defaults when absent", func(t *testing.T) {
		stub := &stubSessionAPI{newResult: &stripe.CheckoutSession{ID: "cs_1"}}
		p := &StripeProvider{sessions: stub, successURL: "https://shop.test/ok", cancelURL: "https://shop.test/back"}

		if _, err := p.CreateCheckoutSession(context.Background(), CreateSessionInput{OrderID: "ord_1"}); err != nil {
			t.Fatalf("create session: %v", err)
		}
		if *stub.newParams.SuccessURL != "https://shop.test/ok" {
			t.Errorf("success url = %q", *stub.newParams.SuccessURL)
		}
		if *stub.newParams.CancelURL != "https://shop.test/back" {
			t.Errorf("cancel url = %q", *stub.newParams.CancelURL)
		}
	})
}

func TestCreateCheckoutSessionError(t *testing.T) {
	stub := &stubSessionAPI{newErr: errors.New("stripe down")}
	p := &StripeProvider{sessions: stub}

	if _, err := p.CreateCheckoutSession(context.Background(), CreateSessionInput{OrderID: "ord_1"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetSessionStatus(t *testing.T) {
	stub := &stubSessionAPI{
		getResult: &stripe.CheckoutSession{
			ID:            "cs_test_2",
			Status:        stripe.CheckoutSessionStatusComplete,
			PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
			CustomerDetails: &stripe.CheckoutSessionCustomerDetails{
				Email: "buyer@example.com",
			},
		},
	}
	p := &StripeProvider{sessions: stub}

	status, err := p.GetSessionStatus(context.Background(), "cs_test_2")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	if stub.getID != "cs_test_2" {
		t.Errorf("requested id = %q", stub.getID)
	}
	if status.Status != "complete" || status.PaymentStatus != "paid" {
		t.Errorf("status = %+v", status)
	}
	if status.CustomerEmail != "buyer@example.com" {
		t.Errorf("email = %q", status.CustomerEmail)
	}
}

func TestVerifyWebhookWithoutSecret(t *testing.T) {
	// No configured secret means no way to authenticate deliveries, so
	// verification fails closed instead of trusting the payload.
	p := &StripeProvider{}

	payload := []byte(`{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_test_3", "metadata": {"order_id": "ord_9"}}}
	}`)

	_, err := p.VerifyWebhook(payload, "")
	if !errors.Is(err, ErrSignatureVerification) {
		t.Errorf("error = %v, want signature verification failure", err)
	}
}

func TestVerifyWebhookBadSignature(t *testing.T) {
	p := &StripeProvider{webhookSecret: "whsec_test"}

	_, err := p.VerifyWebhook([]byte(`{"id":"evt_1"}`), "t=1,v1=deadbeef")
	if !errors.Is(err, ErrSignatureVerification) {
		t.Errorf("error = %v, want signature verification failure", err)
	}
}

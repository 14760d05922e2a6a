package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/biovolt/marketplace-api/internal/platform/config"
)

// sessionAPI is the slice of the Stripe checkout session client the provider
// needs. Tests substitute a stub.
type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	Get(id string, params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeProvider implements Provider against the Stripe API.
type StripeProvider struct {
	sessions      sessionAPI
	webhookSecret string
	successURL    string
	cancelURL     string
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider builds a provider from the Stripe configuration.
func NewStripeProvider(cfg config.StripeConfig) *StripeProvider {
	backend := stripe.GetBackend(stripe.APIBackend)
	return &StripeProvider{
		sessions:      &session.Client{B: backend, Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, in CreateSessionInput) (Session, error) {
	successURL := in.SuccessURL
	if successURL == "" {
		successURL = p.successURL
	}
	cancelURL := in.CancelURL
	if cancelURL == "" {
		cancelURL = p.cancelURL
	}
	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(cancelURL),
	}
	params.Context = ctx
	if in.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(in.CustomerEmail)
	}
	params.AddMetadata("order_id", in.OrderID)

	for _, item := range in.LineItems {
		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(item.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(string(stripe.CurrencyUSD)),
				UnitAmount:  stripe.Int64(item.UnitAmount),
				ProductData: productData,
			},
		})
	}

	s, err := p.sessions.New(params)
	if err != nil {
		return Session{}, fmt.Errorf("create checkout session: %w", err)
	}
	return Session{ID: s.ID, URL: s.URL}, nil
}

func (p *StripeProvider) GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := p.sessions.Get(sessionID, params)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("get checkout session %s: %w", sessionID, err)
	}

	status := SessionStatus{
		ID:            s.ID,
		Status:        string(s.Status),
		PaymentStatus: string(s.PaymentStatus),
	}
	if s.CustomerDetails != nil {
		status.CustomerEmail = s.CustomerDetails.Email
	}
	return status, nil
}

// VerifyWebhook checks the Stripe-Signature header against the raw payload.
// A missing webhook secret fails closed: every delivery is rejected rather
// than accepted unverified.
func (p *StripeProvider) VerifyWebhook(payload []byte, signature string) (Event, error) {
	if p.webhookSecret == "" {
		return Event{}, fmt.Errorf("%w: webhook secret not configured", ErrSignatureVerification)
	}
	event, err := webhook.ConstructEvent(payload, signature, p.webhookSecret)
	if err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrSignatureVerification, err)
	}

	out := Event{ID: event.ID, Type: string(event.Type)}
	if out.Type == EventTypeCheckoutCompleted {
		var s stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
			return Event{}, fmt.Errorf("decode checkout session payload: %w", err)
		}
		out.SessionID = s.ID
		out.OrderID = s.Metadata["order_id"]
	}
	return out, nil
}

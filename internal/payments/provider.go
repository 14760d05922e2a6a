package payments

import (
	"context"
	"errors"
)

// ErrSignatureVerification marks a webhook payload that failed signature
// checks. Handlers map it to 400 without touching any state.
var ErrSignatureVerification = errors.New("webhook signature verification failed")

// LineItem is one display line for the hosted checkout page. UnitAmount is in
// integer minor units.
type LineItem struct {
	Name        string
	Description string
	UnitAmount  int64
	Quantity    int64
}

// CreateSessionInput carries everything needed to open a checkout session.
type CreateSessionInput struct {
	OrderID       string
	CustomerEmail string
	LineItems     []LineItem
	SuccessURL    string
	CancelURL     string
}

// Session is the provider's handle for a newly created checkout session.
type Session struct {
	ID  string
	URL string
}

// SessionStatus is a read-only view of an existing session.
type SessionStatus struct {
	ID            string
	Status        string
	PaymentStatus string
	CustomerEmail string
}

// Event is a verified webhook event reduced to what the reconciler needs.
// OrderID and SessionID are populated for checkout completion events.
type Event struct {
	ID        string
	Type      string
	OrderID   string
	SessionID string
}

// EventTypeCheckoutCompleted is the only event type the reconciler acts on.
const EventTypeCheckoutCompleted = "checkout.session.completed"

// Provider abstracts the payment backend so services and handlers can be
// tested without network calls.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, in CreateSessionInput) (Session, error)
	GetSessionStatus(ctx context.Context, sessionID string) (SessionStatus, error)
	VerifyWebhook(payload []byte, signature string) (Event, error)
}

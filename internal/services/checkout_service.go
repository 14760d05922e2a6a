package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/payments"
	"github.com/biovolt/marketplace-api/internal/platform/requestctx"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

// CheckoutSession is the bridge result returned to the client.
type CheckoutSession struct {
	OrderID   string
	SessionID string
	URL       string
}

// CheckoutInput extends the order draft with optional client redirect
// targets. Empty URLs fall back to the configured defaults at the provider.
type CheckoutInput struct {
	CreateOrderInput
	SuccessURL string
	CancelURL  string
}

// CheckoutService drafts an order and opens a hosted payment session for it.
type CheckoutService interface {
	CreateSession(ctx context.Context, in CheckoutInput) (CheckoutSession, error)
	SessionStatus(ctx context.Context, sessionID string) (payments.SessionStatus, error)
}

// CheckoutServiceDeps bundles the collaborators for NewCheckoutService.
type CheckoutServiceDeps struct {
	Orders    OrderService
	OrderRepo repositories.OrderRepository
	Provider  payments.Provider
}

type checkoutService struct {
	orders    OrderService
	orderRepo repositories.OrderRepository
	provider  payments.Provider
}

// NewCheckoutService constructs the checkout bridge.
func NewCheckoutService(deps CheckoutServiceDeps) CheckoutService {
	return &checkoutService{
		orders:    deps.Orders,
		orderRepo: deps.OrderRepo,
		provider:  deps.Provider,
	}
}

// CreateSession assembles a draft order with payment_status pending, then
// opens the provider session. Line items reuse the order's captured prices;
// conversion to minor units happens here and nowhere else. A provider failure
// leaves the draft order in place.
func (s *checkoutService) CreateSession(ctx context.Context, in CheckoutInput) (CheckoutSession, error) {
	in.PaymentStatus = domain.PaymentStatusPending

	order, err := s.orders.CreateFromCart(ctx, in.CreateOrderInput)
	if err != nil {
		return CheckoutSession{}, err
	}

	lineItems := make([]payments.LineItem, 0, len(order.Items))
	for _, item := range order.Items {
		line := payments.LineItem{
			Name:       item.ProductName,
			UnitAmount: domain.MinorUnits(item.PriceAtPurchase),
			Quantity:   int64(item.Quantity),
		}
		if item.SelectedVariant != nil {
			line.Description = item.SelectedVariant.Name
		}
		lineItems = append(lineItems, line)
	}

	session, err := s.provider.CreateCheckoutSession(ctx, payments.CreateSessionInput{
		OrderID:       order.ID,
		CustomerEmail: order.Email,
		LineItems:     lineItems,
		SuccessURL:    in.SuccessURL,
		CancelURL:     in.CancelURL,
	})
	if err != nil {
		requestctx.Logger(ctx).Error("checkout session creation failed, draft order preserved",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
		return CheckoutSession{}, fmt.Errorf("create payment session: %w", err)
	}

	if err := s.orderRepo.SetCheckoutSession(ctx, order.ID, session.ID); err != nil {
		requestctx.Logger(ctx).Error("failed to persist session id on order",
			zap.String("order_id", order.ID),
			zap.String("session_id", session.ID),
			zap.Error(err),
		)
		return CheckoutSession{}, fmt.Errorf("attach session to order: %w", err)
	}

	return CheckoutSession{OrderID: order.ID, SessionID: session.ID, URL: session.URL}, nil
}

func (s *checkoutService) SessionStatus(ctx context.Context, sessionID string) (payments.SessionStatus, error) {
	status, err := s.provider.GetSessionStatus(ctx, sessionID)
	if err != nil {
		return payments.SessionStatus{}, fmt.Errorf("session status: %w", err)
	}
	return status, nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/payments"
	"github.com/biovolt/marketplace-api/internal/platform/mail"
	pg "github.com/biovolt/marketplace-api/internal/platform/postgres"
	"github.com/biovolt/marketplace-api/internal/platform/requestctx"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

// WebhookService reconciles verified provider events onto orders.
type WebhookService interface {
	ProcessEvent(ctx context.Context, event payments.Event) error
}

// WebhookServiceDeps bundles the collaborators for NewWebhookService.
type WebhookServiceDeps struct {
	Orders     repositories.OrderRepository
	Events     repositories.ProcessedEventRepository
	UnitOfWork pg.UnitOfWork
	Mailer     mail.Mailer
	Clock      func() time.Time
}

type webhookService struct {
	orders repositories.OrderRepository
	events repositories.ProcessedEventRepository
	uow    pg.UnitOfWork
	mailer mail.Mailer
	clock  func() time.Time
}

// NewWebhookService constructs the reconciler.
func NewWebhookService(deps WebhookServiceDeps) WebhookService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	return &webhookService{
		orders: deps.Orders,
		events: deps.Events,
		uow:    deps.UnitOfWork,
		mailer: deps.Mailer,
		clock:  clock,
	}
}

// ProcessEvent is idempotent at two layers: the processed-event record and
// the payment-status guard on the order update. Redeliveries and events for
// unknown orders are acknowledged without state changes so the provider
// stops retrying.
func (s *webhookService) ProcessEvent(ctx context.Context, event payments.Event) error {
	logger := requestctx.Logger(ctx).With(
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)

	if event.Type != payments.EventTypeCheckoutCompleted {
		logger.Debug("ignoring unhandled event type")
		return nil
	}
	if event.OrderID == "" {
		logger.Warn("checkout completion without order metadata")
		return nil
	}

	var updated bool
	err := s.uow.RunInTx(ctx, func(ctx context.Context) error {
		first, err := s.events.MarkProcessed(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("record event: %w", err)
		}
		if !first {
			logger.Info("event already processed, skipping")
			return nil
		}
		updated, err = s.orders.MarkPaid(ctx, event.OrderID, s.clock())
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if !updated {
		return nil
	}

	logger.Info("order marked paid", zap.String("order_id", event.OrderID))
	s.sendConfirmation(ctx, event.OrderID, logger)
	return nil
}

// sendConfirmation is best effort. The order is paid either way.
func (s *webhookService) sendConfirmation(ctx context.Context, orderID string, logger *zap.Logger) {
	if s.mailer == nil {
		return
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		logger.Warn("could not load order for confirmation email", zap.Error(err))
		return
	}
	if order.Email == "" {
		return
	}
	if err := s.mailer.Send(ctx, order.Email, "Your BioVolt order "+order.ID, confirmationBody(order)); err != nil {
		logger.Warn("confirmation email failed", zap.Error(err))
	}
}

func confirmationBody(order domain.Order) string {
	body := "<h1>Thanks for your order</h1>"
	body += fmt.Sprintf("<p>Order <strong>%s</strong> is confirmed and now processing.</p><ul>", order.ID)
	for _, item := range order.Items {
		name := item.ProductName
		if item.SelectedVariant != nil && item.SelectedVariant.Name != "" {
			name += " (" + item.SelectedVariant.Name + ")"
		}
		body += fmt.Sprintf("<li>%d &times; %s &mdash; $%.2f</li>", item.Quantity, name, item.PriceAtPurchase)
	}
	body += fmt.Sprintf("</ul><p>Total: <strong>$%.2f</strong></p>", order.TotalAmount)
	return body
}

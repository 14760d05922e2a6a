package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/domain"
	pg "github.com/biovolt/marketplace-api/internal/platform/postgres"
	"github.com/biovolt/marketplace-api/internal/platform/requestctx"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

// statusTransitions is the fulfillment state machine. Absence means the
// transition is rejected.
var statusTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusShipped},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
}

// CanTransition reports whether the fulfillment status may move from one
// state to the next.
func CanTransition(from, to domain.OrderStatus) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// CreateOrderInput carries the checkout request. BillingAddress defaults to
// the shipping address when nil. PaymentStatus is unpaid for direct orders
// and pending when a checkout session will follow.
type CreateOrderInput struct {
	UserID          string
	Email           string
	ShippingAddress domain.Address
	BillingAddress  *domain.Address
	PaymentStatus   domain.PaymentStatus
}

// OrderService owns the order lifecycle.
type OrderService interface {
	// CreateFromCart snapshots the caller's cart and assembles the order,
	// its lines, the stock decrements, and the cart clear in one
	// transaction.
	CreateFromCart(ctx context.Context, in CreateOrderInput) (domain.Order, error)
	Get(ctx context.Context, orderID string) (domain.Order, error)
	ListForUser(ctx context.Context, userID string) ([]domain.Order, error)
	Cancel(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus) (domain.Order, error)
}

// OrderServiceDeps bundles the collaborators for NewOrderService.
type OrderServiceDeps struct {
	Carts      CartService
	CartRepo   repositories.CartRepository
	Products   repositories.ProductRepository
	Orders     repositories.OrderRepository
	UnitOfWork pg.UnitOfWork
	Clock      func() time.Time
	NewID      func(prefix string) string
}

type orderService struct {
	carts    CartService
	cartRepo repositories.CartRepository
	products repositories.ProductRepository
	orders   repositories.OrderRepository
	uow      pg.UnitOfWork
	clock    func() time.Time
	newID    func(prefix string) string
}

// NewOrderService constructs the order service.
func NewOrderService(deps OrderServiceDeps) OrderService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	newID := deps.NewID
	if newID == nil {
		newID = NewID
	}
	return &orderService{
		carts:    deps.Carts,
		cartRepo: deps.CartRepo,
		products: deps.Products,
		orders:   deps.Orders,
		uow:      deps.UnitOfWork,
		clock:    clock,
		newID:    newID,
	}
}

func (s *orderService) CreateFromCart(ctx context.Context, in CreateOrderInput) (domain.Order, error) {
	if err := validateOrderInput(in); err != nil {
		return domain.Order{}, err
	}

	cart, err := s.carts.Snapshot(ctx, CartOwner{UserID: in.UserID})
	if err != nil {
		return domain.Order{}, err
	}

	items := make([]domain.OrderItem, 0, len(cart.Items))
	type deduction struct {
		productID string
		variantID string
		quantity  int
	}
	deductions := make([]deduction, 0, len(cart.Items))

	for _, line := range cart.Items {
		product, err := s.products.FindByID(ctx, line.ProductID)
		if err != nil {
			if repositories.IsNotFound(err) {
				return domain.Order{}, fmt.Errorf("%w: %s", ErrProductNotFound, line.ProductID)
			}
			return domain.Order{}, fmt.Errorf("load product %s: %w", line.ProductID, err)
		}

		unitPrice := domain.ResolveUnitPrice(product.Price, line.SelectedVariant)
		items = append(items, domain.OrderItem{
			ID:              s.newID("oli"),
			ProductID:       product.ID,
			ProductName:     product.Name,
			Quantity:        line.Quantity,
			PriceAtPurchase: unitPrice,
			SelectedVariant: line.SelectedVariant,
		})

		d := deduction{productID: product.ID, quantity: line.Quantity}
		if line.SelectedVariant != nil {
			d.variantID = line.SelectedVariant.ID
		}
		deductions = append(deductions, d)
	}

	now := s.clock()
	billing := in.ShippingAddress
	if in.BillingAddress != nil {
		billing = *in.BillingAddress
	}
	paymentStatus := in.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = domain.PaymentStatusUnpaid
	}

	order := domain.Order{
		ID:              s.newID("ord"),
		UserID:          in.UserID,
		Email:           in.Email,
		Status:          domain.OrderStatusPending,
		PaymentStatus:   paymentStatus,
		TotalAmount:     domain.OrderTotal(items),
		ShippingAddress: in.ShippingAddress,
		BillingAddress:  billing,
		Items:           items,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}

	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.orders.Insert(ctx, order); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for _, d := range deductions {
			var err error
			if d.variantID != "" {
				err = s.products.DeductVariantStock(ctx, d.variantID, d.quantity)
			} else {
				err = s.products.DeductStock(ctx, d.productID, d.quantity)
			}
			if err != nil {
				if repositories.IsConflict(err) {
					return fmt.Errorf("%w: product %s", ErrInsufficientStock, d.productID)
				}
				return fmt.Errorf("deduct stock: %w", err)
			}
		}
		if err := s.cartRepo.Clear(ctx, cart.ID); err != nil {
			return fmt.Errorf("clear cart: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	requestctx.Logger(ctx).Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.Float64("total_amount", order.TotalAmount),
		zap.Int("lines", len(order.Items)),
	)
	return order, nil
}

func (s *orderService) Get(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return domain.Order{}, fmt.Errorf("find order: %w", err)
	}
	return order, nil
}

func (s *orderService) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *orderService) Cancel(ctx context.Context, orderID string) (domain.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if order.Status != domain.OrderStatusPending {
		return domain.Order{}, fmt.Errorf("%w: cannot cancel %s order", ErrOrderInvalidState, order.Status)
	}

	now := s.clock()
	err = s.uow.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.orders.MarkCancelled(ctx, orderID, now); err != nil {
			if repositories.IsConflict(err) {
				return fmt.Errorf("%w: order is no longer pending", ErrOrderInvalidState)
			}
			return fmt.Errorf("cancel order: %w", err)
		}
		for _, item := range order.Items {
			var err error
			if item.SelectedVariant != nil {
				err = s.products.RestoreVariantStock(ctx, item.SelectedVariant.ID, item.Quantity)
			} else {
				err = s.products.RestoreStock(ctx, item.ProductID, item.Quantity)
			}
			if err != nil {
				return fmt.Errorf("restore stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}

	requestctx.Logger(ctx).Info("order cancelled",
		zap.String("order_id", orderID),
		zap.Int("lines_restored", len(order.Items)),
	)

	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &now
	order.UpdatedAt = now
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus) (domain.Order, error) {
	order, err := s.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if next == domain.OrderStatusCancelled {
		return s.Cancel(ctx, orderID)
	}
	if !CanTransition(order.Status, next) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, next)
	}
	if err := s.orders.UpdateStatus(ctx, orderID, order.Status, next); err != nil {
		if repositories.IsConflict(err) {
			return domain.Order{}, fmt.Errorf("%w: order is no longer %s", ErrInvalidTransition, order.Status)
		}
		return domain.Order{}, fmt.Errorf("update status: %w", err)
	}
	order.Status = next
	order.UpdatedAt = s.clock()
	return order, nil
}

func validateOrderInput(in CreateOrderInput) error {
	var missing []string
	if strings.TrimSpace(in.UserID) == "" {
		missing = append(missing, "user id")
	}
	if strings.TrimSpace(in.Email) == "" {
		missing = append(missing, "email")
	}
	addr := in.ShippingAddress
	if addr.Line1 == "" || addr.City == "" || addr.PostalCode == "" || addr.Country == "" {
		missing = append(missing, "shipping address")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}

package repositories

import (
	"context"
	"time"

	"github.com/biovolt/marketplace-api/internal/domain"
)

// ProductRepository provides catalog reads and stock adjustments. Stock
// mutations participate in the caller's ambient transaction when one is
// present in the context.
type ProductRepository interface {
	List(ctx context.Context, category string) ([]domain.Product, error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)

	// DeductStock conditionally decrements base stock. It fails with a
	// conflict error when remaining stock is below quantity, leaving the
	// row untouched.
	DeductStock(ctx context.Context, productID string, quantity int) error
	DeductVariantStock(ctx context.Context, variantID string, quantity int) error

	// RestoreStock adds quantity back unconditionally.
	RestoreStock(ctx context.Context, productID string, quantity int) error
	RestoreVariantStock(ctx context.Context, variantID string, quantity int) error
}

// CartRepository manages carts owned by a user id or an anonymous session
// token, never both.
type CartRepository interface {
	FindByUser(ctx context.Context, userID string) (domain.Cart, error)
	FindBySessionToken(ctx context.Context, token string) (domain.Cart, error)
	Create(ctx context.Context, cart domain.Cart) error

	// UpsertItem inserts a line or, when the (cart, product, variant)
	// combination exists, increments its quantity.
	UpsertItem(ctx context.Context, item domain.CartItem) error
	UpdateItemQuantity(ctx context.Context, cartID, itemID string, quantity int) error
	DeleteItem(ctx context.Context, cartID, itemID string) error
	Clear(ctx context.Context, cartID string) error
}

// OrderRepository persists orders and their immutable lines.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	SetCheckoutSession(ctx context.Context, orderID, sessionID string) error

	// MarkPaid flips payment_status to paid and status to processing,
	// guarded so an already-paid order is not touched. Returns false when
	// the guard suppressed the update.
	MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error)
	MarkCancelled(ctx context.Context, orderID string, cancelledAt time.Time) error

	// UpdateStatus moves the fulfillment status from one state to the
	// next. It fails with a conflict error when the stored status no
	// longer matches from, so concurrent updates cannot skip states.
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus) error
}

// ProcessedEventRepository records provider event ids for webhook
// idempotency.
type ProcessedEventRepository interface {
	// MarkProcessed records the event id. Returns false when the id was
	// already recorded, signalling a redelivery.
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

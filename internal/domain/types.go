package domain

import "time"

// OrderStatus tracks fulfillment progress for an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// PaymentStatus tracks the payment lifecycle independently of fulfillment.
type PaymentStatus string

const (
	PaymentStatusUnpaid  PaymentStatus = "unpaid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// VariantSelection is the immutable snapshot of a chosen product variant
// embedded on cart and order lines. Price, when set, overrides the product's
// base price.
type VariantSelection struct {
	ID    string   `json:"id"`
	Name  string   `json:"name,omitempty"`
	Price *float64 `json:"price,omitempty"`
}

// ProductVariant is a priced/stocked sub-option of a product with its own
// stock counter.
type ProductVariant struct {
	ID            string
	ProductID     string
	Name          string
	Price         *float64
	StockQuantity int
}

// Product is the canonical catalog entity.
type Product struct {
	ID                string
	Name              string
	Description       string
	Category          string
	Price             float64
	StockQuantity     int
	LowStockThreshold int
	ImageURL          string
	Variants          []ProductVariant
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// LowStock reports whether the product's base stock has fallen to or below
// its threshold.
func (p Product) LowStock() bool {
	return p.LowStockThreshold > 0 && p.StockQuantity <= p.LowStockThreshold
}

// Variant looks up a variant by id.
func (p Product) Variant(variantID string) (ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.ID == variantID {
			return v, true
		}
	}
	return ProductVariant{}, false
}

// CartItem is one line in a cart. Uniqueness is (cart, product, variant
// selection); re-adding an existing combination increments Quantity.
type CartItem struct {
	ID              string
	CartID          string
	ProductID       string
	Quantity        int
	SelectedVariant *VariantSelection
	AddedAt         time.Time
	UpdatedAt       time.Time
}

// Cart belongs to exactly one identity: an authenticated user or an
// anonymous session token, never both.
type Cart struct {
	ID           string
	UserID       string
	SessionToken string
	Items        []CartItem
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Address is copied onto orders at creation time; later edits to a stored
// address must not alter historical orders.
type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	Region     string `json:"region,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// OrderItem is an immutable snapshot of one purchased product. PriceAtPurchase
// is the authoritative financial record, independent of later catalog changes.
type OrderItem struct {
	ID              string
	OrderID         string
	ProductID       string
	ProductName     string
	Quantity        int
	PriceAtPurchase float64
	SelectedVariant *VariantSelection
}

// Order is the durable record of a checkout attempt. Never deleted;
// cancellation is a status transition.
type Order struct {
	ID                string
	UserID            string
	Email             string
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	TotalAmount       float64
	ShippingAddress   Address
	BillingAddress    Address
	CheckoutSessionID *string
	Items             []OrderItem
	CreatedAt         time.Time
	UpdatedAt         time.Time
	PaidAt            *time.Time
	CancelledAt       *time.Time
}

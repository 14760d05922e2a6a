package services

import (
	"context"
	"time"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

// Fixed clock and deterministic ids keep assertions stable.
var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testClock() time.Time { return testTime }

func testIDGen() func(prefix string) string {
	counters := map[string]int{}
	return func(prefix string) string {
		counters[prefix]++
		return prefixedID(prefix, counters[prefix])
	}
}

func prefixedID(prefix string, n int) string {
	return prefix + "_" + string(rune('0'+n))
}

type fakeCartRepo struct {
	carts map[string]*domain.Cart
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[string]*domain.Cart{}}
}

func (f *fakeCartRepo) FindByUser(_ context.Context, userID string) (domain.Cart, error) {
	for _, c := range f.carts {
		if c.UserID == userID && userID != "" {
			return *c, nil
		}
	}
	return domain.Cart{}, repositories.NewNotFound("cart", nil)
}

func (f *fakeCartRepo) FindBySessionToken(_ context.Context, token string) (domain.Cart, error) {
	for _, c := range f.carts {
		if c.SessionToken == token && token != "" {
			return *c, nil
		}
	}
	return domain.Cart{}, repositories.NewNotFound("cart", nil)
}

func (f *fakeCartRepo) Create(_ context.Context, cart domain.Cart) error {
	copied := cart
	f.carts[cart.ID] = &copied
	return nil
}

func (f *fakeCartRepo) UpsertItem(_ context.Context, item domain.CartItem) error {
	cart := f.carts[item.CartID]
	for i, existing := range cart.Items {
		if existing.ProductID == item.ProductID && variantKey(existing.SelectedVariant) == variantKey(item.SelectedVariant) {
			cart.Items[i].Quantity += item.Quantity
			return nil
		}
	}
	cart.Items = append(cart.Items, item)
	return nil
}

func variantKey(v *domain.VariantSelection) string {
	if v == nil {
		return ""
	}
	return v.ID
}

func (f *fakeCartRepo) UpdateItemQuantity(_ context.Context, cartID, itemID string, quantity int) error {
	cart, ok := f.carts[cartID]
	if !ok {
		return repositories.NewNotFound("cart", nil)
	}
	for i, item := range cart.Items {
		if item.ID == itemID {
			cart.Items[i].Quantity = quantity
			return nil
		}
	}
	return repositories.NewNotFound("cart item", nil)
}

func (f *fakeCartRepo) DeleteItem(_ context.Context, cartID, itemID string) error {
	cart, ok := f.carts[cartID]
	if !ok {
		return repositories.NewNotFound("cart", nil)
	}
	for i, item := range cart.Items {
		if item.ID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
	}
	return repositories.NewNotFound("cart item", nil)
}

func (f *fakeCartRepo) Clear(_ context.Context, cartID string) error {
	if cart, ok := f.carts[cartID]; ok {
		cart.Items = nil
	}
	return nil
}

type fakeProductRepo struct {
	products     map[string]domain.Product
	variantStock map[string]int
}

func newFakeProductRepo(products ...domain.Product) *fakeProductRepo {
	f := &fakeProductRepo{products: map[string]domain.Product{}, variantStock: map[string]int{}}
	for _, p := range products {
		f.products[p.ID] = p
		for _, v := range p.Variants {
			f.variantStock[v.ID] = v.StockQuantity
		}
	}
	return f
}

func (f *fakeProductRepo) List(_ context.Context, _ string) ([]domain.Product, error) {
	var out []domain.Product
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProductRepo) FindByID(_ context.Context, id string) (domain.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return domain.Product{}, repositories.NewNotFound("product", nil)
	}
	return p, nil
}

func (f *fakeProductRepo) DeductStock(_ context.Context, id string, qty int) error {
	p, ok := f.products[id]
	if !ok || p.StockQuantity < qty {
		return repositories.NewConflict("insufficient stock", nil)
	}
	p.StockQuantity -= qty
	f.products[id] = p
	return nil
}

func (f *fakeProductRepo) DeductVariantStock(_ context.Context, id string, qty int) error {
	stock, ok := f.variantStock[id]
	if !ok || stock < qty {
		return repositories.NewConflict("insufficient stock", nil)
	}
	f.variantStock[id] = stock - qty
	return nil
}

func (f *fakeProductRepo) RestoreStock(_ context.Context, id string, qty int) error {
	p := f.products[id]
	p.StockQuantity += qty
	f.products[id] = p
	return nil
}

func (f *fakeProductRepo) RestoreVariantStock(_ context.Context, id string, qty int) error {
	f.variantStock[id] += qty
	return nil
}

type fakeOrderRepo struct {
	orders map[string]*domain.Order
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]*domain.Order{}}
}

func (f *fakeOrderRepo) Insert(_ context.Context, order domain.Order) error {
	copied := order
	f.orders[order.ID] = &copied
	return nil
}

func (f *fakeOrderRepo) FindByID(_ context.Context, id string) (domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return domain.Order{}, repositories.NewNotFound("order", nil)
	}
	return *order, nil
}

func (f *fakeOrderRepo) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) SetCheckoutSession(_ context.Context, orderID, sessionID string) error {
	order, ok := f.orders[orderID]
	if !ok {
		return repositories.NewNotFound("order", nil)
	}
	order.CheckoutSessionID = &sessionID
	return nil
}

func (f *fakeOrderRepo) MarkPaid(_ context.Context, orderID string, paidAt time.Time) (bool, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return false, nil
	}
	if order.PaymentStatus == domain.PaymentStatusPaid || order.Status == domain.OrderStatusCancelled {
		return false, nil
	}
	order.PaymentStatus = domain.PaymentStatusPaid
	order.Status = domain.OrderStatusProcessing
	order.PaidAt = &paidAt
	return true, nil
}

func (f *fakeOrderRepo) MarkCancelled(_ context.Context, orderID string, cancelledAt time.Time) error {
	order, ok := f.orders[orderID]
	if !ok {
		return repositories.NewNotFound("order", nil)
	}
	if order.Status != domain.OrderStatusPending {
		return repositories.NewConflict("not pending", nil)
	}
	order.Status = domain.OrderStatusCancelled
	order.CancelledAt = &cancelledAt
	return nil
}

func (f *fakeOrderRepo) UpdateStatus(_ context.Context, orderID string, from, to domain.OrderStatus) error {
	order, ok := f.orders[orderID]
	if !ok {
		return repositories.NewNotFound("order", nil)
	}
	if order.Status != from {
		return repositories.NewConflict("status changed", nil)
	}
	order.Status = to
	return nil
}

type fakeEventRepo struct {
	seen map[string]bool
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{seen: map[string]bool{}}
}

func (f *fakeEventRepo) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	if f.seen[eventID] {
		return false, nil
	}
	f.seen[eventID] = true
	return true, nil
}

// passthroughUoW runs the unit directly; the fakes have no transactional
// rollback, so tests assert on returned errors rather than restored state.
type passthroughUoW struct {
	failures int
}

func (u *passthroughUoW) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		u.failures++
		return err
	}
	return nil
}

type fakeMailer struct {
	sent []string
}

func (f *fakeMailer) Send(_ context.Context, to, _, _ string) error {
	f.sent = append(f.sent, to)
	return nil
}

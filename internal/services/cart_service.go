package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/biovolt/marketplace-api/internal/domain"
	"github.com/biovolt/marketplace-api/internal/repositories"
)

// CartOwner identifies who a cart belongs to. Exactly one of UserID or
// SessionToken is set for an existing cart; both empty means a brand-new
// anonymous shopper.
type CartOwner struct {
	UserID       string
	SessionToken string
}

// AddItemInput is the request to add a product line to a cart.
type AddItemInput struct {
	ProductID string
	VariantID string
	Quantity  int
}

// CartService manages shopping carts and produces the checkout snapshot.
type CartService interface {
	GetOrCreate(ctx context.Context, owner CartOwner) (domain.Cart, error)
	AddItem(ctx context.Context, owner CartOwner, in AddItemInput) (domain.Cart, error)
	UpdateItemQuantity(ctx context.Context, owner CartOwner, itemID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, owner CartOwner, itemID string) (domain.Cart, error)

	// Snapshot returns the cart for checkout, failing with ErrCartEmpty
	// when it has no lines.
	Snapshot(ctx context.Context, owner CartOwner) (domain.Cart, error)
}

// CartServiceDeps bundles the collaborators for NewCartService.
type CartServiceDeps struct {
	Carts    repositories.CartRepository
	Products repositories.ProductRepository
	Clock    func() time.Time
	NewID    func(prefix string) string
}

type cartService struct {
	carts    repositories.CartRepository
	products repositories.ProductRepository
	clock    func() time.Time
	newID    func(prefix string) string
}

// NewCartService constructs the cart service.
func NewCartService(deps CartServiceDeps) CartService {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	newID := deps.NewID
	if newID == nil {
		newID = NewID
	}
	return &cartService{
		carts:    deps.Carts,
		products: deps.Products,
		clock:    clock,
		newID:    newID,
	}
}

func (s *cartService) GetOrCreate(ctx context.Context, owner CartOwner) (domain.Cart, error) {
	cart, err := s.find(ctx, owner)
	if err == nil {
		return cart, nil
	}
	if !repositories.IsNotFound(err) {
		return domain.Cart{}, err
	}

	now := s.clock()
	cart = domain.Cart{
		ID:        s.newID("crt"),
		UserID:    owner.UserID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if owner.UserID == "" {
		token := owner.SessionToken
		if token == "" {
			token = uuid.NewString()
		}
		cart.SessionToken = token
	}
	if err := s.carts.Create(ctx, cart); err != nil {
		return domain.Cart{}, fmt.Errorf("create cart: %w", err)
	}
	return cart, nil
}

func (s *cartService) find(ctx context.Context, owner CartOwner) (domain.Cart, error) {
	if owner.UserID != "" {
		return s.carts.FindByUser(ctx, owner.UserID)
	}
	if owner.SessionToken != "" {
		return s.carts.FindBySessionToken(ctx, owner.SessionToken)
	}
	return domain.Cart{}, repositories.NewNotFound("cart", nil)
}

func (s *cartService) AddItem(ctx context.Context, owner CartOwner, in AddItemInput) (domain.Cart, error) {
	if in.Quantity <= 0 {
		return domain.Cart{}, ErrInvalidQuantity
	}

	product, err := s.products.FindByID(ctx, in.ProductID)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrProductNotFound, in.ProductID)
		}
		return domain.Cart{}, fmt.Errorf("load product: %w", err)
	}

	var selection *domain.VariantSelection
	if in.VariantID != "" {
		variant, ok := product.Variant(in.VariantID)
		if !ok {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrVariantNotFound, in.VariantID)
		}
		selection = &domain.VariantSelection{
			ID:    variant.ID,
			Name:  variant.Name,
			Price: variant.Price,
		}
	}

	cart, err := s.GetOrCreate(ctx, owner)
	if err != nil {
		return domain.Cart{}, err
	}

	now := s.clock()
	item := domain.CartItem{
		ID:              s.newID("cli"),
		CartID:          cart.ID,
		ProductID:       product.ID,
		Quantity:        in.Quantity,
		SelectedVariant: selection,
		AddedAt:         now,
		UpdatedAt:       now,
	}
	if err := s.carts.UpsertItem(ctx, item); err != nil {
		return domain.Cart{}, fmt.Errorf("add cart item: %w", err)
	}
	return s.reload(ctx, cart)
}

func (s *cartService) UpdateItemQuantity(ctx context.Context, owner CartOwner, itemID string, quantity int) (domain.Cart, error) {
	if quantity <= 0 {
		return domain.Cart{}, ErrInvalidQuantity
	}
	cart, err := s.find(ctx, owner)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
		}
		return domain.Cart{}, err
	}
	if err := s.carts.UpdateItemQuantity(ctx, cart.ID, itemID, quantity); err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
		}
		return domain.Cart{}, fmt.Errorf("update cart item: %w", err)
	}
	return s.reload(ctx, cart)
}

func (s *cartService) RemoveItem(ctx context.Context, owner CartOwner, itemID string) (domain.Cart, error) {
	cart, err := s.find(ctx, owner)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
		}
		return domain.Cart{}, err
	}
	if err := s.carts.DeleteItem(ctx, cart.ID, itemID); err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, fmt.Errorf("%w: %s", ErrCartItemNotFound, itemID)
		}
		return domain.Cart{}, fmt.Errorf("remove cart item: %w", err)
	}
	return s.reload(ctx, cart)
}

func (s *cartService) Snapshot(ctx context.Context, owner CartOwner) (domain.Cart, error) {
	cart, err := s.find(ctx, owner)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Cart{}, ErrCartEmpty
		}
		return domain.Cart{}, err
	}
	if len(cart.Items) == 0 {
		return domain.Cart{}, ErrCartEmpty
	}
	return cart, nil
}

func (s *cartService) reload(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	owner := CartOwner{UserID: cart.UserID, SessionToken: cart.SessionToken}
	fresh, err := s.find(ctx, owner)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("reload cart: %w", err)
	}
	return fresh, nil
}

package handlers

import (
	"time"

	"github.com/biovolt/marketplace-api/internal/domain"
)

type variantResponse struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         *float64 `json:"price,omitempty"`
	StockQuantity int      `json:"stock_quantity"`
}

type productResponse struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Category      string            `json:"category,omitempty"`
	Price         float64           `json:"price"`
	StockQuantity int               `json:"stock_quantity"`
	LowStock      bool              `json:"low_stock"`
	ImageURL      string            `json:"image_url,omitempty"`
	Variants      []variantResponse `json:"variants,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

func toProductResponse(p domain.Product) productResponse {
	out := productResponse{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		LowStock:      p.LowStock(),
		ImageURL:      p.ImageURL,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
	for _, v := range p.Variants {
		out.Variants = append(out.Variants, variantResponse{
			ID:            v.ID,
			Name:          v.Name,
			Price:         v.Price,
			StockQuantity: v.StockQuantity,
		})
	}
	return out
}

type cartItemResponse struct {
	ID              string                   `json:"id"`
	ProductID       string                   `json:"product_id"`
	Quantity        int                      `json:"quantity"`
	SelectedVariant *domain.VariantSelection `json:"selected_variant,omitempty"`
	AddedAt         time.Time                `json:"added_at"`
}

type cartResponse struct {
	ID           string             `json:"id"`
	SessionToken string             `json:"session_token,omitempty"`
	Items        []cartItemResponse `json:"items"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

func toCartResponse(c domain.Cart) cartResponse {
	out := cartResponse{
		ID:           c.ID,
		SessionToken: c.SessionToken,
		Items:        []cartItemResponse{},
		UpdatedAt:    c.UpdatedAt,
	}
	for _, item := range c.Items {
		out.Items = append(out.Items, cartItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			Quantity:        item.Quantity,
			SelectedVariant: item.SelectedVariant,
			AddedAt:         item.AddedAt,
		})
	}
	return out
}

type orderItemResponse struct {
	ID              string                   `json:"id"`
	ProductID       string                   `json:"product_id"`
	ProductName     string                   `json:"product_name"`
	Quantity        int                      `json:"quantity"`
	PriceAtPurchase float64                  `json:"price_at_purchase"`
	SelectedVariant *domain.VariantSelection `json:"selected_variant,omitempty"`
}

type orderResponse struct {
	ID                string              `json:"id"`
	Status            string              `json:"status"`
	PaymentStatus     string              `json:"payment_status"`
	TotalAmount       float64             `json:"total_amount"`
	Email             string              `json:"email"`
	ShippingAddress   domain.Address      `json:"shipping_address"`
	BillingAddress    domain.Address      `json:"billing_address"`
	CheckoutSessionID *string             `json:"checkout_session_id,omitempty"`
	Items             []orderItemResponse `json:"items"`
	CreatedAt         time.Time           `json:"created_at"`
	PaidAt            *time.Time          `json:"paid_at,omitempty"`
	CancelledAt       *time.Time          `json:"cancelled_at,omitempty"`
}

func toOrderResponse(o domain.Order) orderResponse {
	out := orderResponse{
		ID:                o.ID,
		Status:            string(o.Status),
		PaymentStatus:     string(o.PaymentStatus),
		TotalAmount:       o.TotalAmount,
		Email:             o.Email,
		ShippingAddress:   o.ShippingAddress,
		BillingAddress:    o.BillingAddress,
		CheckoutSessionID: o.CheckoutSessionID,
		Items:             []orderItemResponse{},
		CreatedAt:         o.CreatedAt,
		PaidAt:            o.PaidAt,
		CancelledAt:       o.CancelledAt,
	}
	for _, item := range o.Items {
		out.Items = append(out.Items, orderItemResponse{
			ID:              item.ID,
			ProductID:       item.ProductID,
			ProductName:     item.ProductName,
			Quantity:        item.Quantity,
			PriceAtPurchase: item.PriceAtPurchase,
			SelectedVariant: item.SelectedVariant,
		})
	}
	return out
}

package domain

import "math"

// ResolveUnitPrice returns the authoritative unit price for a line: the
// variant override when one is selected and carries a price, otherwise the
// product's base price. Every price computation in the system (cart totals,
// order totals, order lines, provider line items) goes through this function.
func ResolveUnitPrice(basePrice float64, variant *VariantSelection) float64 {
	if variant != nil && variant.Price != nil {
		return *variant.Price
	}
	return basePrice
}

// MinorUnits converts a decimal currency amount into integer minor units
// (cents) using unbiased round-half-to-even. Conversion happens exactly once,
// at the payment-provider boundary.
func MinorUnits(amount float64) int64 {
	return int64(math.RoundToEven(amount * 100))
}

// LineTotal is the extended price for a quantity of one resolved line.
func LineTotal(unitPrice float64, quantity int) float64 {
	return unitPrice * float64(quantity)
}

// OrderTotal sums quantity times price-at-purchase over the order's lines.
func OrderTotal(items []OrderItem) float64 {
	var total float64
	for _, item := range items {
		total += LineTotal(item.PriceAtPurchase, item.Quantity)
	}
	return total
}

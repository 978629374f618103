// Package pricing derives cart totals from line items. Every figure is
// rounded to cents on its own: the subtotal first, shipping and tax from the
// rounded subtotal, then the total from the three rounded parts.
package pricing

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	FreeShippingThreshold = decimal.NewFromInt(100)
	FlatShipping          = decimal.NewFromInt(10)
	TaxRate               = decimal.RequireFromString("0.15")
)

type Snapshot struct {
	Subtotal float64 `json:"itemsPrice"`
	Shipping float64 `json:"shippingPrice"`
	Tax      float64 `json:"taxPrice"`
	Total    float64 `json:"totalPrice"`
}

func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func Subtotal(items []domain.CartLineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		line := decimal.NewFromFloat(item.UnitPrice).Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return round(sum)
}

// Shipping is waived only when the subtotal strictly exceeds the threshold.
func Shipping(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThan(FreeShippingThreshold) {
		return decimal.Zero
	}
	return round(FlatShipping)
}

func Tax(subtotal decimal.Decimal) decimal.Decimal {
	return round(subtotal.Mul(TaxRate))
}

func Total(subtotal, shipping, tax decimal.Decimal) decimal.Decimal {
	return round(subtotal.Add(shipping).Add(tax))
}

func Compute(items []domain.CartLineItem) Snapshot {
	subtotal := Subtotal(items)
	shipping := Shipping(subtotal)
	tax := Tax(subtotal)
	return Snapshot{
		Subtotal: subtotal.InexactFloat64(),
		Shipping: shipping.InexactFloat64(),
		Tax:      tax.InexactFloat64(),
		Total:    Total(subtotal, shipping, tax).InexactFloat64(),
	}
}

package pricing

import "github.com/shopspring/decimal"

// DiscountModifier deducts either a fixed amount or a percentage of the
// subtotal from the running total.
type DiscountModifier struct {
	name    string
	fixed   decimal.Decimal
	percent decimal.Decimal
}

// NewFixedDiscount deducts the given amount regardless of subtotal.
func NewFixedDiscount(name string, amount decimal.Decimal) *DiscountModifier {
	return &DiscountModifier{name: name, fixed: amount}
}

// NewPercentageDiscount deducts percent (fractional, e.g. 0.05 for 5%)
// of the subtotal.
func NewPercentageDiscount(name string, percent decimal.Decimal) *DiscountModifier {
	return &DiscountModifier{name: name, percent: percent}
}

func (d *DiscountModifier) Name(ctx Context) string {
	return d.name
}

func (d *DiscountModifier) Kind(ctx Context) Kind {
	return KindDeductible
}

func (d *DiscountModifier) Amount(ctx Context) decimal.Decimal {
	if !d.percent.IsZero() {
		return ctx.Subtotal.Mul(d.percent).Round(2)
	}
	return d.fixed
}

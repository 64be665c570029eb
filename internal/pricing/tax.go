package pricing

import "github.com/shopspring/decimal"

type taxRule struct {
	rate      decimal.Decimal
	name      string
	inclusive bool
}

// TaxModifier charges tax per destination country. A country can be
// configured as exclusive (tax added on top of the subtotal) or
// inclusive (prices already carry the tax, the component is shown but
// not added). Countries without a rule pay no tax.
type TaxModifier struct {
	rules map[string]taxRule
}

func NewTaxModifier() *TaxModifier {
	return &TaxModifier{rules: make(map[string]taxRule)}
}

// SetCountry registers the tax rule for a country, replacing any
// previous rule. rate is fractional, e.g. 0.10 for 10%.
func (t *TaxModifier) SetCountry(country string, rate decimal.Decimal, name string, inclusive bool) *TaxModifier {
	t.rules[country] = taxRule{rate: rate, name: name, inclusive: inclusive}
	return t
}

func (t *TaxModifier) Name(ctx Context) string {
	rule, ok := t.rules[ctx.Country]
	if !ok {
		return "Tax"
	}
	return rule.name
}

func (t *TaxModifier) Kind(ctx Context) Kind {
	rule, ok := t.rules[ctx.Country]
	if !ok || rule.inclusive {
		return KindNeutral
	}
	return KindChargeable
}

// Amount computes the tax component on the subtotal. Exclusive tax is
// B*r. Inclusive tax back-computes the portion of B attributable to
// tax: B*(1 - 1/(1+r)).
func (t *TaxModifier) Amount(ctx Context) decimal.Decimal {
	rule, ok := t.rules[ctx.Country]
	if !ok {
		return decimal.Zero
	}
	if rule.inclusive {
		one := decimal.NewFromInt(1)
		return ctx.Subtotal.Mul(one.Sub(one.DivRound(one.Add(rule.rate), 8))).Round(2)
	}
	return ctx.Subtotal.Mul(rule.rate).Round(2)
}

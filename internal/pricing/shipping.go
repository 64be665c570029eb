package pricing

import "github.com/shopspring/decimal"

// ShippingModifier charges a flat shipping fee by destination country,
// falling back to a default charge for countries not listed.
type ShippingModifier struct {
	charges       map[string]decimal.Decimal
	defaultCharge decimal.Decimal
}

func NewShippingModifier(defaultCharge decimal.Decimal) *ShippingModifier {
	return &ShippingModifier{
		charges:       make(map[string]decimal.Decimal),
		defaultCharge: defaultCharge,
	}
}

// SetCountry registers the flat charge for a country.
func (s *ShippingModifier) SetCountry(country string, charge decimal.Decimal) *ShippingModifier {
	s.charges[country] = charge
	return s
}

func (s *ShippingModifier) Name(ctx Context) string {
	return "Shipping"
}

func (s *ShippingModifier) Kind(ctx Context) Kind {
	return KindChargeable
}

func (s *ShippingModifier) Amount(ctx Context) decimal.Decimal {
	if charge, ok := s.charges[ctx.Country]; ok {
		return charge
	}
	return s.defaultCharge
}

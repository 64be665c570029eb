package pricing

import "github.com/shopspring/decimal"

// Kind tells how a modifier's amount affects the running total.
type Kind string

const (
	// KindNeutral modifiers are informational only: the amount is shown
	// to the customer (e.g. tax already included in prices) but the
	// running total is untouched.
	KindNeutral Kind = "NEUTRAL"

	// KindChargeable modifiers add their amount to the running total.
	KindChargeable Kind = "CHARGEABLE"

	// KindDeductible modifiers subtract their amount from the running total.
	KindDeductible Kind = "DEDUCTIBLE"
)

// Context carries what a modifier needs to compute its live amount:
// the pre-modifier subtotal (the taxable base) and the destination
// country of the order.
type Context struct {
	Subtotal decimal.Decimal
	Country  string
}

// Modifier is one configured adjustment rule. Amount computes the live
// value from the context; Kind decides how Apply uses it. Both must be
// pure: a modifier is evaluated once per checkout and its results frozen.
type Modifier interface {
	Name(ctx Context) string
	Kind(ctx Context) Kind
	Amount(ctx Context) decimal.Decimal
}

// Apply folds one modifier into a running amount.
func Apply(m Modifier, ctx Context, running decimal.Decimal) decimal.Decimal {
	switch m.Kind(ctx) {
	case KindChargeable:
		return running.Add(m.Amount(ctx))
	case KindDeductible:
		return running.Sub(m.Amount(ctx))
	default:
		return running
	}
}

// Frozen is a modifier evaluation captured at commit time. Committed
// orders fold Frozen values and never re-run the live chain.
type Frozen struct {
	Name   string
	Kind   Kind
	Amount decimal.Decimal
}

func (f Frozen) Apply(running decimal.Decimal) decimal.Decimal {
	switch f.Kind {
	case KindChargeable:
		return running.Add(f.Amount)
	case KindDeductible:
		return running.Sub(f.Amount)
	default:
		return running
	}
}

// Chain is the ordered list of configured modifiers. Registration order
// is evaluation order; it is never reordered or evaluated in parallel.
type Chain struct {
	modifiers []Modifier
}

func NewChain(modifiers ...Modifier) Chain {
	return Chain{modifiers: modifiers}
}

func (c Chain) Modifiers() []Modifier {
	return c.modifiers
}

// Total folds the chain over the context's subtotal in registration order.
func (c Chain) Total(ctx Context) decimal.Decimal {
	running := ctx.Subtotal
	for _, m := range c.modifiers {
		running = Apply(m, ctx, running)
	}
	return running
}

// Freeze evaluates every modifier against the context and captures the
// results for persistence, preserving chain order.
func (c Chain) Freeze(ctx Context) []Frozen {
	frozen := make([]Frozen, 0, len(c.modifiers))
	for _, m := range c.modifiers {
		frozen = append(frozen, Frozen{
			Name:   m.Name(ctx),
			Kind:   m.Kind(ctx),
			Amount: m.Amount(ctx),
		})
	}
	return frozen
}

package payment

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerGateway wraps a Gateway in a circuit breaker so a struggling
// provider fails fast instead of queueing checkouts behind timeouts.
// Only transport errors trip the breaker; declined charges are normal
// results and do not count as failures.
type BreakerGateway struct {
	inner   Gateway
	breaker *gobreaker.CircuitBreaker[Result]
}

func NewBreakerGateway(name string, inner Gateway) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:    name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerGateway{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[Result](settings),
	}
}

func (g *BreakerGateway) Charge(ctx context.Context, req Request) (Result, error) {
	return g.breaker.Execute(func() (Result, error) {
		return g.inner.Charge(ctx, req)
	})
}

package payment

import (
	"context"
	"fmt"
	"time"
)

// StaticGateway always answers with the configured status. Useful as a
// development provider and in tests; a redirect target can be set for
// the Processing flow.
type StaticGateway struct {
	Result Status
	Target string
}

func (g StaticGateway) Charge(_ context.Context, req Request) (Result, error) {
	result := Result{
		Status:    g.Result,
		Reference: fmt.Sprintf("TXN-%d", time.Now().UnixNano()),
	}
	if g.Result == StatusProcessing {
		result.Value = fmt.Sprintf("%s?order=%s", g.Target, req.OrderID)
	}
	return result, nil
}

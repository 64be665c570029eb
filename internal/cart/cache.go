package cart

import (
	"context"
	"errors"
)

// Cache is a read cache over a session's cart lines, fronting the Store.
type Cache interface {
	Get(ctx context.Context, sessionID string) ([]Line, error)
	Set(ctx context.Context, sessionID string, lines []Line) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")

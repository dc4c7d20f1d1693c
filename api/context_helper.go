package api

import (
	"context"
	"time"
)

// QueryTimeout bounds every database round trip issued by the handlers
const QueryTimeout = 10 * time.Second

// WithQueryTimeout derives a context carrying the standard query deadline.
// A nil parent falls back to context.Background so background jobs can
// use the same helper as request handlers.
func WithQueryTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, QueryTimeout)
}

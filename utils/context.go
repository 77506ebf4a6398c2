package utils

import (
	"context"
	"time"
)

// Imports run for as long as the client stays connected. Store and queue
// calls made from a handler get their own deadline.
const (
	StoreTimeout = 10 * time.Second
	QueueTimeout = 3 * time.Second
)

// WithStoreTimeout bounds a recipe search or save started by a request.
func WithStoreTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, StoreTimeout)
}

func WithQueueTimeout(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, QueueTimeout)
}

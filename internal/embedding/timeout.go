package embedding

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single embedding call.
const DefaultTimeout = 60 * time.Second

// Embedder is the single-text subset of the client used at query time.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type timeoutEmbedder struct {
	inner   Embedder
	timeout time.Duration
}

// WithTimeout wraps an embedder so every call carries its own deadline.
func WithTimeout(inner Embedder, timeout time.Duration) Embedder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutEmbedder{inner: inner, timeout: timeout}
}

func (e *timeoutEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.inner.Embed(ctx, text)
}

package llm

import (
	"context"
	"time"
)

// DefaultTimeout bounds a single model call.
const DefaultTimeout = 60 * time.Second

type timeoutClient struct {
	inner   ChatClient
	timeout time.Duration
}

// WithTimeout wraps a client so every completion call carries its own
// deadline. The caller's context still cancels earlier if it expires first.
func WithTimeout(inner ChatClient, timeout time.Duration) ChatClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &timeoutClient{inner: inner, timeout: timeout}
}

func (c *timeoutClient) Complete(ctx context.Context, messages []Message, temperature float32, maxTokens int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.inner.Complete(ctx, messages, temperature, maxTokens)
}

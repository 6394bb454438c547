package notification

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitedProvider throttles calls to the wrapped Provider.
type RateLimitedProvider struct {
	next    Provider
	limiter *rate.Limiter
}

// NewRateLimitedProvider wraps next so that at most perSecond messages are
// sent per second, with bursts up to burst. A non-positive perSecond
// returns next unchanged.
func NewRateLimitedProvider(next Provider, perSecond float64, burst int) Provider {
	if perSecond <= 0 {
		return next
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Name returns the wrapped provider's identifier.
func (p *RateLimitedProvider) Name() string { return p.next.Name() }

// Send waits for a token and then delegates to the wrapped provider.
func (p *RateLimitedProvider) Send(ctx context.Context, msg Message) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send slot: %w", err)
	}
	return p.next.Send(ctx, msg)
}

package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider admits at most rpm calls in any sliding minute.
type RateLimitedProvider struct {
	provider Provider
	rpm      int
	window   time.Duration

	mu    sync.Mutex
	calls []time.Time // admission times inside the current window, oldest first
}

// NewRateLimitedProvider wraps provider so that it is called at most rpm
// times per minute. Callers over the limit wait for a slot or their context.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	return &RateLimitedProvider{provider: provider, rpm: rpm, window: time.Minute}
}

func (r *RateLimitedProvider) Name() string { return r.provider.Name() }

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	for {
		delay := r.admit(time.Now())
		if delay == 0 {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// admit records a call at now and returns 0, or returns how long until the
// oldest call leaves the window.
func (r *RateLimitedProvider) admit(now time.Time) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.calls) && !r.calls[i].After(cutoff) {
		i++
	}
	r.calls = r.calls[i:]

	if len(r.calls) < r.rpm {
		r.calls = append(r.calls, now)
		return 0
	}
	return r.calls[0].Sub(cutoff)
}

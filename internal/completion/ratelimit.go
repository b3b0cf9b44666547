package completion

import (
	"context"
	"math"
	"sync"

	"golang.org/x/time/rate"

	"github.com/procurant/docpipe/internal/config"
)

// NewRateLimitMiddleware returns middleware enforcing a local token bucket
// per provider. It protects the shared provider quota during fan-out:
// requests that cannot proceed fail fast with a RateLimitError carrying
// wait guidance instead of queueing, so the orchestrator's backoff stays
// in charge of pacing.
func NewRateLimitMiddleware(cfg config.RateLimitConfig) Middleware {
	limiter := newLocalLimiter(cfg)
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if err := limiter.allow(req.Provider); err != nil {
				return nil, err
			}
			return next.Handle(ctx, req)
		})
	}
}

// localLimiter maintains one token bucket per provider, created lazily.
type localLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

func newLocalLimiter(cfg config.RateLimitConfig) *localLimiter {
	return &localLimiter{
		limiters: make(map[string]*rate.Limiter),
		rps:      cfg.TokensPerSecond,
		burst:    cfg.BurstSize,
	}
}

func (l *localLimiter) limiterFor(provider string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[provider]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(l.rps), l.burst)
		l.limiters[provider] = lim
	}
	return lim
}

// allow consumes a token or returns a RateLimitError with retry guidance.
// The probe reservation is cancelled so it does not itself consume quota.
func (l *localLimiter) allow(provider string) error {
	lim := l.limiterFor(provider)
	if lim.Allow() {
		return nil
	}

	res := lim.Reserve()
	delay := res.Delay()
	res.Cancel()

	retryAfter := int(math.Ceil(delay.Seconds()))
	if retryAfter < 1 && delay > 0 {
		retryAfter = 1
	}

	return &RateLimitError{
		Provider:   provider,
		Limit:      l.burst,
		RetryAfter: retryAfter,
	}
}

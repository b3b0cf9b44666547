package orchestrator

import (
	"math"
	"math/rand"
	"time"

	"github.com/procurant/docpipe/internal/config"
)

// backoff computes retry delays: exponential growth from the initial
// interval, capped at the max, with optional full jitter. Full jitter
// spreads concurrent retries across [0, delay) so agents that failed
// together do not hammer the provider together.
type backoff struct {
	cfg config.BackoffConfig
}

func newBackoff(cfg config.BackoffConfig) *backoff {
	return &backoff{cfg: cfg}
}

// delay returns the wait before the given retry attempt (1-based: the
// delay before the first retry is delay(1)). Provider guidance, when
// present, overrides the computed delay but still respects the cap.
func (b *backoff) delay(attempt int, guidance time.Duration) time.Duration {
	if guidance > 0 {
		if guidance > b.cfg.MaxInterval {
			return b.cfg.MaxInterval
		}
		return guidance
	}

	d := float64(b.cfg.InitialInterval) * math.Pow(b.cfg.Multiplier, float64(attempt-1))
	if d > float64(b.cfg.MaxInterval) {
		d = float64(b.cfg.MaxInterval)
	}

	delay := time.Duration(d)
	if b.cfg.UseJitter && delay > 0 {
		delay = time.Duration(rand.Int63n(int64(delay)))
	}
	return delay
}

package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/procurant/docpipe/internal/config"
)

func TestBackoff_DoublesAndCaps(t *testing.T) {
	b := newBackoff(config.BackoffConfig{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	})

	assert.Equal(t, 250*time.Millisecond, b.delay(1, 0))
	assert.Equal(t, 500*time.Millisecond, b.delay(2, 0))
	assert.Equal(t, time.Second, b.delay(3, 0))
	assert.Equal(t, 2*time.Second, b.delay(4, 0))
	assert.Equal(t, 4*time.Second, b.delay(5, 0))
	assert.Equal(t, 5*time.Second, b.delay(6, 0))
	assert.Equal(t, 5*time.Second, b.delay(10, 0))
}

func TestBackoff_GuidanceOverridesComputedDelay(t *testing.T) {
	b := newBackoff(config.BackoffConfig{
		InitialInterval: 250 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
	})

	assert.Equal(t, 3*time.Second, b.delay(1, 3*time.Second))
	// Guidance beyond the cap is clamped.
	assert.Equal(t, 5*time.Second, b.delay(1, time.Minute))
}

func TestBackoff_JitterStaysUnderComputedDelay(t *testing.T) {
	b := newBackoff(config.BackoffConfig{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		UseJitter:       true,
	})

	for i := 0; i < 100; i++ {
		d := b.delay(3, 0)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, 400*time.Millisecond)
	}
}

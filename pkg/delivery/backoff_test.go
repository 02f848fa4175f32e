package delivery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff(t *testing.T) {
	t.Parallel()

	base := time.Second
	limit := 10 * time.Minute

	t.Run("doubles per retry without jitter", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, time.Second, backoff(0, base, limit, 0))
		assert.Equal(t, 2*time.Second, backoff(1, base, limit, 0))
		assert.Equal(t, 4*time.Second, backoff(2, base, limit, 0))
		assert.Equal(t, 8*time.Second, backoff(3, base, limit, 0))
	})

	t.Run("caps growth", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, limit, backoff(30, base, limit, 0))
		assert.Equal(t, limit, backoff(1000, base, limit, 0))
	})

	t.Run("strictly increases across consecutive retries", func(t *testing.T) {
		t.Parallel()

		prev := time.Duration(0)
		for n := range 8 {
			d := backoff(n, base, limit, 0)
			assert.Greater(t, d, prev, "retry %d", n)
			prev = d
		}
	})

	t.Run("jitter stays within bounds", func(t *testing.T) {
		t.Parallel()

		for range 100 {
			d := backoff(2, base, limit, 0.25)
			assert.GreaterOrEqual(t, d, 3*time.Second)
			assert.LessOrEqual(t, d, 5*time.Second)
		}
	})

	t.Run("negative retry count treated as zero", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, time.Second, backoff(-3, base, limit, 0))
	})

	t.Run("never returns below a millisecond", func(t *testing.T) {
		t.Parallel()

		assert.GreaterOrEqual(t, backoff(0, time.Nanosecond, limit, 0), time.Millisecond)
	})
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := Config{}.withDefaults()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 10*time.Second, cfg.PollInterval)
	assert.Equal(t, time.Second, cfg.BackoffBase)
	assert.Equal(t, 10*time.Minute, cfg.BackoffCap)
	assert.Zero(t, cfg.JitterFraction)

	custom := Config{MaxRetries: 5, JitterFraction: 0.5}.withDefaults()
	assert.Equal(t, 5, custom.MaxRetries)
	assert.Equal(t, 0.5, custom.JitterFraction)

	invalid := Config{JitterFraction: 2}.withDefaults()
	assert.Zero(t, invalid.JitterFraction)
}

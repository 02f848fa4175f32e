package delivery

import "time"

// Config holds the retry and polling policy for delivery workers. The zero
// value is usable; every field falls back to its documented default.
type Config struct {
	// MaxRetries is the number of re-attempts after the initial send, so a
	// task is tried at most MaxRetries+1 times before being abandoned.
	MaxRetries int `env:"DELIVERY_MAX_RETRIES" envDefault:"3"`

	// PollInterval is how long a worker sleeps after finding the queue
	// empty. Bulk newsletter delivery is not latency-sensitive, so a fixed
	// idle interval is sufficient.
	PollInterval time.Duration `env:"DELIVERY_POLL_INTERVAL" envDefault:"10s"`

	// BackoffBase is the delay before the first retry; each further retry
	// doubles it up to BackoffCap.
	BackoffBase time.Duration `env:"DELIVERY_BACKOFF_BASE" envDefault:"1s"`
	BackoffCap  time.Duration `env:"DELIVERY_BACKOFF_CAP" envDefault:"10m"`

	// JitterFraction spreads retries of simultaneously failed tasks apart:
	// each delay is multiplied by a random factor in [1-j, 1+j]. Zero
	// disables jitter.
	JitterFraction float64 `env:"DELIVERY_BACKOFF_JITTER" envDefault:"0.25"`
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 10 * time.Minute
	}
	if c.JitterFraction < 0 || c.JitterFraction >= 1 {
		c.JitterFraction = 0
	}
	return c
}

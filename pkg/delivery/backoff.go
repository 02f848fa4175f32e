package delivery

import (
	"math/rand/v2"
	"time"
)

// backoff returns the delay before the next attempt of a task that has
// already failed retryCount+1 times: base doubled per retry, capped, with
// optional jitter so tasks that failed together do not retry together.
func backoff(retryCount int, base, limit time.Duration, jitter float64) time.Duration {
	if retryCount < 0 {
		retryCount = 0
	}

	delay := base
	for range retryCount {
		delay *= 2
		if delay >= limit {
			delay = limit
			break
		}
	}

	if jitter > 0 {
		factor := 1 + (rand.Float64()*2-1)*jitter
		delay = time.Duration(float64(delay) * factor)
	}
	if delay < time.Millisecond {
		delay = time.Millisecond
	}
	return delay
}

package util

import (
	"math/rand/v2"
	"time"
)

// Jitter returns a random duration in [0, max). Used to spread out delivery
// retries so redelivered batches don't hammer the Send API in lockstep.
// Uses math/rand/v2; this is not a cryptographic use.
func Jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

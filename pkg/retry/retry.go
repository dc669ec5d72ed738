// Package retry provides the bounded-retry combinator used by the
// safe-upsert paths. Attempt count and backoff are parameterized per call
// site so tests can inject zero backoff.
package retry

import (
	"math/rand"
	"time"
)

// BackoffFunc returns how long to sleep before retry attempt n (1-based).
type BackoffFunc func(attempt int) time.Duration

// NoBackoff retries immediately. Intended for tests.
func NoBackoff(int) time.Duration { return 0 }

// Jitter returns a randomized backoff in [base, base+spread) scaled
// linearly by the attempt number.
func Jitter(base, spread time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		return time.Duration(attempt)*base + time.Duration(rand.Int63n(int64(spread)))
	}
}

// DefaultBackoff is the tens-of-milliseconds randomized backoff used for
// progress-row conflicts.
var DefaultBackoff = Jitter(20*time.Millisecond, 30*time.Millisecond)

// Do runs fn up to maxAttempts times, sleeping per backoff between
// attempts. It retries only while retryable(err) is true and returns the
// last error once attempts are exhausted or a non-retryable error occurs.
func Do(maxAttempts int, backoff BackoffFunc, retryable func(error) bool, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil || !retryable(err) {
			return err
		}
		if attempt < maxAttempts {
			if d := backoff(attempt); d > 0 {
				time.Sleep(d)
			}
		}
	}
	return err
}

package fetch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"fedcorpus/pkg/utils"
)

// defaultRetryAfter is used when a 429 carries no parseable Retry-After.
const defaultRetryAfter = 60 * time.Second

// RateLimitError reports that the server answered 429 and told us how
// long to wait. The retryer always honors the advised delay instead of
// exponential backoff.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// parseRetryAfter reads a Retry-After header value as either delta
// seconds or an HTTP date.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.ParseFloat(header, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if t, err := http.ParseTime(header); err == nil {
		if wait := time.Until(t); wait > 0 {
			return wait
		}
		return 0
	}
	return defaultRetryAfter
}

// Retryer retries fallible operations with exponential backoff and
// multiplicative jitter. Classification on failure:
//
//   - *RateLimitError: retried after exactly the server-advised delay
//   - ErrClientHTTPError / ErrRobotsDisallowed: definitive, never retried
//   - anything else (timeouts, resets, 5xx): backoff min(base*2^n, max)
//     scaled by a jitter factor drawn uniformly from [0.5, 1.5)
//
// When attempts are exhausted the last error is wrapped in
// ErrRetryFailed, never swallowed.
type Retryer struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	log *logrus.Entry
}

// NewRetryer builds a Retryer; maxAttempts < 1 is clamped to 1.
func NewRetryer(maxAttempts int, baseDelay, maxDelay time.Duration, log *logrus.Entry) *Retryer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Retryer{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		log:         log,
	}
}

// backoff returns the pre-jitter delay before retry number attempt
// (0-based), capped at MaxDelay.
func (r *Retryer) backoff(attempt int) time.Duration {
	delay := float64(r.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}
	return time.Duration(delay)
}

// jitter scales a delay by a factor drawn uniformly from [0.5, 1.5) so
// adapters sharing the host do not synchronize their retry storms.
func jitter(delay time.Duration) time.Duration {
	return time.Duration(float64(delay) * (0.5 + rand.Float64()))
}

// Do runs op, retrying per the classification above. label is used for
// log context only. A canceled parent context aborts immediately, both
// between attempts and during backoff sleeps.
func (r *Retryer) Do(ctx context.Context, label string, op func(context.Context) error) error {
	opLog := r.log.WithField("op", label)
	var lastErr error

	for attempt := 0; attempt < r.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("context canceled (%v) after error: %w", err, lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			return nil
		}

		// Outer cancellation is not a transport failure; stop here. A
		// deadline from the per-request child context still retries.
		if ctx.Err() != nil {
			return err
		}

		// Definitive rejections: the resource does not exist at this
		// URL (or we are not welcome); retrying cannot change that.
		if errors.Is(err, utils.ErrClientHTTPError) || errors.Is(err, utils.ErrRobotsDisallowed) {
			return err
		}

		lastErr = err
		if attempt == r.MaxAttempts-1 {
			break
		}

		var delay time.Duration
		var rle *RateLimitError
		if errors.As(err, &rle) {
			delay = rle.RetryAfter
			opLog.WithFields(logrus.Fields{
				"attempt": attempt + 1, "max_attempts": r.MaxAttempts, "delay": delay,
			}).Warn("Rate limited by server, honoring advised delay")
		} else {
			delay = jitter(r.backoff(attempt))
			opLog.WithFields(logrus.Fields{
				"attempt": attempt + 1, "max_attempts": r.MaxAttempts, "delay": delay,
			}).Warnf("Retrying after error: %v", err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("context canceled (%v) during retry delay after error: %w", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}

	opLog.Errorf("All %d attempts failed. Last error: %v", r.MaxAttempts, lastErr)
	return fmt.Errorf("%w: %w", utils.ErrRetryFailed, lastErr)
}

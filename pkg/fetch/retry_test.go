package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"fedcorpus/pkg/utils"
)

// testRetryer returns a Retryer with fast delays for testing
func testRetryer(maxAttempts int) *Retryer {
	return NewRetryer(maxAttempts, 10*time.Millisecond, 50*time.Millisecond, testLogger())
}

func TestRetryer_SucceedsAfterTransientFailures(t *testing.T) {
	r := testRetryer(5)

	attempts := 0
	err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("%w: status 503", utils.ErrServerHTTPError)
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
}

func TestRetryer_ClientErrorNotRetried(t *testing.T) {
	r := testRetryer(5)

	attempts := 0
	err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("%w: status 404", utils.ErrClientHTTPError)
	})

	if !errors.Is(err, utils.ErrClientHTTPError) {
		t.Errorf("error = %v, want ErrClientHTTPError", err)
	}
	if errors.Is(err, utils.ErrRetryFailed) {
		t.Error("definitive error must not be wrapped in ErrRetryFailed")
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want exactly 1", attempts)
	}
}

func TestRetryer_RobotsDisallowedNotRetried(t *testing.T) {
	r := testRetryer(5)

	attempts := 0
	err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return utils.ErrRobotsDisallowed
	})

	if !errors.Is(err, utils.ErrRobotsDisallowed) {
		t.Errorf("error = %v, want ErrRobotsDisallowed", err)
	}
	if attempts != 1 {
		t.Errorf("got %d attempts, want exactly 1", attempts)
	}
}

func TestRetryer_ExhaustionWrapsLastError(t *testing.T) {
	r := testRetryer(3)

	attempts := 0
	err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		return fmt.Errorf("%w: status 500", utils.ErrServerHTTPError)
	})

	if attempts != 3 {
		t.Errorf("got %d attempts, want 3", attempts)
	}
	if !errors.Is(err, utils.ErrRetryFailed) {
		t.Errorf("error = %v, want ErrRetryFailed wrapper", err)
	}
	if !errors.Is(err, utils.ErrServerHTTPError) {
		t.Errorf("error = %v, should preserve the underlying cause", err)
	}
}

func TestRetryer_RateLimitErrorHonorsAdvisedDelay(t *testing.T) {
	r := testRetryer(3)

	const advised = 80 * time.Millisecond
	attempts := 0
	start := time.Now()
	err := r.Do(context.Background(), "test", func(ctx context.Context) error {
		attempts++
		if attempts == 1 {
			return &RateLimitError{RetryAfter: advised}
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if elapsed < advised {
		t.Errorf("retried after %v, advised delay was %v", elapsed, advised)
	}
}

func TestRetryer_CancellationDuringBackoff(t *testing.T) {
	r := NewRetryer(5, 10*time.Second, 30*time.Second, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	err := r.Do(ctx, "test", func(ctx context.Context) error {
		return fmt.Errorf("%w: status 503", utils.ErrServerHTTPError)
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if elapsed > time.Second {
		t.Errorf("Do took %v after cancellation, expected prompt return", elapsed)
	}
}

func TestRetryer_BackoffGrowthAndCap(t *testing.T) {
	r := NewRetryer(5, 5*time.Second, 300*time.Second, testLogger())

	prev := time.Duration(0)
	for attempt := 0; attempt < 6; attempt++ {
		d := r.backoff(attempt)
		if d < prev {
			t.Errorf("backoff(%d) = %v, smaller than previous %v", attempt, d, prev)
		}
		if d > 300*time.Second {
			t.Errorf("backoff(%d) = %v, exceeds cap", attempt, d)
		}
		prev = d
	}
	if got := r.backoff(0); got != 5*time.Second {
		t.Errorf("backoff(0) = %v, want 5s", got)
	}
	if got := r.backoff(2); got != 20*time.Second {
		t.Errorf("backoff(2) = %v, want 20s", got)
	}
	if got := r.backoff(10); got != 300*time.Second {
		t.Errorf("backoff(10) = %v, want cap 300s", got)
	}
}

func TestJitter_StaysWithinBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		d := jitter(base)
		if d < 50*time.Millisecond || d >= 150*time.Millisecond {
			t.Fatalf("jitter(%v) = %v, want in [50ms, 150ms)", base, d)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("30"); got != 30*time.Second {
		t.Errorf("parseRetryAfter(30) = %v, want 30s", got)
	}
	if got := parseRetryAfter(""); got != defaultRetryAfter {
		t.Errorf("parseRetryAfter(empty) = %v, want default %v", got, defaultRetryAfter)
	}
	if got := parseRetryAfter("garbage"); got != defaultRetryAfter {
		t.Errorf("parseRetryAfter(garbage) = %v, want default %v", got, defaultRetryAfter)
	}

	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	got := parseRetryAfter(future)
	if got < 80*time.Second || got > 90*time.Second {
		t.Errorf("parseRetryAfter(HTTP date) = %v, want ~90s", got)
	}

	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(past); got != 0 {
		t.Errorf("parseRetryAfter(past date) = %v, want 0", got)
	}
}

package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(5), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	failErr := errors.New("persistent")
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(3), func(ctx context.Context) error {
		calls++
		return failErr
	})

	if err == nil {
		t.Fatal("Expected error after exhausting attempts")
	}
	if !errors.Is(err, failErr) {
		t.Errorf("Expected wrapped original error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("Expected 3 attempts, got %d", calls)
	}
}

func TestRetryIf_StopsOnNonRetryableError(t *testing.T) {
	fatal := errors.New("bad request")
	calls := 0
	err := RetryIf(context.Background(), fastRetryConfig(5),
		func(err error) bool { return !errors.Is(err, fatal) },
		func(ctx context.Context) error {
			calls++
			return fatal
		})

	if !errors.Is(err, fatal) {
		t.Errorf("Expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Non-retryable error must not be retried, got %d attempts", calls)
	}
}

func TestRetry_StopsOnContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Retry(ctx, fastRetryConfig(10), func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("failure")
	})

	if err == nil {
		t.Fatal("Expected cancellation error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled in chain, got %v", err)
	}
	if calls != 1 {
		t.Errorf("Expected 1 attempt before cancellation stopped retries, got %d", calls)
	}
}

func TestRetryWithResult_ReturnsValue(t *testing.T) {
	calls := 0
	got, err := RetryWithResult(context.Background(), fastRetryConfig(3),
		func(error) bool { return true },
		func(ctx context.Context) (int, error) {
			calls++
			if calls < 2 {
				return 0, errors.New("transient")
			}
			return 42, nil
		})

	if err != nil {
		t.Fatalf("Expected success, got %v", err)
	}
	if got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
}

func TestCalculateBackoff_CapsAtMaxDelay(t *testing.T) {
	for attempt := 0; attempt < 10; attempt++ {
		delay := calculateBackoff(attempt, time.Millisecond, 10*time.Millisecond, 0)
		if delay > 10*time.Millisecond {
			t.Errorf("attempt %d: delay %v exceeds max", attempt, delay)
		}
	}
}

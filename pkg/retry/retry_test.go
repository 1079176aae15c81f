package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestDoRetriesRetryable(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("transient"))
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoStopsOnPermanentError(t *testing.T) {
	permanent := errors.New("permanent")
	calls := 0
	err := Do(context.Background(), fastConfig(5), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) || calls != 1 {
		t.Errorf("err = %v after %d calls", err, calls)
	}
}

func TestDoGivesUp(t *testing.T) {
	var retries []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, wait time.Duration) { retries = append(retries, attempt) }

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return Retryable(errors.New("still down"))
	})
	if err == nil || !IsRetryable(err) {
		t.Fatalf("expected last retryable error, got %v", err)
	}
	if calls != 3 || len(retries) != 2 {
		t.Errorf("calls = %d, retries = %v", calls, retries)
	}
}

func TestDoWithResultContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 0, InitialWait: time.Hour, Multiplier: 1}
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	_, err := DoWithResult(ctx, cfg, func() (int, error) {
		return 0, Retryable(errors.New("x"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffCapped(t *testing.T) {
	cfg := Config{InitialWait: time.Second, MaxWait: 3 * time.Second, Multiplier: 2}
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 3 * time.Second},
		{10, 3 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.Backoff(tt.attempt); got != tt.want {
			t.Errorf("Backoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

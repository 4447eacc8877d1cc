package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig() Config {
	return Config{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Errorf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDoReturnsLastError(t *testing.T) {
	wantErr := errors.New("still failing")
	calls := 0
	err := Do(context.Background(), fastConfig(), func() error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want MaxAttempts", calls)
	}
}

func TestDoShouldRetryStopsEarly(t *testing.T) {
	permanent := errors.New("permanent")
	cfg := fastConfig()
	cfg.ShouldRetry = func(err error) bool { return !errors.Is(err, permanent) }

	calls := 0
	err := Do(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("err = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, non-retryable errors must not be retried", calls)
	}
}

func TestDoHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := Do(ctx, Config{MaxAttempts: 5, InitialDelay: time.Hour, MaxDelay: time.Hour}, func() error {
		calls++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled wrapped", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, cancellation must stop the loop", calls)
	}
}

func TestDoZeroAttemptsTreatedAsOne(t *testing.T) {
	calls := 0
	Do(context.Background(), Config{}, func() error {
		calls++
		return errors.New("boom")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

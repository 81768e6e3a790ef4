package resilience

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"
)

var errRetryable = errors.New("quota exceeded")

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
		ShouldRetry:    func(err error) bool { return errors.Is(err, errRetryable) },
	}
}

func TestDoVal_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	v, err := DoVal(context.Background(), fastConfig(3), func(_ context.Context) (int, error) {
		calls++
		return 7, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 7 || calls != 1 {
		t.Errorf("got value %d after %d calls", v, calls)
	}
}

func TestDoVal_SuccessAfterRetry(t *testing.T) {
	var calls, retries int
	cfg := fastConfig(3)
	cfg.OnRetry = func(int, error) { retries++ }

	v, err := DoVal(context.Background(), cfg, func(_ context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", errRetryable
		}
		return "ok", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "ok" || calls != 3 || retries != 2 {
		t.Errorf("value=%q calls=%d retries=%d", v, calls, retries)
	}
}

func TestDoVal_ExhaustsRetries(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastConfig(3), func(_ context.Context) (int, error) {
		calls++
		return 0, errRetryable
	})
	if !errors.Is(err, errRetryable) {
		t.Fatalf("expected last error, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDoVal_NonRetryableStopsImmediately(t *testing.T) {
	var calls int
	_, err := DoVal(context.Background(), fastConfig(5), func(_ context.Context) (int, error) {
		calls++
		return 0, errors.New("bad request")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_SingleAttemptNeverRetries(t *testing.T) {
	var calls int
	_, _ = DoVal(context.Background(), fastConfig(1), func(_ context.Context) (int, error) {
		calls++
		return 0, errRetryable
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := fastConfig(5)
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = time.Second

	_, err := DoVal(ctx, cfg, func(_ context.Context) (int, error) {
		calls++
		cancel()
		return 0, errRetryable
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDoVal_DefaultShouldRetry(t *testing.T) {
	var calls int
	cfg := fastConfig(2)
	cfg.ShouldRetry = nil

	_, _ = DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		calls++
		return 0, syscall.ECONNREFUSED
	})
	if calls != 2 {
		t.Errorf("expected network failure to be retried, got %d calls", calls)
	}
}

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(2, 100, 1000)
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 100*time.Millisecond || cfg.MaxBackoff != time.Second {
		t.Errorf("unexpected backoff %s/%s", cfg.InitialBackoff, cfg.MaxBackoff)
	}

	cfg = FromRetryConfig(-1, 0, 0)
	if cfg.MaxAttempts != 1 {
		t.Errorf("negative retries should mean one attempt, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != 2*time.Second {
		t.Errorf("expected default initial backoff, got %s", cfg.InitialBackoff)
	}
}

func TestComputeBackoff_Capped(t *testing.T) {
	cfg := applyDefaults(RetryConfig{InitialBackoff: time.Second, MaxBackoff: 3 * time.Second, Multiplier: 10})
	if d := computeBackoff(5, cfg); d != 3*time.Second {
		t.Errorf("expected cap 3s, got %s", d)
	}
}

package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func fastRetry(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:    maxAttempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		BackoffFactor:  2.0,
	}
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	result, attempts, err := Retry(context.Background(), DefaultRetryConfig(), func(int) (string, error) {
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestRetry_SucceedsAfterRetry(t *testing.T) {
	var seen []int
	result, attempts, err := Retry(context.Background(), fastRetry(3), func(attempt int) (string, error) {
		seen = append(seen, attempt)
		if attempt < 3 {
			return "", errors.New("temporary error")
		}
		return "success", nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if result != "success" {
		t.Errorf("expected 'success', got %s", result)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
		t.Errorf("expected attempt numbers [1 2 3], got %v", seen)
	}
}

func TestRetry_ExceedsMaxAttempts(t *testing.T) {
	testErr := errors.New("persistent error")
	calls := 0

	_, attempts, err := Retry(context.Background(), fastRetry(3), func(int) (string, error) {
		calls++
		return "", testErr
	})

	if !errors.Is(err, testErr) {
		t.Errorf("expected testErr, got %v", err)
	}
	if calls != 3 || attempts != 3 {
		t.Errorf("expected 3 calls and attempts, got %d/%d", calls, attempts)
	}
}

func TestRetry_RespectsContext(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:    10,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		BackoffFactor:  2.0,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	calls := 0
	_, _, err := Retry(ctx, cfg, func(int) (string, error) {
		calls++
		return "", errors.New("error")
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded, got %v", err)
	}
	if calls >= 10 {
		t.Errorf("expected fewer than 10 calls, got %d", calls)
	}
}

func TestRetry_RetryIfFilter(t *testing.T) {
	retryableErr := errors.New("retryable")
	terminalErr := errors.New("terminal")

	cfg := fastRetry(3)
	cfg.RetryIf = func(err error) bool { return errors.Is(err, retryableErr) }

	calls := 0
	_, _, _ = Retry(context.Background(), cfg, func(int) (string, error) {
		calls++
		return "", retryableErr
	})
	if calls != 3 {
		t.Errorf("expected 3 calls for retryable error, got %d", calls)
	}

	calls = 0
	_, attempts, err := Retry(context.Background(), cfg, func(int) (string, error) {
		calls++
		return "", terminalErr
	})
	if calls != 1 || attempts != 1 {
		t.Errorf("expected 1 call for terminal error, got %d", calls)
	}
	if !errors.Is(err, terminalErr) {
		t.Errorf("expected terminalErr, got %v", err)
	}
}

func TestRetry_OnRetryCallback(t *testing.T) {
	var retries []int
	var mu sync.Mutex

	cfg := fastRetry(3)
	cfg.OnRetry = func(attempt int, err error, backoff time.Duration) {
		mu.Lock()
		retries = append(retries, attempt)
		mu.Unlock()
	}

	_, _, _ = Retry(context.Background(), cfg, func(int) (string, error) {
		return "", errors.New("error")
	})

	mu.Lock()
	defer mu.Unlock()
	if len(retries) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(retries))
	}
	if retries[0] != 1 || retries[1] != 2 {
		t.Errorf("expected attempts [1, 2], got %v", retries)
	}
}

func TestRetryFunc(t *testing.T) {
	attempts, err := RetryFunc(context.Background(), fastRetry(3), func(attempt int) error {
		if attempt < 2 {
			return errors.New("error")
		}
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if attempts != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestRetryConfig_ValidateAndDefaults(t *testing.T) {
	var cfg RetryConfig
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts by default, got %d", cfg.MaxAttempts)
	}

	bad := RetryConfig{MaxAttempts: 2, InitialBackoff: time.Second, MaxBackoff: time.Millisecond, Jitter: 0.1}
	if err := bad.Validate(); err == nil {
		t.Error("expected error when max_backoff < initial_backoff")
	}
	bad = RetryConfig{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Second, Jitter: 2}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for jitter > 1")
	}
}

func TestCalculateBackoff(t *testing.T) {
	cfg := RetryConfig{
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     1 * time.Second,
		BackoffFactor:  2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		got := calculateBackoff(tt.attempt, cfg)
		if got != tt.expected {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.expected, got)
		}
	}
}

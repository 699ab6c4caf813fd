package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:      maxRetries,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     100 * time.Millisecond,
		Multiplier:      2.0,
		JitterFactor:    0,
	}
}

func TestNew_FillsDefaults(t *testing.T) {
	for _, cfg := range []*Config{nil, {}} {
		r := New(cfg)
		if r.config.InitialInterval != 1*time.Second {
			t.Errorf("InitialInterval = %v, want 1s", r.config.InitialInterval)
		}
		if r.config.MaxInterval != 30*time.Second {
			t.Errorf("MaxInterval = %v, want 30s", r.config.MaxInterval)
		}
		if r.config.Multiplier != 2.0 {
			t.Errorf("Multiplier = %f, want 2.0", r.config.Multiplier)
		}
	}
}

func TestRetrier_Do_FirstAttemptSucceeds(t *testing.T) {
	attempts := 0
	result := New(fastConfig(3)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if attempts != 1 || result.Attempts != 1 {
		t.Errorf("attempts = %d/%d, want 1/1", attempts, result.Attempts)
	}
}

func TestRetrier_Do_TransientFailuresRecover(t *testing.T) {
	attempts := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("connection reset")
		}
		return nil
	})

	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if result.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", result.Attempts)
	}
}

func TestRetrier_Do_ExhaustsRetries(t *testing.T) {
	attempts := 0
	opErr := errors.New("still down")
	result := New(fastConfig(3)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return opErr
	})

	if !errors.Is(result.Err, ErrMaxRetriesExceeded) {
		t.Errorf("Err = %v, want ErrMaxRetriesExceeded", result.Err)
	}
	if !errors.Is(result.LastError, opErr) {
		t.Errorf("LastError = %v, want the operation error", result.LastError)
	}
	// Initial attempt plus 3 retries
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4", attempts)
	}
}

func TestRetrier_Do_PermanentErrorStopsAndUnwraps(t *testing.T) {
	sentinel := errors.New("payment was declined")
	attempts := 0
	result := New(fastConfig(5)).Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return Permanent(sentinel)
	})

	// Callers match the result against their sentinels directly
	if !errors.Is(result.Err, sentinel) {
		t.Errorf("Err = %v, want the unwrapped sentinel", result.Err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestPermanent_NilPassthrough(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("Permanent(nil) should return nil")
	}
}

func TestRetrier_Do_ContextCanceledDuringBackoff(t *testing.T) {
	cfg := &Config{
		MaxRetries:      10,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		Multiplier:      2.0,
		JitterFactor:    0,
	}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	result := New(cfg).Do(ctx, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})

	if !errors.Is(result.Err, ErrContextCanceled) {
		t.Errorf("Err = %v, want ErrContextCanceled", result.Err)
	}
	if result.Attempts < 2 {
		t.Errorf("Attempts = %d, want >= 2", result.Attempts)
	}
}

func TestRetrier_DoWithCallback_RunsBeforeEachWait(t *testing.T) {
	attempts := 0
	callbackCalls := 0
	result := New(fastConfig(3)).DoWithCallback(context.Background(),
		func(ctx context.Context) error {
			attempts++
			if attempts < 3 {
				return errors.New("error")
			}
			return nil
		},
		func(attempt int, err error, nextInterval time.Duration) {
			callbackCalls++
		},
	)

	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if callbackCalls != 2 {
		t.Errorf("callback calls = %d, want 2", callbackCalls)
	}
}

func TestBackoffInterval_GrowsAndCaps(t *testing.T) {
	r := New(&Config{
		MaxRetries:      5,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second}, // 32s capped
		{6, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := r.backoffInterval(tt.attempt); got != tt.want {
			t.Errorf("backoffInterval(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffInterval_JitterStaysBounded(t *testing.T) {
	r := New(&Config{
		MaxRetries:      5,
		InitialInterval: 1 * time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2.0,
		JitterFactor:    0.1,
	})

	min := time.Duration(float64(time.Second) * 0.9)
	max := time.Duration(float64(time.Second) * 1.1)
	seen := make(map[time.Duration]bool)
	for i := 0; i < 100; i++ {
		interval := r.backoffInterval(0)
		seen[interval] = true
		if interval < min || interval > max {
			t.Fatalf("backoffInterval(0) = %v, want within [%v, %v]", interval, min, max)
		}
	}
	if len(seen) < 3 {
		t.Errorf("expected jitter to vary, got %d unique intervals", len(seen))
	}
}

func TestDo_Convenience(t *testing.T) {
	attempts := 0
	result := Do(context.Background(), fastConfig(2), func(ctx context.Context) error {
		attempts++
		return nil
	})

	if result.Err != nil {
		t.Errorf("Err = %v, want nil", result.Err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

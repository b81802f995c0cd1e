package retry

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fleetscan/fleetscan/pkg/defaults"
	"github.com/fleetscan/fleetscan/pkg/duration"
)

// fakeSleeper records delays without actually sleeping.
type fakeSleeper struct {
	delays []time.Duration
}

func (f *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.delays = append(f.delays, d)
	return nil
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	if cfg.MaxAttempts != defaults.RetryMedium {
		t.Errorf("MaxAttempts = %d, want %d", cfg.MaxAttempts, defaults.RetryMedium)
	}
	if cfg.InitDelay != duration.BackoffInitial {
		t.Errorf("InitDelay = %v, want %v", cfg.InitDelay, duration.BackoffInitial)
	}
	if cfg.MaxDelay != duration.BackoffMax {
		t.Errorf("MaxDelay = %v, want %v", cfg.MaxDelay, duration.BackoffMax)
	}
	if cfg.Strategy != Exponential {
		t.Errorf("Strategy = %v, want Exponential", cfg.Strategy)
	}
	if !cfg.Jitter {
		t.Error("Jitter should be enabled by default")
	}
}

func TestDo_SucceedsFirstTry(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	err := doWithSleeper(context.Background(), DefaultConfig(), func() error {
		return nil
	}, s)
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(s.delays) != 0 {
		t.Fatalf("expected 0 sleeps, got %d", len(s.delays))
	}
}

func TestDo_SucceedsAfterRetry(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	s := &fakeSleeper{}
	cfg := Config{MaxAttempts: 3, InitDelay: time.Second, MaxDelay: 30 * time.Second, Strategy: Exponential}

	err := doWithSleeper(context.Background(), cfg, func() error {
		if calls.Add(1) < 3 {
			return errors.New("temporary")
		}
		return nil
	}, s)

	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 calls, got %d", got)
	}
	if len(s.delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(s.delays))
	}
}

func TestDo_AllAttemptsFailReturnsLastError(t *testing.T) {
	t.Parallel()
	s := &fakeSleeper{}
	sentinel := errors.New("always fail")
	cfg := Config{MaxAttempts: 3, InitDelay: time.Second, MaxDelay: 30 * time.Second, Strategy: Constant}

	err := doWithSleeper(context.Background(), cfg, func() error {
		return sentinel
	}, s)

	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel error, got %v", err)
	}
	// No sleep after the final attempt.
	if len(s.delays) != 2 {
		t.Fatalf("expected 2 sleeps, got %d", len(s.delays))
	}
}

func TestDo_StopErrorReturnsImmediately(t *testing.T) {
	t.Parallel()
	var calls int
	s := &fakeSleeper{}
	permanent := errors.New("client error: 403")
	cfg := Config{MaxAttempts: 5, InitDelay: time.Second, Strategy: Constant}

	err := doWithSleeper(context.Background(), cfg, func() error {
		calls++
		return Stop(permanent)
	}, s)

	if calls != 1 {
		t.Fatalf("expected 1 call (stop on first), got %d", calls)
	}
	if !errors.Is(err, permanent) {
		t.Fatalf("expected permanent error, got %v", err)
	}
	if len(s.delays) != 0 {
		t.Fatalf("expected 0 sleeps, got %d", len(s.delays))
	}
}

func TestDo_ZeroAttemptsIsNoOp(t *testing.T) {
	t.Parallel()
	called := false
	err := Do(context.Background(), Config{MaxAttempts: 0}, func() error {
		called = true
		return errors.New("should not run")
	})
	if err != nil {
		t.Fatalf("expected nil for zero attempts, got %v", err)
	}
	if called {
		t.Fatal("fn should not be called with MaxAttempts=0")
	}
}

func TestDo_CancelledContextSkipsFn(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, DefaultConfig(), func() error {
		t.Error("fn should not be called when context is cancelled")
		return nil
	})

	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDo_ContextCancelsSleep(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	cfg := Config{
		MaxAttempts: 5,
		InitDelay:   10 * time.Second, // long delay, must be interrupted
		MaxDelay:    10 * time.Second,
		Strategy:    Constant,
	}

	start := time.Now()
	err := Do(ctx, cfg, func() error {
		return errors.New("fail")
	})
	elapsed := time.Since(start)

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("took %v, expected <1s (context should cancel sleep)", elapsed)
	}
}

func TestDo_BackoffSequences(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		strategy Strategy
		want     []time.Duration
	}{
		{"exponential", Exponential, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}},
		{"linear", Linear, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}},
		{"constant", Constant, []time.Duration{time.Second, time.Second, time.Second}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := &fakeSleeper{}
			cfg := Config{
				MaxAttempts: 4,
				InitDelay:   time.Second,
				MaxDelay:    30 * time.Second,
				Strategy:    tt.strategy,
			}

			_ = doWithSleeper(context.Background(), cfg, func() error {
				return errors.New("fail")
			}, s)

			if len(s.delays) != len(tt.want) {
				t.Fatalf("expected %d delays, got %d: %v", len(tt.want), len(s.delays), s.delays)
			}
			for i, w := range tt.want {
				if s.delays[i] != w {
					t.Errorf("delay[%d] = %v, want %v", i, s.delays[i], w)
				}
			}
		})
	}
}

func TestCalcDelay_MaxDelayCapsGrowth(t *testing.T) {
	t.Parallel()
	cfg := Config{
		MaxAttempts: 5,
		InitDelay:   time.Second,
		MaxDelay:    3 * time.Second,
		Strategy:    Exponential,
	}

	// 1s, 2s, then 4s and 8s both capped to 3s.
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 3 * time.Second}
	for i, w := range want {
		if got := CalcDelay(cfg, i); got != w {
			t.Errorf("CalcDelay(attempt=%d) = %v, want %v", i, got, w)
		}
	}
}

func TestCalcDelay_JitterStaysInRange(t *testing.T) {
	t.Parallel()
	cfg := Config{
		MaxAttempts: 2,
		InitDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		Strategy:    Constant,
		Jitter:      true,
	}

	seen := make(map[time.Duration]bool)
	for range 100 {
		delay := CalcDelay(cfg, 0)
		seen[delay] = true
		// ±25% jitter on 1s lands in [750ms, 1250ms].
		if delay < 750*time.Millisecond || delay > 1250*time.Millisecond {
			t.Fatalf("delay %v outside expected jitter range [750ms, 1250ms]", delay)
		}
	}

	if len(seen) < 2 {
		t.Fatal("jitter produced no variation across 100 runs")
	}
}

func TestCalcDelay_ExponentialFormula(t *testing.T) {
	t.Parallel()
	cfg := Config{
		InitDelay: duration.BackoffInitial,
		MaxDelay:  duration.BackoffMax,
		Strategy:  Exponential,
	}
	for attempt := 0; attempt < 5; attempt++ {
		got := CalcDelay(cfg, attempt)
		want := cfg.InitDelay * time.Duration(math.Pow(2, float64(attempt)))
		if want > cfg.MaxDelay {
			want = cfg.MaxDelay
		}
		if got != want {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, want)
		}
	}
}

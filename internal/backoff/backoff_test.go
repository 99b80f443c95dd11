package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSequence(t *testing.T) {
	b := New(Config{
		Initial:    100 * time.Millisecond,
		Max:        500 * time.Millisecond,
		Multiplier: 2.0,
		Jitter:     -1,
	})

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		500 * time.Millisecond,
		500 * time.Millisecond,
	}

	for i, exp := range expected {
		if got := b.Next(); got != exp {
			t.Errorf("Attempt %d: got %v, want %v", i, got, exp)
		}
	}
}

func TestDefaults(t *testing.T) {
	b := New(Config{})

	if b.Current() != DefaultInitial {
		t.Errorf("Current() = %v, want %v", b.Current(), DefaultInitial)
	}
	for range 20 {
		b.Next()
	}
	if b.Current() != DefaultMax {
		t.Errorf("Current() = %v after many attempts, want %v", b.Current(), DefaultMax)
	}
}

func TestMaxBelowInitial(t *testing.T) {
	b := New(Config{Initial: time.Second, Max: time.Millisecond, Jitter: -1})

	if got := b.Next(); got != time.Second {
		t.Errorf("first delay = %v, want 1s", got)
	}
	if got := b.Next(); got != time.Second {
		t.Errorf("second delay = %v, want 1s", got)
	}
}

func TestJitter(t *testing.T) {
	samples := make([]time.Duration, 20)
	for i := range samples {
		samples[i] = New(Config{Initial: time.Second}).Next()
	}

	upper := time.Duration(float64(time.Second) * (1 + DefaultJitter))
	for i, s := range samples {
		if s < time.Second || s > upper {
			t.Errorf("Sample %d: %v out of expected range [1s, %v]", i, s, upper)
		}
	}

	allSame := true
	for _, s := range samples[1:] {
		if s != samples[0] {
			allSame = false
			break
		}
	}
	if allSame {
		t.Error("All jittered samples are identical - jitter may not be working")
	}
}

func TestResetAndAttempts(t *testing.T) {
	b := New(Config{Jitter: -1})

	for i := 1; i <= 5; i++ {
		b.Next()
		if b.Attempts() != i {
			t.Errorf("After %d calls, Attempts() = %d", i, b.Attempts())
		}
	}
	if b.Current() <= DefaultInitial {
		t.Error("Backoff should have increased")
	}

	b.Reset()

	if b.Current() != DefaultInitial {
		t.Errorf("Current() = %v after reset, want %v", b.Current(), DefaultInitial)
	}
	if b.Attempts() != 0 {
		t.Errorf("Attempts() = %d after reset, want 0", b.Attempts())
	}
}

func TestWait(t *testing.T) {
	b := New(Config{Initial: time.Millisecond, Jitter: -1})

	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Wait() = %v", err)
	}

	slow := New(Config{Initial: time.Hour})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := slow.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Wait did not return promptly on cancel")
	}
}

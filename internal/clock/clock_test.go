package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFakeRecordsSleeps(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f := NewFake(start)

	for _, d := range []time.Duration{5 * time.Second, 100 * time.Millisecond, 5 * time.Second} {
		if err := f.Sleep(context.Background(), d); err != nil {
			t.Fatalf("Sleep: %v", err)
		}
	}

	if got := f.Count(5 * time.Second); got != 2 {
		t.Errorf("Count(5s) = %d, want 2", got)
	}
	if got := f.Now().Sub(start); got != 10100*time.Millisecond {
		t.Errorf("elapsed = %v, want 10.1s", got)
	}
}

func TestFakeHonoursCancel(t *testing.T) {
	f := NewFake(time.Time{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := f.Sleep(ctx, time.Second); !errors.Is(err, context.Canceled) {
		t.Fatalf("Sleep on cancelled ctx = %v, want context.Canceled", err)
	}
	if len(f.Sleeps()) != 0 {
		t.Errorf("cancelled sleep was recorded")
	}
}

func TestRealSleepCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := Real().Sleep(ctx, time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Sleep = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Errorf("Sleep did not return promptly on cancel")
	}
}

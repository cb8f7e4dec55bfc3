package watcher

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestNewDebouncer(t *testing.T) {
	t.Run("default duration", func(t *testing.T) {
		d := NewDebouncer(0, func() {})
		if d.Duration() != DefaultDebounce {
			t.Errorf("Duration() = %v, want %v", d.Duration(), DefaultDebounce)
		}
	})

	t.Run("custom duration", func(t *testing.T) {
		d := NewDebouncer(75*time.Millisecond, func() {})
		if d.Duration() != 75*time.Millisecond {
			t.Errorf("Duration() = %v", d.Duration())
		}
	})
}

func TestDebouncerCoalesces(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(100*time.Millisecond, func() { calls.Add(1) })

	for i := 0; i < 5; i++ {
		d.Trigger()
		time.Sleep(10 * time.Millisecond)
	}
	if !d.Pending() {
		t.Error("expected a pending call")
	}

	time.Sleep(250 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("fn called %d times, want 1", got)
	}
	if d.Pending() {
		t.Error("nothing should be pending after firing")
	}
}

func TestDebouncerSeparateBursts(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	time.Sleep(120 * time.Millisecond)
	d.Trigger()
	time.Sleep(120 * time.Millisecond)

	if got := calls.Load(); got != 2 {
		t.Errorf("fn called %d times, want 2", got)
	}
}

func TestDebouncerStop(t *testing.T) {
	var calls atomic.Int32
	d := NewDebouncer(50*time.Millisecond, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	time.Sleep(120 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("fn called %d times after Stop, want 0", got)
	}

	// Stop with nothing pending is a no-op.
	d.Stop()
}

package timeutil

import (
	"testing"
	"time"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	before := time.Now()
	now := c.Now()
	if now.Before(before) {
		t.Errorf("Now() = %v, before %v", now, before)
	}
	if c.Since(before) < 0 {
		t.Error("Since() should be non-negative")
	}
}

func TestMockClock_SetAndAdvance(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	if got := c.Now(); !got.Equal(start) {
		t.Errorf("Now() = %v, want %v", got, start)
	}

	c.Advance(90 * time.Second)
	if got := c.Since(start); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}

	later := start.Add(24 * time.Hour)
	c.Set(later)
	if got := c.Now(); !got.Equal(later) {
		t.Errorf("Now() after Set = %v, want %v", got, later)
	}
}

func TestMockClock_Step(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	c.SetStep(time.Second)

	first := c.Now()
	second := c.Now()
	if second.Sub(first) != time.Second {
		t.Errorf("step between Now calls = %v, want 1s", second.Sub(first))
	}
	if got := c.Since(first); got != 2*time.Second {
		t.Errorf("Since(first) = %v, want 2s", got)
	}
}

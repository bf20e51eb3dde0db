package timeutil

import (
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}
	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("RealClock.Now() = %v, expected between %v and %v", now, before, after)
	}
}

func TestRealClock_Since(t *testing.T) {
	clock := RealClock{}
	past := time.Now().Add(-time.Second)
	if since := clock.Since(past); since < time.Second {
		t.Errorf("RealClock.Since() = %v, expected >= 1s", since)
	}
}

func TestMockClock_Now(t *testing.T) {
	fixed := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(fixed)
	if got := clock.Now(); !got.Equal(fixed) {
		t.Errorf("MockClock.Now() = %v, want %v", got, fixed)
	}
}

func TestMockClock_Set(t *testing.T) {
	clock := NewMockClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))
	newTime := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	clock.Set(newTime)
	if got := clock.Now(); !got.Equal(newTime) {
		t.Errorf("after Set, Now() = %v, want %v", got, newTime)
	}
}

func TestMockClock_AdvanceAndSince(t *testing.T) {
	start := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	clock := NewMockClock(start)
	clock.Advance(90 * time.Second)

	if got := clock.Since(start); got != 90*time.Second {
		t.Errorf("Since() = %v, want 90s", got)
	}
}

func TestFrameStamp(t *testing.T) {
	start := time.Unix(1000, 0)
	tests := []struct {
		name  string
		frame int
		fps   float64
		want  int64
	}{
		{"first frame", 0, 25, 100000},
		{"inside first second", 3, 25, 100000 + 12},
		{"second boundary", 25, 25, 100100},
		{"second second", 26, 25, 100100 + 4},
		{"ten fps", 15, 10, 100100 + 50},
		{"zero fps clamps", 2, 0, 100200},
		{"ntsc rate truncates", 29, 29.97, 100000},
		{"ntsc rate inside second", 28, 29.97, 100000 + 84},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FrameStamp(start, tt.frame, tt.fps); got != tt.want {
				t.Errorf("FrameStamp(%d, %v) = %d, want %d", tt.frame, tt.fps, got, tt.want)
			}
		})
	}
}

func TestFromStamp(t *testing.T) {
	got := FromStamp(100050)
	want := time.Unix(1000, 500*int64(time.Millisecond))
	if !got.Equal(want) {
		t.Errorf("FromStamp = %v, want %v", got, want)
	}
}

package availability

import (
	"errors"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	// 2026-03-02 is a Monday.
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

func TestOverlapsIsSymmetric(t *testing.T) {
	cases := [][4]time.Time{
		{at(9, 0), at(10, 0), at(9, 30), at(11, 0)},
		{at(9, 0), at(10, 0), at(10, 0), at(11, 0)},
		{at(9, 0), at(12, 0), at(10, 0), at(11, 0)},
		{at(9, 0), at(10, 0), at(13, 0), at(14, 0)},
	}
	for _, c := range cases {
		if Overlaps(c[0], c[1], c[2], c[3]) != Overlaps(c[2], c[3], c[0], c[1]) {
			t.Fatalf("overlap not symmetric for %v", c)
		}
	}
}

func TestTouchingIntervalsDoNotOverlap(t *testing.T) {
	if Overlaps(at(9, 0), at(10, 0), at(10, 0), at(11, 0)) {
		t.Fatal("touching intervals must not overlap")
	}
	if !Overlaps(at(9, 0), at(10, 1), at(10, 0), at(11, 0)) {
		t.Fatal("expected one minute of overlap")
	}
}

func TestNewIntervalRejectsEmpty(t *testing.T) {
	if _, err := NewInterval(at(10, 0), at(10, 0)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if _, err := NewInterval(at(10, 0), at(9, 0)); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

func TestExpandWithBuffer(t *testing.T) {
	iv := Interval{Start: at(10, 0), End: at(11, 0)}.ExpandWithBuffer(30 * time.Minute)
	if !iv.Start.Equal(at(9, 30)) || !iv.End.Equal(at(11, 30)) {
		t.Fatalf("unexpected expanded interval %s", iv)
	}
}

func TestFormatClock(t *testing.T) {
	for minute, want := range map[int]string{0: "00:00", 570: "09:30", 1440: "24:00"} {
		if got := FormatClock(minute); got != want {
			t.Fatalf("FormatClock(%d) = %q, want %q", minute, got, want)
		}
	}
}

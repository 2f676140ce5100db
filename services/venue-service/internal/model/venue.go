package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrValidation = errors.New("validation failed")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

type Venue struct {
	ID                string
	HostID            string
	Name              string
	Timezone          string
	MinBookingMinutes int
	MaxBookingMinutes *int
	BufferMinutes     int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (v Venue) Validate() error {
	if strings.TrimSpace(v.Name) == "" {
		return invalid("name is required")
	}
	if v.MinBookingMinutes <= 0 {
		return invalid("min_booking_minutes must be positive")
	}
	if v.MaxBookingMinutes != nil && *v.MaxBookingMinutes < v.MinBookingMinutes {
		return invalid("max_booking_minutes must be at least min_booking_minutes")
	}
	if v.BufferMinutes < 0 {
		return invalid("buffer_minutes must not be negative")
	}
	if _, err := time.LoadLocation(v.Timezone); err != nil || v.Timezone == "" {
		return invalid("unknown timezone %q", v.Timezone)
	}
	return nil
}

const minutesPerDay = 24 * 60

// Rule is one weekly opening window. Several rules may share a weekday.
type Rule struct {
	ID          string
	VenueID     string
	DayOfWeek   int
	OpenMinute  int
	CloseMinute int
}

func (r Rule) Validate() error {
	if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
		return invalid("day_of_week must be between 0 and 6")
	}
	if r.OpenMinute < 0 || r.CloseMinute > minutesPerDay || r.OpenMinute >= r.CloseMinute {
		return invalid("open_time must be before close_time")
	}
	return nil
}

type Blackout struct {
	ID        string
	VenueID   string
	Start     time.Time
	End       time.Time
	Reason    string
	CreatedAt time.Time
}

func (b Blackout) Validate() error {
	if !b.End.After(b.Start) {
		return invalid("end must be after start")
	}
	return nil
}

// ParseClock converts "HH:MM" into minutes after midnight; "24:00" is the
// end of the day.
func ParseClock(raw string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, invalid("time %q must be HH:MM", raw)
	}
	h, errH := strconv.Atoi(hh)
	m, errM := strconv.Atoi(mm)
	if errH != nil || errM != nil || h < 0 || h > 24 || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, invalid("time %q out of range", raw)
	}
	return h*60 + m, nil
}

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

package availability

import (
	"fmt"
	"time"
)

type Reason string

const (
	ReasonInvalidInterval       Reason = "InvalidInterval"
	ReasonDurationOutOfRange    Reason = "DurationOutOfRange"
	ReasonOutsideOperatingHours Reason = "OutsideOperatingHours"
	ReasonBlackedOut            Reason = "BlackedOut"
	ReasonBookingConflict       Reason = "BookingConflict"
)

// timeBased reports whether a different start time could clear the reason.
func (r Reason) timeBased() bool {
	switch r {
	case ReasonOutsideOperatingHours, ReasonBlackedOut, ReasonBookingConflict:
		return true
	default:
		return false
	}
}

// Venue carries the booking constraints of a venue. MaxBookingMinutes of
// zero means no upper bound.
type Venue struct {
	ID                string
	Timezone          string
	MinBookingMinutes int
	MaxBookingMinutes int
	BufferMinutes     int
}

func (v Venue) Buffer() time.Duration {
	return time.Duration(v.BufferMinutes) * time.Minute
}

func (v Venue) durationAllowed(minutes int) bool {
	if minutes < v.MinBookingMinutes {
		return false
	}
	return v.MaxBookingMinutes <= 0 || minutes <= v.MaxBookingMinutes
}

// Snapshot is everything needed to answer an availability question for one
// venue. Bookings should already be limited to occupying ones but are
// filtered again during evaluation.
type Snapshot struct {
	Venue     Venue
	Location  *time.Location
	Rules     []Rule
	Blackouts []Blackout
	Bookings  []Booking
}

type Result struct {
	Available bool
	// Reasons lists every failed check in evaluation order.
	Reasons   []Reason
	Conflicts []string
	Suggested []time.Time
}

// Reason returns the first failure reason, or "" when available.
func (r Result) Reason() Reason {
	if len(r.Reasons) == 0 {
		return ""
	}
	return r.Reasons[0]
}

func (r Result) Has(reason Reason) bool {
	for _, got := range r.Reasons {
		if got == reason {
			return true
		}
	}
	return false
}

// Evaluate decides whether [start, start+durationMinutes) is bookable. It does
// no I/O and returns ErrInvalidInterval only for malformed input.
func Evaluate(s Snapshot, start time.Time, durationMinutes int) (Result, error) {
	if durationMinutes <= 0 {
		return Result{}, ErrInvalidInterval
	}
	candidate, err := NewInterval(start, start.Add(time.Duration(durationMinutes)*time.Minute))
	if err != nil {
		return Result{}, err
	}
	if !s.Venue.durationAllowed(durationMinutes) {
		return Result{
			Reasons:   []Reason{ReasonDurationOutOfRange},
			Conflicts: []string{durationMessage(s.Venue, durationMinutes)},
		}, nil
	}
	return evaluateInterval(s, candidate), nil
}

func evaluateInterval(s Snapshot, candidate Interval) Result {
	var res Result

	if !WithinRules(candidate, s.Rules, s.Location) {
		res.Reasons = append(res.Reasons, ReasonOutsideOperatingHours)
		res.Conflicts = append(res.Conflicts, "outside operating hours")
	}
	if hit, blackouts := BlackedOut(candidate, s.Blackouts); hit {
		res.Reasons = append(res.Reasons, ReasonBlackedOut)
		for _, b := range blackouts {
			msg := "blackout " + b.Interval().String()
			if b.Reason != "" {
				msg += ": " + b.Reason
			}
			res.Conflicts = append(res.Conflicts, msg)
		}
	}
	if bookings := Conflicts(candidate, s.Venue.Buffer(), s.Bookings); len(bookings) > 0 {
		res.Reasons = append(res.Reasons, ReasonBookingConflict)
		for _, b := range bookings {
			res.Conflicts = append(res.Conflicts, fmt.Sprintf("booking %s %s", b.ID, b.Interval()))
		}
	}

	res.Available = len(res.Reasons) == 0
	return res
}

// passes is evaluateInterval without building the report.
func passes(s Snapshot, candidate Interval) bool {
	if !WithinRules(candidate, s.Rules, s.Location) {
		return false
	}
	if hit, _ := BlackedOut(candidate, s.Blackouts); hit {
		return false
	}
	return !HasConflict(candidate, s.Venue.Buffer(), s.Bookings)
}

func durationMessage(v Venue, minutes int) string {
	if v.MaxBookingMinutes > 0 {
		return fmt.Sprintf("duration %d minutes outside allowed range %d-%d", minutes, v.MinBookingMinutes, v.MaxBookingMinutes)
	}
	return fmt.Sprintf("duration %d minutes below minimum %d", minutes, v.MinBookingMinutes)
}

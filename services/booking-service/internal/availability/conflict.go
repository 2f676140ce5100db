package availability

import (
	"time"

	"github.com/venuebook/venuebook/services/booking-service/internal/model"
)

type Booking struct {
	ID     string
	Start  time.Time
	End    time.Time
	Status model.BookingStatus
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// Conflicts returns the occupying bookings whose buffer-expanded interval
// overlaps the candidate. The candidate itself is not expanded.
func Conflicts(candidate Interval, buffer time.Duration, existing []Booking) []Booking {
	var out []Booking
	for _, b := range existing {
		if !b.Status.Occupying() {
			continue
		}
		padded := b.Interval().ExpandWithBuffer(buffer)
		if candidate.Overlaps(padded) {
			out = append(out, b)
		}
	}
	return out
}

func HasConflict(candidate Interval, buffer time.Duration, existing []Booking) bool {
	for _, b := range existing {
		if b.Status.Occupying() && candidate.Overlaps(b.Interval().ExpandWithBuffer(buffer)) {
			return true
		}
	}
	return false
}

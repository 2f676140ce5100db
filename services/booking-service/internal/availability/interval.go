package availability

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidInterval = errors.New("invalid interval: end must be after start")

// Interval is a half-open range [Start, End) of UTC instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start, end time.Time) (Interval, error) {
	if !end.After(start) {
		return Interval{}, ErrInvalidInterval
	}
	return Interval{Start: start.UTC(), End: end.UTC()}, nil
}

// Overlaps reports whether [aStart,aEnd) and [bStart,bEnd) share any instant.
// Touching endpoints do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func (iv Interval) Overlaps(other Interval) bool {
	return Overlaps(iv.Start, iv.End, other.Start, other.End)
}

func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// ExpandWithBuffer pads both sides by buffer.
func (iv Interval) ExpandWithBuffer(buffer time.Duration) Interval {
	return Interval{Start: iv.Start.Add(-buffer), End: iv.End.Add(buffer)}
}

func (iv Interval) String() string {
	return iv.Start.UTC().Format(time.RFC3339) + "/" + iv.End.UTC().Format(time.RFC3339)
}

// MinutesPerDay is also the largest valid close minute ("24:00").
const MinutesPerDay = 24 * 60

func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}

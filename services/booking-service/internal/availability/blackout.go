package availability

import "time"

// Blackout is a host-declared unavailable range. It overrides operating hours.
type Blackout struct {
	ID     string
	Start  time.Time
	End    time.Time
	Reason string
}

func (b Blackout) Interval() Interval {
	return Interval{Start: b.Start, End: b.End}
}

// BlackedOut returns true and the offending blackouts when the candidate
// intersects any of them.
func BlackedOut(candidate Interval, blackouts []Blackout) (bool, []Blackout) {
	var hits []Blackout
	for _, b := range blackouts {
		if Overlaps(candidate.Start, candidate.End, b.Start, b.End) {
			hits = append(hits, b)
		}
	}
	return len(hits) > 0, hits
}

package availability

import (
	"fmt"
	"slices"
	"time"
)

// Rule is a recurring weekly opening window in venue-local wall-clock time,
// [OpenMinute, CloseMinute) minutes after midnight on DayOfWeek.
type Rule struct {
	DayOfWeek   time.Weekday
	OpenMinute  int
	CloseMinute int
}

func (r Rule) Validate() error {
	if r.DayOfWeek < time.Sunday || r.DayOfWeek > time.Saturday {
		return fmt.Errorf("day_of_week %d out of range 0-6", r.DayOfWeek)
	}
	if r.OpenMinute < 0 || r.CloseMinute > MinutesPerDay || r.OpenMinute >= r.CloseMinute {
		return fmt.Errorf("invalid window %s-%s: open must be before close", FormatClock(r.OpenMinute), FormatClock(r.CloseMinute))
	}
	return nil
}

// WithinRules reports whether every local day the candidate touches has
// opening windows whose union fully covers the candidate's part of that day.
// A day without rules is closed.
func WithinRules(candidate Interval, rules []Rule, loc *time.Location) bool {
	if !candidate.End.After(candidate.Start) {
		return false
	}
	if loc == nil {
		loc = time.UTC
	}

	// Walk civil dates rather than instants: where local midnight does not
	// exist, time.Date normalises it into the previous day.
	y, m, d := candidate.Start.In(loc).Date()
	for {
		day := time.Date(y, m, d, 0, 0, 0, 0, loc)
		if !day.Before(candidate.End) {
			return true
		}
		next := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		if !next.After(day) {
			return false
		}
		part := Interval{Start: laterOf(candidate.Start, day), End: earlierOf(candidate.End, next)}
		if part.End.After(part.Start) && !coveredByAny(part, dayWindows(y, m, d, rules, loc)) {
			return false
		}
		d++
	}
}

// dayWindows materialises the rules for the civil date y-m-d as merged
// absolute intervals. time.Date keeps wall-clock semantics across DST changes.
func dayWindows(y int, m time.Month, d int, rules []Rule, loc *time.Location) []Interval {
	weekday := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Weekday()
	var windows []Interval
	for _, r := range rules {
		if r.DayOfWeek != weekday || r.Validate() != nil {
			continue
		}
		open := time.Date(y, m, d, 0, r.OpenMinute, 0, 0, loc)
		closing := time.Date(y, m, d, 0, r.CloseMinute, 0, 0, loc)
		if closing.After(open) {
			windows = append(windows, Interval{Start: open, End: closing})
		}
	}
	return mergeIntervals(windows)
}

// mergeIntervals sorts and joins overlapping or touching intervals.
func mergeIntervals(in []Interval) []Interval {
	if len(in) < 2 {
		return in
	}
	sorted := slices.Clone(in)
	slices.SortFunc(sorted, func(a, b Interval) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return a.End.Compare(b.End)
	})

	merged := sorted[:1]
	for _, cur := range sorted[1:] {
		last := &merged[len(merged)-1]
		if cur.Start.After(last.End) {
			merged = append(merged, cur)
			continue
		}
		if cur.End.After(last.End) {
			last.End = cur.End
		}
	}
	return merged
}

func coveredByAny(part Interval, windows []Interval) bool {
	for _, w := range windows {
		if w.Contains(part) {
			return true
		}
	}
	return false
}

func laterOf(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

func earlierOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

package availability

import "time"

const (
	DefaultSuggestStep    = 15 * time.Minute
	DefaultSuggestHorizon = 14 * 24 * time.Hour
	DefaultSuggestMax     = 3
)

type SuggestOptions struct {
	Step    time.Duration
	Horizon time.Duration
	Max     int
	// Now excludes starts in the past. Zero disables the check.
	Now time.Time
}

func (o SuggestOptions) withDefaults() SuggestOptions {
	if o.Step <= 0 {
		o.Step = DefaultSuggestStep
	}
	if o.Horizon <= 0 {
		o.Horizon = DefaultSuggestHorizon
	}
	if o.Max <= 0 {
		o.Max = DefaultSuggestMax
	}
	return o
}

// Suggest scans forward from start in step increments and returns up to
// opts.Max start times of the same duration that pass every check. The scan
// stops at start+horizon. The snapshot must hold blackouts and bookings for
// that whole range.
func Suggest(s Snapshot, start time.Time, durationMinutes int, opts SuggestOptions) []time.Time {
	if durationMinutes <= 0 || !s.Venue.durationAllowed(durationMinutes) {
		return nil
	}
	opts = opts.withDefaults()
	length := time.Duration(durationMinutes) * time.Minute
	limit := start.Add(opts.Horizon)

	t := start.UTC().Truncate(opts.Step)
	if !t.After(start) {
		t = t.Add(opts.Step)
	}

	var out []time.Time
	for ; !t.After(limit) && len(out) < opts.Max; t = t.Add(opts.Step) {
		if !opts.Now.IsZero() && t.Before(opts.Now) {
			continue
		}
		if passes(s, Interval{Start: t, End: t.Add(length)}) {
			out = append(out, t)
		}
	}
	return out
}

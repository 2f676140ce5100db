package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

var ErrVenueNotFound = errors.New("venue not found")

type VenueStore interface {
	GetVenue(ctx context.Context, venueID string) (Venue, error)
}

type RuleStore interface {
	ListRules(ctx context.Context, venueID string) ([]Rule, error)
}

// BlackoutStore returns blackouts overlapping [from, to).
type BlackoutStore interface {
	ListBlackouts(ctx context.Context, venueID string, from, to time.Time) ([]Blackout, error)
}

// BookingStore returns occupying bookings overlapping [from, to).
type BookingStore interface {
	ListOccupying(ctx context.Context, venueID string, from, to time.Time) ([]Booking, error)
}

// DefaultMaxBookingMinutes caps bookings on venues without a maximum of
// their own.
const DefaultMaxBookingMinutes = 31 * 24 * 60

type Options struct {
	// DefaultLocation is used when a venue has no timezone of its own.
	DefaultLocation *time.Location
	// MaxBookingMinutes is the longest booking any venue accepts. A venue
	// maximum above it is lowered to it.
	MaxBookingMinutes int
	Suggest           SuggestOptions
	Now               func() time.Time
}

// Resolver loads a venue's schedule through the injected stores and runs
// Evaluate over it. It holds no per-call state.
type Resolver struct {
	venues    VenueStore
	rules     RuleStore
	blackouts BlackoutStore
	bookings  BookingStore
	opts      Options
}

func NewResolver(venues VenueStore, rules RuleStore, blackouts BlackoutStore, bookings BookingStore, opts Options) *Resolver {
	if opts.DefaultLocation == nil {
		opts.DefaultLocation = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MaxBookingMinutes <= 0 {
		opts.MaxBookingMinutes = DefaultMaxBookingMinutes
	}
	opts.Suggest = opts.Suggest.withDefaults()
	return &Resolver{venues: venues, rules: rules, blackouts: blackouts, bookings: bookings, opts: opts}
}

// WithBookings returns a copy that reads bookings from store. The booking
// write path uses it to re-check against rows visible inside its transaction.
func (r *Resolver) WithBookings(store BookingStore) *Resolver {
	cp := *r
	cp.bookings = store
	return &cp
}

type CheckOptions struct {
	// Suggest is the number of alternative starts wanted when unavailable.
	Suggest int
}

func (r *Resolver) Check(ctx context.Context, venueID string, start time.Time, durationMinutes int, opts CheckOptions) (Result, error) {
	if durationMinutes <= 0 {
		return Result{}, ErrInvalidInterval
	}
	venue, err := r.venues.GetVenue(ctx, venueID)
	if err != nil {
		return Result{}, fmt.Errorf("load venue %s: %w", venueID, err)
	}
	loc, err := r.location(venue)
	if err != nil {
		return Result{}, err
	}
	if venue.MaxBookingMinutes <= 0 || venue.MaxBookingMinutes > r.opts.MaxBookingMinutes {
		venue.MaxBookingMinutes = r.opts.MaxBookingMinutes
	}
	if !venue.durationAllowed(durationMinutes) {
		// Decided by the venue alone; no schedule is loaded for it.
		return Evaluate(Snapshot{Venue: venue, Location: loc}, start, durationMinutes)
	}

	start = start.UTC()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	from, to := start.Add(-venue.Buffer()), end.Add(venue.Buffer())
	if opts.Suggest > 0 {
		to = to.Add(r.opts.Suggest.Horizon)
	}

	snap, err := r.load(ctx, venue, loc, from, to)
	if err != nil {
		return Result{}, err
	}

	res, err := Evaluate(snap, start, durationMinutes)
	if err != nil || res.Available || opts.Suggest <= 0 {
		return res, err
	}
	if wantsSuggestions(res) {
		so := r.opts.Suggest
		so.Max = opts.Suggest
		so.Now = r.opts.Now()
		res.Suggested = Suggest(snap, start, durationMinutes, so)
	}
	return res, nil
}

func (r *Resolver) load(ctx context.Context, venue Venue, loc *time.Location, from, to time.Time) (Snapshot, error) {
	snap := Snapshot{Venue: venue, Location: loc}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rules, err := r.rules.ListRules(gctx, venue.ID)
		if err != nil {
			return fmt.Errorf("load rules: %w", err)
		}
		snap.Rules = rules
		return nil
	})
	g.Go(func() error {
		blackouts, err := r.blackouts.ListBlackouts(gctx, venue.ID, from, to)
		if err != nil {
			return fmt.Errorf("load blackouts: %w", err)
		}
		snap.Blackouts = blackouts
		return nil
	})
	g.Go(func() error {
		bookings, err := r.bookings.ListOccupying(gctx, venue.ID, from, to)
		if err != nil {
			return fmt.Errorf("load bookings: %w", err)
		}
		snap.Bookings = bookings
		return nil
	})
	if err := g.Wait(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

func (r *Resolver) location(v Venue) (*time.Location, error) {
	if v.Timezone == "" {
		return r.opts.DefaultLocation, nil
	}
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return nil, fmt.Errorf("venue %s timezone %q: %w", v.ID, v.Timezone, err)
	}
	return loc, nil
}

// wantsSuggestions is false when only the duration is wrong, since no other
// start time can fix that.
func wantsSuggestions(res Result) bool {
	for _, reason := range res.Reasons {
		if reason.timeBased() {
			return true
		}
	}
	return false
}

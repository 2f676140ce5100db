package availability

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/venuebook/venuebook/services/booking-service/internal/model"
)

type fakeSchedule struct {
	venue     Venue
	venueErr  error
	rules     []Rule
	blackouts []Blackout
	bookings  []Booking
	listErr   error

	mu         sync.Mutex
	bookingWin [2]time.Time
}

func (f *fakeSchedule) GetVenue(_ context.Context, id string) (Venue, error) {
	if f.venueErr != nil {
		return Venue{}, f.venueErr
	}
	if id != f.venue.ID {
		return Venue{}, ErrVenueNotFound
	}
	return f.venue, nil
}

func (f *fakeSchedule) ListRules(context.Context, string) ([]Rule, error) {
	return f.rules, f.listErr
}

func (f *fakeSchedule) ListBlackouts(_ context.Context, _ string, from, to time.Time) ([]Blackout, error) {
	var out []Blackout
	for _, b := range f.blackouts {
		if Overlaps(b.Start, b.End, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeSchedule) ListOccupying(_ context.Context, _ string, from, to time.Time) ([]Booking, error) {
	f.mu.Lock()
	f.bookingWin = [2]time.Time{from, to}
	f.mu.Unlock()
	var out []Booking
	for _, b := range f.bookings {
		if b.Status.Occupying() && Overlaps(b.Start, b.End, from, to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func newFakeResolver(f *fakeSchedule, now time.Time) *Resolver {
	return NewResolver(f, f, f, f, Options{Now: func() time.Time { return now }})
}

func TestResolverCheckScenario(t *testing.T) {
	f := &fakeSchedule{
		venue:    Venue{ID: "v1", MinBookingMinutes: 30, BufferMinutes: 15},
		rules:    []Rule{rule(time.Monday, "09:00", "17:00")},
		bookings: []Booking{{ID: "b1", Start: at(9, 0), End: at(10, 0), Status: model.StatusConfirmed}},
	}
	r := newFakeResolver(f, at(8, 0))

	res, err := r.Check(context.Background(), "v1", at(10, 10), 30, CheckOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Available || res.Reason() != ReasonBookingConflict || len(res.Suggested) != 0 {
		t.Fatalf("expected conflict without suggestions, got %+v", res)
	}
	if !f.bookingWin[0].Equal(at(9, 55)) || !f.bookingWin[1].Equal(at(10, 55)) {
		t.Fatalf("expected buffer padded window, got %v", f.bookingWin)
	}

	res, err = r.Check(context.Background(), "v1", at(10, 15), 30, CheckOptions{})
	if err != nil || !res.Available {
		t.Fatalf("expected available, got %+v (%v)", res, err)
	}
}

func TestResolverSuggestions(t *testing.T) {
	f := &fakeSchedule{
		venue:    Venue{ID: "v1", MinBookingMinutes: 30},
		rules:    []Rule{rule(time.Monday, "09:00", "17:00")},
		bookings: []Booking{{ID: "b1", Start: at(9, 0), End: at(12, 0), Status: model.StatusConfirmed}},
	}
	r := newFakeResolver(f, at(8, 0))

	res, err := r.Check(context.Background(), "v1", at(10, 0), 60, CheckOptions{Suggest: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Suggested) != 2 || !res.Suggested[0].Equal(at(12, 0)) || !res.Suggested[1].Equal(at(12, 15)) {
		t.Fatalf("unexpected suggestions %v", res.Suggested)
	}
	if want := at(11, 0).Add(DefaultSuggestHorizon); !f.bookingWin[1].Equal(want) {
		t.Fatalf("expected window extended by horizon to %v, got %v", want, f.bookingWin[1])
	}
}

func TestResolverNoSuggestionsForDurationOnly(t *testing.T) {
	f := &fakeSchedule{
		venue: Venue{ID: "v1", MinBookingMinutes: 60},
		rules: []Rule{rule(time.Monday, "09:00", "17:00")},
	}
	res, err := newFakeResolver(f, at(8, 0)).Check(context.Background(), "v1", at(9, 0), 30, CheckOptions{Suggest: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason() != ReasonDurationOutOfRange || len(res.Suggested) != 0 {
		t.Fatalf("expected duration failure without suggestions, got %+v", res)
	}
}

func TestResolverCapsUnboundedDuration(t *testing.T) {
	f := &fakeSchedule{
		venue: Venue{ID: "v1", MinBookingMinutes: 30},
		rules: []Rule{rule(time.Monday, "00:00", "24:00")},
	}
	r := NewResolver(f, f, f, f, Options{
		MaxBookingMinutes: 600,
		Now:               func() time.Time { return at(0, 0) },
	})

	res, err := r.Check(context.Background(), "v1", at(9, 0), 576000, CheckOptions{Suggest: 3})
	if err != nil {
		t.Fatalf("expected a result, got error %v", err)
	}
	if res.Available || res.Reason() != ReasonDurationOutOfRange || len(res.Reasons) != 1 || len(res.Suggested) != 0 {
		t.Fatalf("expected duration failure alone, got %+v", res)
	}
	if !f.bookingWin[0].IsZero() {
		t.Fatalf("expected no schedule load for an over-long booking, got window %v", f.bookingWin)
	}

	res, err = r.Check(context.Background(), "v1", at(9, 0), 600, CheckOptions{})
	if err != nil || !res.Available {
		t.Fatalf("expected the ceiling itself to be bookable, got %+v (%v)", res, err)
	}
}

func TestResolverKeepsLowerVenueMaximum(t *testing.T) {
	f := &fakeSchedule{
		venue: Venue{ID: "v1", MinBookingMinutes: 30, MaxBookingMinutes: 120},
		rules: []Rule{rule(time.Monday, "09:00", "17:00")},
	}
	res, err := newFakeResolver(f, at(8, 0)).Check(context.Background(), "v1", at(9, 0), 180, CheckOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason() != ReasonDurationOutOfRange {
		t.Fatalf("expected venue maximum to apply, got %+v", res)
	}
}

func TestResolverPropagatesErrors(t *testing.T) {
	f := &fakeSchedule{venue: Venue{ID: "v1", MinBookingMinutes: 30}}
	r := newFakeResolver(f, at(8, 0))

	if _, err := r.Check(context.Background(), "missing", at(9, 0), 30, CheckOptions{}); !errors.Is(err, ErrVenueNotFound) {
		t.Fatalf("expected ErrVenueNotFound, got %v", err)
	}
	if _, err := r.Check(context.Background(), "v1", at(9, 0), 0, CheckOptions{}); !errors.Is(err, ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}

	boom := errors.New("connection reset")
	f.listErr = boom
	if _, err := r.Check(context.Background(), "v1", at(9, 0), 30, CheckOptions{}); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped fetch error, got %v", err)
	}
}

func TestResolverVenueTimezone(t *testing.T) {
	if _, err := time.LoadLocation("Europe/Berlin"); err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	f := &fakeSchedule{
		venue: Venue{ID: "v1", Timezone: "Europe/Berlin", MinBookingMinutes: 30},
		rules: []Rule{rule(time.Monday, "09:00", "17:00")},
	}
	r := newFakeResolver(f, at(0, 0))
	// 08:00 UTC is 09:00 CET.
	res, err := r.Check(context.Background(), "v1", at(8, 0), 60, CheckOptions{})
	if err != nil || !res.Available {
		t.Fatalf("expected available in venue time, got %+v (%v)", res, err)
	}

	f.venue.Timezone = "Mars/Olympus"
	if _, err := r.Check(context.Background(), "v1", at(8, 0), 60, CheckOptions{}); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestWithBookingsSwapsOnlyBookingSource(t *testing.T) {
	f := &fakeSchedule{
		venue: Venue{ID: "v1", MinBookingMinutes: 30},
		rules: []Rule{rule(time.Monday, "09:00", "17:00")},
	}
	tx := &fakeSchedule{bookings: []Booking{{ID: "racer", Start: at(9, 0), End: at(10, 0), Status: model.StatusPending}}}

	base := newFakeResolver(f, at(8, 0))
	res, err := base.WithBookings(tx).Check(context.Background(), "v1", at(9, 0), 60, CheckOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason() != ReasonBookingConflict {
		t.Fatalf("expected in-tx booking to conflict, got %+v", res)
	}
	if res, _ := base.Check(context.Background(), "v1", at(9, 0), 60, CheckOptions{}); !res.Available {
		t.Fatalf("base resolver should be unchanged, got %+v", res)
	}
}

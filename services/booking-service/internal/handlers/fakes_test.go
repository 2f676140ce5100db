package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/venuebook/venuebook/libs/outbox"
	"github.com/venuebook/venuebook/libs/venuev1"
	"github.com/venuebook/venuebook/services/booking-service/internal/availability"
	"github.com/venuebook/venuebook/services/booking-service/internal/model"
	"github.com/venuebook/venuebook/services/booking-service/internal/storage"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// monday returns a UTC instant on Monday 2026-03-02.
func monday(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.UTC)
}

type fakeSchedule struct {
	venue     availability.Venue
	rules     []availability.Rule
	blackouts []availability.Blackout
	err       error
}

func (f *fakeSchedule) GetVenue(_ context.Context, id string) (availability.Venue, error) {
	if f.err != nil {
		return availability.Venue{}, f.err
	}
	if id != f.venue.ID {
		return availability.Venue{}, availability.ErrVenueNotFound
	}
	return f.venue, nil
}

func (f *fakeSchedule) ListRules(context.Context, string) ([]availability.Rule, error) {
	return f.rules, nil
}

// ListBlackouts rejects ranges venue-service would reject.
func (f *fakeSchedule) ListBlackouts(_ context.Context, _ string, from, to time.Time) ([]availability.Blackout, error) {
	if to.Sub(from) > venuev1.MaxBlackoutWindow {
		return nil, errors.New("window too large")
	}
	return f.blackouts, nil
}

// mondayNineToFive is open Monday 09:00-17:00 UTC with min 30 minutes.
func mondayNineToFive() *fakeSchedule {
	return &fakeSchedule{
		venue: availability.Venue{ID: "venue-1", MinBookingMinutes: 30},
		rules: []availability.Rule{{DayOfWeek: time.Monday, OpenMinute: 9 * 60, CloseMinute: 17 * 60}},
	}
}

type fakeTx struct {
	pgx.Tx
	committed bool
	commitErr error
}

func (t *fakeTx) Commit(context.Context) error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(context.Context) error { return nil }

type idemKey struct{ guest, key string }

// memStore keeps committed and pending writes apart so a rolled back
// transaction leaves no trace.
type memStore struct {
	bookings  map[string]model.Booking
	idem      map[idemKey]storage.IdempotencyRecord
	createErr error
	seq       int
	lastTx    *fakeTx
	pending   []func()
	locked    []string
}

func newMemStore() *memStore {
	return &memStore{bookings: map[string]model.Booking{}, idem: map[idemKey]storage.IdempotencyRecord{}}
}

func (m *memStore) Begin(context.Context) (pgx.Tx, error) {
	m.pending = nil
	m.lastTx = &fakeTx{}
	return &applyOnCommit{fakeTx: m.lastTx, store: m}, nil
}

type applyOnCommit struct {
	*fakeTx
	store *memStore
}

func (a *applyOnCommit) Commit(ctx context.Context) error {
	if err := a.fakeTx.Commit(ctx); err != nil {
		return err
	}
	for _, apply := range a.store.pending {
		apply()
	}
	a.store.pending = nil
	return nil
}

func (m *memStore) LockVenue(_ context.Context, _ pgx.Tx, venueID string) error {
	m.locked = append(m.locked, venueID)
	return nil
}

func (m *memStore) LockIdempotencyKey(_ context.Context, _ pgx.Tx, guestID, key string) (storage.IdempotencyRecord, bool, error) {
	rec, ok := m.idem[idemKey{guestID, key}]
	return rec, ok, nil
}

func (m *memStore) FinalizeIdempotency(_ context.Context, _ pgx.Tx, guestID, key, bookingID string, statusCode int, response []byte) error {
	m.pending = append(m.pending, func() {
		m.idem[idemKey{guestID, key}] = storage.IdempotencyRecord{
			GuestID: guestID, IdempotencyKey: key, BookingID: bookingID, StatusCode: statusCode, ResponsePayload: response,
		}
	})
	return nil
}

func (m *memStore) Create(_ context.Context, _ pgx.Tx, b *model.Booking) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.seq++
	b.ID = fmt.Sprintf("booking-%d", m.seq)
	b.CreatedAt = monday(8, 0)
	stored := *b
	m.pending = append(m.pending, func() { m.bookings[stored.ID] = stored })
	return b.ID, nil
}

func (m *memStore) GetForUpdate(_ context.Context, _ pgx.Tx, id string) (model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, pgx.ErrNoRows
	}
	return b, nil
}

func (m *memStore) UpdateStatus(_ context.Context, _ pgx.Tx, id string, status model.BookingStatus, reason string) (model.Booking, error) {
	b, ok := m.bookings[id]
	if !ok {
		return model.Booking{}, errors.New("missing")
	}
	b.Status = status
	b.UpdatedAt = monday(8, 30)
	if status == model.StatusCancelled {
		at := monday(8, 30)
		b.CancelledAt = &at
		b.CancelReason = reason
	}
	m.pending = append(m.pending, func() { m.bookings[id] = b })
	return b, nil
}

func (m *memStore) ListByVenue(_ context.Context, venueID string, _ int) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range m.bookings {
		if b.VenueID == venueID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memStore) TxBookings(pgx.Tx) availability.BookingStore { return m }

func (m *memStore) ListOccupying(_ context.Context, venueID string, from, to time.Time) ([]availability.Booking, error) {
	var out []availability.Booking
	for _, b := range m.bookings {
		if b.VenueID == venueID && b.Status.Occupying() && availability.Overlaps(b.StartTime, b.EndTime, from, to) {
			out = append(out, availability.Booking{ID: b.ID, Start: b.StartTime, End: b.EndTime, Status: b.Status})
		}
	}
	return out, nil
}

type memEvents struct {
	events []outbox.Event
}

func (e *memEvents) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	e.events = append(e.events, evt)
	return nil
}

type bookingFixture struct {
	schedule *fakeSchedule
	store    *memStore
	events   *memEvents
	mux      *http.ServeMux
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{schedule: mondayNineToFive(), store: newMemStore(), events: &memEvents{}}
	resolver := availability.NewResolver(f.schedule, f.schedule, f.schedule, f.store, availability.Options{
		Now: func() time.Time { return monday(7, 0) },
	})
	h := NewBookingHandler(f.store, f.events, func(b availability.BookingStore) Checker {
		return resolver.WithBookings(b)
	}, testLogger())
	f.mux = http.NewServeMux()
	h.Register(f.mux)
	NewAvailabilityHandler(resolver, testLogger(), 3).Register(f.mux, nil)
	return f
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/venuebook/venuebook/libs/db"
	"github.com/venuebook/venuebook/services/booking-service/internal/availability"
	"github.com/venuebook/venuebook/services/booking-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	GuestID         string
	IdempotencyKey  string
	BookingID       string
	StatusCode      int
	ResponsePayload []byte
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

// LockVenue serialises booking writes for one venue until the transaction ends.
func (r *BookingRepository) LockVenue(ctx context.Context, tx pgx.Tx, venueID string) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, venueID)
	return err
}

func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, guestID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, guestID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (guest_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (guest_id, idempotency_key) DO NOTHING
	`, guestID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, guestID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, guestID, key, bookingID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET booking_id = NULLIF($3, '')::uuid,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE guest_id = $1 AND idempotency_key = $2
	`, guestID, key, bookingID, statusCode, response)
	return err
}

func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	id := uuid.NewString()
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings (id, venue_id, guest_id, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, id, b.VenueID, b.GuestID, b.StartTime.UTC(), b.EndTime.UTC(), string(b.Status)).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return "", err
	}
	b.ID = id
	return id, nil
}

const bookingColumns = `id::text, venue_id, guest_id, start_time, end_time, status,
	cancelled_at, COALESCE(cancellation_reason, ''), created_at, updated_at`

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, bookingID string) (model.Booking, error) {
	if uuid.Validate(bookingID) != nil {
		return model.Booking{}, pgx.ErrNoRows
	}
	row := tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, bookingID)
	return scanBooking(row)
}

// UpdateStatus moves the booking to status; reason is kept only for cancellations.
func (r *BookingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, bookingID string, status model.BookingStatus, reason string) (model.Booking, error) {
	row := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
			cancelled_at = CASE WHEN $2 = 'cancelled' THEN now() ELSE cancelled_at END,
			cancellation_reason = CASE WHEN $2 = 'cancelled' THEN NULLIF($3, '') ELSE cancellation_reason END,
			updated_at = now()
		WHERE id = $1
		RETURNING `+bookingColumns, bookingID, string(status), reason)
	return scanBooking(row)
}

func (r *BookingRepository) ListByVenue(ctx context.Context, venueID string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE venue_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, venueID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListOccupying implements availability.BookingStore outside a transaction.
func (r *BookingRepository) ListOccupying(ctx context.Context, venueID string, from, to time.Time) ([]availability.Booking, error) {
	return listOccupying(ctx, r.pool, venueID, from, to)
}

// TxBookings reads occupying bookings through tx, so the resolver sees rows
// written by transactions that committed before the venue lock was granted.
func (r *BookingRepository) TxBookings(tx pgx.Tx) availability.BookingStore {
	return txBookings{tx: tx}
}

type txBookings struct {
	tx pgx.Tx
}

func (t txBookings) ListOccupying(ctx context.Context, venueID string, from, to time.Time) ([]availability.Booking, error) {
	return listOccupying(ctx, t.tx, venueID, from, to)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listOccupying(ctx context.Context, q querier, venueID string, from, to time.Time) ([]availability.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, start_time, end_time, status
		FROM bookings
		WHERE venue_id = $1
			AND status IN ('pending', 'confirmed', 'completed')
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, venueID, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Booking
	for rows.Next() {
		var b availability.Booking
		var status string
		if err := rows.Scan(&b.ID, &b.Start, &b.End, &status); err != nil {
			return nil, err
		}
		if b.Status, err = model.ParseBookingStatus(status); err != nil {
			return nil, fmt.Errorf("booking %s: %w", b.ID, err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	err := row.Scan(
		&b.ID,
		&b.VenueID,
		&b.GuestID,
		&b.StartTime,
		&b.EndTime,
		&status,
		&b.CancelledAt,
		&b.CancelReason,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	if b.Status, err = model.ParseBookingStatus(status); err != nil {
		return model.Booking{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	return b, nil
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, guestID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT guest_id,
			idempotency_key,
			COALESCE(booking_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE guest_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, guestID, key).Scan(
		&rec.GuestID,
		&rec.IdempotencyKey,
		&rec.BookingID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/venuebook/venuebook/libs/db"
	"github.com/venuebook/venuebook/services/venue-service/internal/model"
)

// ErrLimitExceeded means a listing had more rows than the caller's limit.
var ErrLimitExceeded = errors.New("result limit exceeded")

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const venueColumns = `id::text, host_id, name, timezone, min_booking_minutes, max_booking_minutes,
	buffer_minutes, created_at, updated_at`

func scanVenue(row pgx.Row) (model.Venue, error) {
	var v model.Venue
	err := row.Scan(&v.ID, &v.HostID, &v.Name, &v.Timezone, &v.MinBookingMinutes, &v.MaxBookingMinutes,
		&v.BufferMinutes, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

func (r *Repository) CreateVenue(ctx context.Context, tx pgx.Tx, v model.Venue) (model.Venue, error) {
	v.ID = uuid.NewString()
	return scanVenue(tx.QueryRow(ctx, `
		INSERT INTO venues (id, host_id, name, timezone, min_booking_minutes, max_booking_minutes, buffer_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+venueColumns,
		v.ID, v.HostID, v.Name, v.Timezone, v.MinBookingMinutes, v.MaxBookingMinutes, v.BufferMinutes))
}

// UpdateVenue returns pgx.ErrNoRows when the venue does not belong to the host.
func (r *Repository) UpdateVenue(ctx context.Context, tx pgx.Tx, v model.Venue) (model.Venue, error) {
	if !validID(v.ID) {
		return model.Venue{}, pgx.ErrNoRows
	}
	return scanVenue(tx.QueryRow(ctx, `
		UPDATE venues
		SET name = $3,
			timezone = $4,
			min_booking_minutes = $5,
			max_booking_minutes = $6,
			buffer_minutes = $7,
			updated_at = now()
		WHERE id = $1 AND host_id = $2
		RETURNING `+venueColumns,
		v.ID, v.HostID, v.Name, v.Timezone, v.MinBookingMinutes, v.MaxBookingMinutes, v.BufferMinutes))
}

// validID rejects ids that are not UUIDs before they reach a uuid column,
// so a malformed id reads as not found.
func validID(ids ...string) bool {
	for _, id := range ids {
		if uuid.Validate(id) != nil {
			return false
		}
	}
	return true
}

func (r *Repository) GetVenue(ctx context.Context, venueID string) (model.Venue, error) {
	if !validID(venueID) {
		return model.Venue{}, pgx.ErrNoRows
	}
	return scanVenue(r.pool.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, venueID))
}

func (r *Repository) GetHostVenue(ctx context.Context, hostID, venueID string) (model.Venue, error) {
	if !validID(venueID) {
		return model.Venue{}, pgx.ErrNoRows
	}
	return scanVenue(r.pool.QueryRow(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1 AND host_id = $2`, venueID, hostID))
}

func (r *Repository) ListHostVenues(ctx context.Context, hostID string, limit int) ([]model.Venue, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+venueColumns+`
		FROM venues
		WHERE host_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, hostID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// ReplaceRules swaps the whole weekly rule set of a venue.
func (r *Repository) ReplaceRules(ctx context.Context, tx pgx.Tx, venueID string, rules []model.Rule) error {
	if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE venue_id = $1`, venueID); err != nil {
		return err
	}
	for _, rule := range rules {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_rules (id, venue_id, day_of_week, open_minute, close_minute)
			VALUES ($1, $2, $3, $4, $5)
		`, uuid.NewString(), venueID, rule.DayOfWeek, rule.OpenMinute, rule.CloseMinute)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) ListRules(ctx context.Context, venueID string) ([]model.Rule, error) {
	if !validID(venueID) {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, venue_id::text, day_of_week, open_minute, close_minute
		FROM availability_rules
		WHERE venue_id = $1
		ORDER BY day_of_week ASC, open_minute ASC
	`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Rule
	for rows.Next() {
		var rule model.Rule
		if err := rows.Scan(&rule.ID, &rule.VenueID, &rule.DayOfWeek, &rule.OpenMinute, &rule.CloseMinute); err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, rows.Err()
}

func (r *Repository) CreateBlackout(ctx context.Context, tx pgx.Tx, b model.Blackout) (model.Blackout, error) {
	b.ID = uuid.NewString()
	err := tx.QueryRow(ctx, `
		INSERT INTO blackouts (id, venue_id, start_time, end_time, reason)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''))
		RETURNING created_at
	`, b.ID, b.VenueID, b.Start.UTC(), b.End.UTC(), b.Reason).Scan(&b.CreatedAt)
	return b, err
}

// ListBlackouts returns blackouts overlapping [from, to). It returns
// ErrLimitExceeded instead of a partial list when more than limit match.
func (r *Repository) ListBlackouts(ctx context.Context, venueID string, from, to time.Time, limit int) ([]model.Blackout, error) {
	if !validID(venueID) {
		return nil, nil
	}
	if limit <= 0 {
		limit = 1000
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, venue_id::text, start_time, end_time, COALESCE(reason, ''), created_at
		FROM blackouts
		WHERE venue_id = $1
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
		LIMIT $4
	`, venueID, from.UTC(), to.UTC(), limit+1)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Blackout
	for rows.Next() {
		var b model.Blackout
		if err := rows.Scan(&b.ID, &b.VenueID, &b.Start, &b.End, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) > limit {
		return nil, ErrLimitExceeded
	}
	return out, nil
}

// DeleteBlackout reports whether a row was removed.
func (r *Repository) DeleteBlackout(ctx context.Context, tx pgx.Tx, venueID, blackoutID string) (bool, error) {
	if !validID(venueID, blackoutID) {
		return false, nil
	}
	tag, err := tx.Exec(ctx, `DELETE FROM blackouts WHERE id = $1 AND venue_id = $2`, blackoutID, venueID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

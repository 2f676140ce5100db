package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/venuebook/venuebook/libs/db"
	"github.com/venuebook/venuebook/libs/httpx"
	"github.com/venuebook/venuebook/libs/outbox"
	"github.com/venuebook/venuebook/services/booking-service/internal/availability"
	"github.com/venuebook/venuebook/services/booking-service/internal/model"
	"github.com/venuebook/venuebook/services/booking-service/internal/storage"
)

const (
	EventBookingCreated       = "booking.booking.created.v1"
	EventBookingStatusChanged = "booking.booking.status_changed.v1"

	slotTakenMessage = "slot just became unavailable, please pick another"
)

// BookingStore is the persistence used by the booking write path.
// *storage.BookingRepository implements it.
type BookingStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	LockVenue(ctx context.Context, tx pgx.Tx, venueID string) error
	LockIdempotencyKey(ctx context.Context, tx pgx.Tx, guestID, key string) (storage.IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, tx pgx.Tx, guestID, key, bookingID string, statusCode int, response []byte) error
	Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, bookingID string) (model.Booking, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, bookingID string, status model.BookingStatus, reason string) (model.Booking, error)
	ListByVenue(ctx context.Context, venueID string, limit int) ([]model.Booking, error)
	TxBookings(tx pgx.Tx) availability.BookingStore
}

type EventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

// CheckerFor returns a Checker that reads bookings from the given store.
type CheckerFor func(bookings availability.BookingStore) Checker

type BookingHandler struct {
	repo       BookingStore
	events     EventWriter
	checkerFor CheckerFor
	logger     *slog.Logger
}

func NewBookingHandler(repo BookingStore, events EventWriter, checkerFor CheckerFor, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{repo: repo, events: events, checkerFor: checkerFor, logger: logger}
}

type createBookingRequest struct {
	VenueID         string `json:"venue_id"`
	GuestID         string `json:"guest_id"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
}

type createBookingResponse struct {
	BookingID string `json:"booking_id"`
	Status    string `json:"status"`
}

type bookingItem struct {
	BookingID    string `json:"booking_id"`
	VenueID      string `json:"venue_id"`
	GuestID      string `json:"guest_id"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time"`
	Status       string `json:"status"`
	CancelledAt  string `json:"cancelled_at,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
	CreatedAt    string `json:"created_at"`
}

type transitionRequest struct {
	Reason string `json:"reason"`
}

// Create serves POST /bookings. The availability check runs again inside the
// insert transaction while the venue lock is held; that result is authoritative.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "", "invalid json body")
		return
	}
	req.VenueID = strings.TrimSpace(req.VenueID)
	req.GuestID = strings.TrimSpace(req.GuestID)
	if req.VenueID == "" || req.GuestID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "", "venue_id and guest_id required")
		return
	}
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(req.StartTime))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(availability.ReasonInvalidInterval), "invalid start_time")
		return
	}
	if req.DurationMinutes <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, string(availability.ReasonInvalidInterval), "duration_minutes must be a positive integer")
		return
	}

	booking := &model.Booking{
		VenueID:   req.VenueID,
		GuestID:   req.GuestID,
		StartTime: start.UTC(),
		EndTime:   start.UTC().Add(time.Duration(req.DurationMinutes) * time.Minute),
		Status:    model.StatusPending,
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "", "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.repo.LockIdempotencyKey(ctx, tx, booking.GuestID, idempotencyKey)
		if err != nil {
			httpx.WriteError(w, http.StatusInternalServerError, "", "failed to lock idempotency key")
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	if err := h.repo.LockVenue(ctx, tx, booking.VenueID); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to lock venue")
		return
	}

	res, err := h.checkerFor(h.repo.TxBookings(tx)).Check(ctx, booking.VenueID, booking.StartTime, req.DurationMinutes, availability.CheckOptions{})
	if err != nil {
		// Not finalized, so a retry with the same key re-runs the check.
		writeCheckError(w, h.logger, err)
		return
	}
	if !res.Available {
		status, body := rejection(res)
		h.finish(ctx, w, tx, booking.GuestID, idempotencyKey, "", status, body)
		return
	}

	id, err := h.repo.Create(ctx, tx, booking)
	if err != nil {
		if db.IsExclusionViolation(err) {
			// Lost a race that the advisory lock did not cover; the constraint is final.
			_ = tx.Rollback(ctx)
			httpx.WriteError(w, http.StatusConflict, string(availability.ReasonBookingConflict), slotTakenMessage)
			return
		}
		h.logger.Error("create booking failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to create booking")
		return
	}

	evt, err := outbox.NewEvent("booking", id, EventBookingCreated, map[string]any{
		"booking_id": id,
		"venue_id":   booking.VenueID,
		"guest_id":   booking.GuestID,
		"start_time": booking.StartTime.Format(time.RFC3339),
		"end_time":   booking.EndTime.Format(time.RFC3339),
		"status":     string(booking.Status),
	})
	if err == nil {
		err = h.events.Insert(ctx, tx, evt)
	}
	if err != nil {
		h.logger.Error("write booking event failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to write outbox event")
		return
	}

	body, _ := json.Marshal(createBookingResponse{BookingID: id, Status: string(booking.Status)})
	h.finish(ctx, w, tx, booking.GuestID, idempotencyKey, id, http.StatusCreated, body)
}

// rejection maps a negative availability result to an HTTP status and body.
// A booking conflict is the only failure another request can cause, so it
// alone is reported as 409.
func rejection(res availability.Result) (int, []byte) {
	status, msg := http.StatusUnprocessableEntity, strings.Join(res.Conflicts, "; ")
	if res.Reason() == availability.ReasonBookingConflict {
		status, msg = http.StatusConflict, slotTakenMessage
	}
	body, _ := json.Marshal(httpx.ErrorBody{Error: msg, Code: string(res.Reason())})
	return status, body
}

// finish records the response under the idempotency key, commits and writes it.
func (h *BookingHandler) finish(ctx context.Context, w http.ResponseWriter, tx pgx.Tx, guestID, key, bookingID string, status int, body []byte) {
	if key != "" {
		if err := h.repo.FinalizeIdempotency(ctx, tx, guestID, key, bookingID, status, body); err != nil {
			h.logger.Error("finalize idempotency failed", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "", "failed to finalize idempotency key")
			return
		}
	}
	if err := tx.Commit(ctx); err != nil {
		if db.IsExclusionViolation(err) {
			httpx.WriteError(w, http.StatusConflict, string(availability.ReasonBookingConflict), slotTakenMessage)
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to commit")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// List serves GET /bookings?venue_id=...
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	venueID := strings.TrimSpace(r.URL.Query().Get("venue_id"))
	if venueID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "", "venue_id required")
		return
	}
	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	bookings, err := h.repo.ListByVenue(r.Context(), venueID, limit)
	if err != nil {
		h.logger.Error("list bookings failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to list bookings")
		return
	}
	items := make([]bookingItem, 0, len(bookings))
	for _, b := range bookings {
		items = append(items, toBookingItem(b))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.StatusConfirmed)
}

func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.StatusCompleted)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, model.StatusCancelled)
}

func (h *BookingHandler) transition(w http.ResponseWriter, r *http.Request, to model.BookingStatus) {
	bookingID := strings.TrimSpace(r.PathValue("id"))
	if bookingID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "", "booking id required")
		return
	}
	var req transitionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "", "invalid json body")
			return
		}
	}

	ctx := r.Context()
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "", "db error")
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	current, err := h.repo.GetForUpdate(ctx, tx, bookingID)
	if err != nil {
		if db.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "", "booking not found")
			return
		}
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to load booking")
		return
	}

	if current.Status == to && to == model.StatusCancelled {
		httpx.WriteJSON(w, http.StatusOK, toBookingItem(current))
		return
	}
	if !current.Status.CanTransition(to) {
		httpx.WriteError(w, http.StatusConflict, "InvalidTransition", "booking is "+string(current.Status)+" and cannot become "+string(to))
		return
	}

	updated, err := h.repo.UpdateStatus(ctx, tx, bookingID, to, strings.TrimSpace(req.Reason))
	if err != nil {
		h.logger.Error("update booking status failed", "err", err, "booking_id", bookingID)
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to update booking")
		return
	}

	evt, err := outbox.NewEvent("booking", bookingID, EventBookingStatusChanged, map[string]any{
		"booking_id": bookingID,
		"venue_id":   updated.VenueID,
		"from":       string(current.Status),
		"to":         string(updated.Status),
		"start_time": updated.StartTime.UTC().Format(time.RFC3339),
		"end_time":   updated.EndTime.UTC().Format(time.RFC3339),
		"reason":     updated.CancelReason,
		"changed_at": updated.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err == nil {
		err = h.events.Insert(ctx, tx, evt)
	}
	if err != nil {
		h.logger.Error("write status event failed", "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to write outbox event")
		return
	}

	if err := tx.Commit(ctx); err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, "", "failed to commit")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toBookingItem(updated))
}

func toBookingItem(b model.Booking) bookingItem {
	item := bookingItem{
		BookingID:    b.ID,
		VenueID:      b.VenueID,
		GuestID:      b.GuestID,
		StartTime:    b.StartTime.UTC().Format(time.RFC3339),
		EndTime:      b.EndTime.UTC().Format(time.RFC3339),
		Status:       string(b.Status),
		CancelReason: b.CancelReason,
		CreatedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CancelledAt != nil {
		item.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return item
}

var _ BookingStore = (*storage.BookingRepository)(nil)

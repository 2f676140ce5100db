package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/venuebook/venuebook/libs/db"
	"github.com/venuebook/venuebook/libs/httpx"
	"github.com/venuebook/venuebook/libs/outbox"
	"github.com/venuebook/venuebook/services/venue-service/internal/model"
	"github.com/venuebook/venuebook/services/venue-service/internal/storage"
)

const EventScheduleChanged = "venue.schedule.changed.v1"

// Store is the venue persistence; *storage.Repository implements it.
type Store interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	CreateVenue(ctx context.Context, tx pgx.Tx, v model.Venue) (model.Venue, error)
	UpdateVenue(ctx context.Context, tx pgx.Tx, v model.Venue) (model.Venue, error)
	GetHostVenue(ctx context.Context, hostID, venueID string) (model.Venue, error)
	ListHostVenues(ctx context.Context, hostID string, limit int) ([]model.Venue, error)
	ReplaceRules(ctx context.Context, tx pgx.Tx, venueID string, rules []model.Rule) error
	ListRules(ctx context.Context, venueID string) ([]model.Rule, error)
	CreateBlackout(ctx context.Context, tx pgx.Tx, b model.Blackout) (model.Blackout, error)
	ListBlackouts(ctx context.Context, venueID string, from, to time.Time, limit int) ([]model.Blackout, error)
	DeleteBlackout(ctx context.Context, tx pgx.Tx, venueID, blackoutID string) (bool, error)
}

var _ Store = (*storage.Repository)(nil)

type EventWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}

type Handler struct {
	repo   Store
	events EventWriter
	logger *slog.Logger
	now    func() time.Time
}

func New(repo Store, events EventWriter, logger *slog.Logger) *Handler {
	return &Handler{repo: repo, events: events, logger: logger, now: time.Now}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /host/venues", h.CreateVenue)
	mux.HandleFunc("GET /host/venues", h.ListVenues)
	mux.HandleFunc("GET /host/venues/{id}", h.GetVenue)
	mux.HandleFunc("PUT /host/venues/{id}", h.UpdateVenue)
	mux.HandleFunc("GET /host/venues/{id}/rules", h.ListRules)
	mux.HandleFunc("PUT /host/venues/{id}/rules", h.ReplaceRules)
	mux.HandleFunc("GET /host/venues/{id}/blackouts", h.ListBlackouts)
	mux.HandleFunc("POST /host/venues/{id}/blackouts", h.CreateBlackout)
	mux.HandleFunc("DELETE /host/venues/{id}/blackouts/{blackoutID}", h.DeleteBlackout)
}

// hostIDFromHeader reads the host identity set by the gateway.
func hostIDFromHeader(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-Host-Id"))
}

type venueRequest struct {
	Name              string `json:"name"`
	Timezone          string `json:"timezone"`
	MinBookingMinutes int    `json:"min_booking_minutes"`
	MaxBookingMinutes *int   `json:"max_booking_minutes"`
	BufferMinutes     int    `json:"buffer_minutes"`
}

type venueResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Timezone          string `json:"timezone"`
	MinBookingMinutes int    `json:"min_booking_minutes"`
	MaxBookingMinutes *int   `json:"max_booking_minutes,omitempty"`
	BufferMinutes     int    `json:"buffer_minutes"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type ruleItem struct {
	DayOfWeek int    `json:"day_of_week"`
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
}

type blackoutItem struct {
	ID     string `json:"id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason,omitempty"`
}

func toVenueResponse(v model.Venue) venueResponse {
	return venueResponse{
		ID:                v.ID,
		Name:              v.Name,
		Timezone:          v.Timezone,
		MinBookingMinutes: v.MinBookingMinutes,
		MaxBookingMinutes: v.MaxBookingMinutes,
		BufferMinutes:     v.BufferMinutes,
		CreatedAt:         v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toBlackoutItem(b model.Blackout) blackoutItem {
	return blackoutItem{
		ID:     b.ID,
		Start:  b.Start.UTC().Format(time.RFC3339),
		End:    b.End.UTC().Format(time.RFC3339),
		Reason: b.Reason,
	}
}

func decodeVenue(r *http.Request) (model.Venue, error) {
	var req venueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.Venue{}, err
	}
	v := model.Venue{
		Name:              strings.TrimSpace(req.Name),
		Timezone:          strings.TrimSpace(req.Timezone),
		MinBookingMinutes: req.MinBookingMinutes,
		MaxBookingMinutes: req.MaxBookingMinutes,
		BufferMinutes:     req.BufferMinutes,
	}
	if v.Timezone == "" {
		v.Timezone = "UTC"
	}
	return v, v.Validate()
}

func (h *Handler) CreateVenue(w http.ResponseWriter, r *http.Request) {
	hostID := hostIDFromHeader(r)
	if hostID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "", "missing X-Host-Id")
		return
	}
	v, err := decodeVenue(r)
	if err != nil {
		writeInputError(w, err)
		return
	}
	v.HostID = hostID

	var created model.Venue
	err = h.mutate(r.Context(), func(ctx context.Context, tx pgx.Tx) (string, error) {
		var err error
		created, err = h.repo.CreateVenue(ctx, tx, v)
		return created.ID, err
	}, "venue.created")
	if err != nil {
		h.writeStoreError(w, "create venue", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toVenueResponse(created))
}

func (h *Handler) ListVenues(w http.ResponseWriter, r *http.Request) {
	hostID := hostIDFromHeader(r)
	if hostID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "", "missing X-Host-Id")
		return
	}
	venues, err := h.repo.ListHostVenues(r.Context(), hostID, 100)
	if err != nil {
		h.writeStoreError(w, "list venues", err)
		return
	}
	out := make([]venueResponse, 0, len(venues))
	for _, v := range venues {
		out = append(out, toVenueResponse(v))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetVenue(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVenue(w, r)
	if !ok {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toVenueResponse(v))
}

func (h *Handler) UpdateVenue(w http.ResponseWriter, r *http.Request) {
	hostID := hostIDFromHeader(r)
	if hostID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "", "missing X-Host-Id")
		return
	}
	v, err := decodeVenue(r)
	if err != nil {
		writeInputError(w, err)
		return
	}
	v.ID = r.PathValue("id")
	v.HostID = hostID

	var updated model.Venue
	err = h.mutate(r.Context(), func(ctx context.Context, tx pgx.Tx) (string, error) {
		var err error
		updated, err = h.repo.UpdateVenue(ctx, tx, v)
		return v.ID, err
	}, "venue.updated")
	if err != nil {
		h.writeStoreError(w, "update venue", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toVenueResponse(updated))
}

func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVenue(w, r)
	if !ok {
		return
	}
	rules, err := h.repo.ListRules(r.Context(), v.ID)
	if err != nil {
		h.writeStoreError(w, "list rules", err)
		return
	}
	out := make([]ruleItem, 0, len(rules))
	for _, rule := range rules {
		out = append(out, ruleItem{
			DayOfWeek: rule.DayOfWeek,
			OpenTime:  model.FormatClock(rule.OpenMinute),
			CloseTime: model.FormatClock(rule.CloseMinute),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// ReplaceRules swaps the whole weekly schedule. An empty list closes the venue.
func (h *Handler) ReplaceRules(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVenue(w, r)
	if !ok {
		return
	}
	var req struct {
		Rules []ruleItem `json:"rules"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "", "invalid json body")
		return
	}
	rules := make([]model.Rule, 0, len(req.Rules))
	for _, item := range req.Rules {
		open, err := model.ParseClock(item.OpenTime)
		if err != nil {
			writeInputError(w, err)
			return
		}
		closing, err := model.ParseClock(item.CloseTime)
		if err != nil {
			writeInputError(w, err)
			return
		}
		rule := model.Rule{VenueID: v.ID, DayOfWeek: item.DayOfWeek, OpenMinute: open, CloseMinute: closing}
		if err := rule.Validate(); err != nil {
			writeInputError(w, err)
			return
		}
		rules = append(rules, rule)
	}

	err := h.mutate(r.Context(), func(ctx context.Context, tx pgx.Tx) (string, error) {
		return v.ID, h.repo.ReplaceRules(ctx, tx, v.ID, rules)
	}, "rules.replaced")
	if err != nil {
		h.writeStoreError(w, "replace rules", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListBlackouts(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVenue(w, r)
	if !ok {
		return
	}
	from := h.now().UTC()
	to := from.AddDate(0, 0, 90)
	if raw := strings.TrimSpace(r.URL.Query().Get("from")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "", "invalid from")
			return
		}
		from = t
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("to")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "", "invalid to")
			return
		}
		to = t
	}
	if !to.After(from) {
		httpx.WriteError(w, http.StatusBadRequest, "", "to must be after from")
		return
	}

	blackouts, err := h.repo.ListBlackouts(r.Context(), v.ID, from, to, 500)
	if err != nil {
		h.writeStoreError(w, "list blackouts", err)
		return
	}
	out := make([]blackoutItem, 0, len(blackouts))
	for _, b := range blackouts {
		out = append(out, toBlackoutItem(b))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateBlackout(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVenue(w, r)
	if !ok {
		return
	}
	var req struct {
		Start  string `json:"start"`
		End    string `json:"end"`
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "", "invalid json body")
		return
	}
	start, errStart := time.Parse(time.RFC3339, strings.TrimSpace(req.Start))
	end, errEnd := time.Parse(time.RFC3339, strings.TrimSpace(req.End))
	if errStart != nil || errEnd != nil {
		httpx.WriteError(w, http.StatusBadRequest, "", "start and end must be RFC3339 timestamps")
		return
	}
	b := model.Blackout{VenueID: v.ID, Start: start.UTC(), End: end.UTC(), Reason: strings.TrimSpace(req.Reason)}
	if err := b.Validate(); err != nil {
		writeInputError(w, err)
		return
	}

	var created model.Blackout
	err := h.mutate(r.Context(), func(ctx context.Context, tx pgx.Tx) (string, error) {
		var err error
		created, err = h.repo.CreateBlackout(ctx, tx, b)
		return v.ID, err
	}, "blackout.created")
	if err != nil {
		h.writeStoreError(w, "create blackout", err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toBlackoutItem(created))
}

func (h *Handler) DeleteBlackout(w http.ResponseWriter, r *http.Request) {
	v, ok := h.ownedVenue(w, r)
	if !ok {
		return
	}
	blackoutID := r.PathValue("blackoutID")
	err := h.mutate(r.Context(), func(ctx context.Context, tx pgx.Tx) (string, error) {
		deleted, err := h.repo.DeleteBlackout(ctx, tx, v.ID, blackoutID)
		if err == nil && !deleted {
			err = pgx.ErrNoRows
		}
		return v.ID, err
	}, "blackout.deleted")
	if err != nil {
		h.writeStoreError(w, "delete blackout", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// mutate runs fn in a transaction and records a schedule change for the
// venue id fn returns, in the same transaction.
func (h *Handler) mutate(ctx context.Context, fn func(context.Context, pgx.Tx) (string, error), change string) error {
	tx, err := h.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	venueID, err := fn(ctx, tx)
	if err != nil {
		return err
	}
	evt, err := outbox.NewEvent("venue", venueID, EventScheduleChanged, map[string]any{
		"venue_id":   venueID,
		"change":     change,
		"changed_at": h.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := h.events.Insert(ctx, tx, evt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (h *Handler) ownedVenue(w http.ResponseWriter, r *http.Request) (model.Venue, bool) {
	hostID := hostIDFromHeader(r)
	if hostID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "", "missing X-Host-Id")
		return model.Venue{}, false
	}
	v, err := h.repo.GetHostVenue(r.Context(), hostID, r.PathValue("id"))
	if err != nil {
		h.writeStoreError(w, "load venue", err)
		return model.Venue{}, false
	}
	return v, true
}

func writeInputError(w http.ResponseWriter, err error) {
	if errors.Is(err, model.ErrValidation) {
		httpx.WriteError(w, http.StatusBadRequest, "ValidationFailed", err.Error())
		return
	}
	httpx.WriteError(w, http.StatusBadRequest, "", "invalid json body")
}

func (h *Handler) writeStoreError(w http.ResponseWriter, op string, err error) {
	if db.IsNotFound(err) {
		httpx.WriteError(w, http.StatusNotFound, "", "not found")
		return
	}
	if errors.Is(err, storage.ErrLimitExceeded) {
		httpx.WriteError(w, http.StatusBadRequest, "", "too many results, narrow the from/to range")
		return
	}
	h.logger.Error(op+" failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "", "failed to "+op)
}

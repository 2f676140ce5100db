package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/venuebook/venuebook/libs/httpx"
	"github.com/venuebook/venuebook/services/booking-service/internal/availability"
)

const maxSuggestions = 10

// Checker answers availability questions; *availability.Resolver implements it.
type Checker interface {
	Check(ctx context.Context, venueID string, start time.Time, durationMinutes int, opts availability.CheckOptions) (availability.Result, error)
}

type AvailabilityHandler struct {
	checker        Checker
	logger         *slog.Logger
	defaultSuggest int
}

func NewAvailabilityHandler(checker Checker, logger *slog.Logger, defaultSuggest int) *AvailabilityHandler {
	if defaultSuggest < 0 {
		defaultSuggest = 0
	}
	return &AvailabilityHandler{checker: checker, logger: logger, defaultSuggest: min(defaultSuggest, maxSuggestions)}
}

type availabilityResponse struct {
	Available      bool     `json:"available"`
	Reason         string   `json:"reason,omitempty"`
	Reasons        []string `json:"reasons,omitempty"`
	Conflicts      []string `json:"conflicts,omitempty"`
	SuggestedTimes []string `json:"suggestedTimes,omitempty"`
}

// Check serves GET /venues/{id}/availability.
func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request) {
	venueID := strings.TrimSpace(r.PathValue("id"))
	if venueID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "", "venue id required")
		return
	}

	q := r.URL.Query()
	start, err := time.Parse(time.RFC3339, strings.TrimSpace(q.Get("start")))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, string(availability.ReasonInvalidInterval), "start must be an ISO-8601 instant")
		return
	}
	duration, err := strconv.Atoi(strings.TrimSpace(q.Get("durationMinutes")))
	if err != nil || duration <= 0 {
		httpx.WriteError(w, http.StatusBadRequest, string(availability.ReasonInvalidInterval), "durationMinutes must be a positive integer")
		return
	}
	suggest := h.defaultSuggest
	if raw := strings.TrimSpace(q.Get("suggest")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			httpx.WriteError(w, http.StatusBadRequest, "", "suggest must be a non-negative integer")
			return
		}
		suggest = min(n, maxSuggestions)
	}

	res, err := h.checker.Check(r.Context(), venueID, start, duration, availability.CheckOptions{Suggest: suggest})
	if err != nil {
		writeCheckError(w, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAvailabilityResponse(res))
}

func toAvailabilityResponse(res availability.Result) availabilityResponse {
	resp := availabilityResponse{
		Available: res.Available,
		Reason:    string(res.Reason()),
		Conflicts: res.Conflicts,
	}
	for _, reason := range res.Reasons {
		resp.Reasons = append(resp.Reasons, string(reason))
	}
	for _, t := range res.Suggested {
		resp.SuggestedTimes = append(resp.SuggestedTimes, t.UTC().Format(time.RFC3339))
	}
	return resp
}

func writeCheckError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, availability.ErrInvalidInterval):
		httpx.WriteError(w, http.StatusBadRequest, string(availability.ReasonInvalidInterval), err.Error())
	case errors.Is(err, availability.ErrVenueNotFound):
		httpx.WriteError(w, http.StatusNotFound, "", "venue not found")
	default:
		logger.Error("availability check failed", "err", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "", "availability data unavailable")
	}
}

package schedule

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/segmentio/kafka-go"
)

const EventScheduleChanged = "venue.schedule.changed.v1"

type invalidator interface {
	Invalidate(ctx context.Context, venueID string) error
}

// InvalidateHandler returns a consumer handler that evicts a venue's cached
// schedule when venue-service reports a change.
func InvalidateHandler(cache invalidator, logger *slog.Logger) func(context.Context, kafka.Message) error {
	return func(ctx context.Context, msg kafka.Message) error {
		var payload struct {
			VenueID string `json:"venue_id"`
		}
		if err := json.Unmarshal(msg.Value, &payload); err != nil {
			logger.Error("invalid schedule event payload", "err", err, "topic", msg.Topic)
			return nil
		}
		venueID := strings.TrimSpace(payload.VenueID)
		if venueID == "" {
			venueID = strings.TrimSpace(string(msg.Key))
		}
		if venueID == "" {
			logger.Error("schedule event without venue id", "topic", msg.Topic)
			return nil
		}
		if err := cache.Invalidate(ctx, venueID); err != nil {
			return err
		}
		logger.Debug("schedule cache invalidated", "venue_id", venueID)
		return nil
	}
}

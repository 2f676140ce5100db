package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/venuebook/venuebook/libs/venuev1"
	"github.com/venuebook/venuebook/services/booking-service/internal/availability"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Client reads venue settings, rules and blackouts from venue-service.
type Client struct {
	api     venuev1.VenueServiceClient
	timeout time.Duration
}

func NewClient(api venuev1.VenueServiceClient, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Client{api: api, timeout: timeout}
}

func (c *Client) GetVenue(ctx context.Context, venueID string) (availability.Venue, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	v, err := c.api.GetVenue(ctx, &venuev1.GetVenueRequest{VenueID: venueID})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return availability.Venue{}, availability.ErrVenueNotFound
		}
		return availability.Venue{}, err
	}
	return availability.Venue{
		ID:                v.ID,
		Timezone:          v.Timezone,
		MinBookingMinutes: int(v.MinBookingMinutes),
		MaxBookingMinutes: int(v.MaxBookingMinutes),
		BufferMinutes:     int(v.BufferMinutes),
	}, nil
}

func (c *Client) ListRules(ctx context.Context, venueID string) ([]availability.Rule, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.ListRules(ctx, &venuev1.ListRulesRequest{VenueID: venueID})
	if err != nil {
		return nil, err
	}
	rules := make([]availability.Rule, 0, len(resp.Rules))
	for _, r := range resp.Rules {
		rule := availability.Rule{
			DayOfWeek:   time.Weekday(r.DayOfWeek),
			OpenMinute:  int(r.OpenMinute),
			CloseMinute: int(r.CloseMinute),
		}
		if err := rule.Validate(); err != nil {
			return nil, fmt.Errorf("venue %s: %w", venueID, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// ListBlackouts splits ranges longer than venuev1.MaxBlackoutWindow into
// several calls. A blackout spanning a split is returned once.
func (c *Client) ListBlackouts(ctx context.Context, venueID string, from, to time.Time) ([]availability.Blackout, error) {
	var out []availability.Blackout
	seen := make(map[string]bool)
	for lo := from.UTC(); lo.Before(to); lo = lo.Add(venuev1.MaxBlackoutWindow) {
		hi := lo.Add(venuev1.MaxBlackoutWindow)
		if hi.After(to) {
			hi = to.UTC()
		}
		page, err := c.listBlackouts(ctx, venueID, lo, hi)
		if err != nil {
			return nil, err
		}
		for _, b := range page {
			if !seen[b.ID] {
				seen[b.ID] = true
				out = append(out, b)
			}
		}
	}
	return out, nil
}

func (c *Client) listBlackouts(ctx context.Context, venueID string, from, to time.Time) ([]availability.Blackout, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.ListBlackouts(ctx, &venuev1.ListBlackoutsRequest{VenueID: venueID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	out := make([]availability.Blackout, 0, len(resp.Blackouts))
	for _, b := range resp.Blackouts {
		out = append(out, availability.Blackout{ID: b.ID, Start: b.Start.UTC(), End: b.End.UTC(), Reason: b.Reason})
	}
	return out, nil
}

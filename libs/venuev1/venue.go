// Package venuev1 is the venue.v1.VenueService gRPC contract. Messages are
// plain structs carried by the grpcx JSON codec.
package venuev1

import "time"

const ServiceName = "venue.v1.VenueService"

// MaxBlackoutWindow is the longest [From, To) range one ListBlackouts call
// accepts. Callers needing more split the range.
const MaxBlackoutWindow = 366 * 24 * time.Hour

type GetVenueRequest struct {
	VenueID string `json:"venue_id"`
}

type Venue struct {
	ID                string `json:"id"`
	HostID            string `json:"host_id"`
	Name              string `json:"name"`
	Timezone          string `json:"timezone"`
	MinBookingMinutes int32  `json:"min_booking_minutes"`
	// MaxBookingMinutes is 0 when the venue has no upper bound.
	MaxBookingMinutes int32 `json:"max_booking_minutes"`
	BufferMinutes     int32 `json:"buffer_minutes"`
}

type ListRulesRequest struct {
	VenueID string `json:"venue_id"`
}

type Rule struct {
	DayOfWeek   int32 `json:"day_of_week"`
	OpenMinute  int32 `json:"open_minute"`
	CloseMinute int32 `json:"close_minute"`
}

type ListRulesResponse struct {
	Rules []Rule `json:"rules"`
}

type ListBlackoutsRequest struct {
	VenueID string    `json:"venue_id"`
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
}

type Blackout struct {
	ID     string    `json:"id"`
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Reason string    `json:"reason,omitempty"`
}

type ListBlackoutsResponse struct {
	Blackouts []Blackout `json:"blackouts"`
}

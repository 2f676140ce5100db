package grpcserver

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/venuebook/venuebook/libs/db"
	"github.com/venuebook/venuebook/libs/venuev1"
	"github.com/venuebook/venuebook/services/venue-service/internal/model"
	"github.com/venuebook/venuebook/services/venue-service/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Reader is the read side of the venue store.
type Reader interface {
	GetVenue(ctx context.Context, venueID string) (model.Venue, error)
	ListRules(ctx context.Context, venueID string) ([]model.Rule, error)
	ListBlackouts(ctx context.Context, venueID string, from, to time.Time, limit int) ([]model.Blackout, error)
}

// blackoutLimit bounds one ListBlackouts reply. Past it the call fails
// rather than returning a partial list.
const blackoutLimit = 5000

var _ Reader = (*storage.Repository)(nil)

type server struct {
	repo Reader
}

func Register(grpcServer grpc.ServiceRegistrar, repo Reader) {
	venuev1.RegisterVenueServiceServer(grpcServer, &server{repo: repo})
}

func (s *server) GetVenue(ctx context.Context, req *venuev1.GetVenueRequest) (*venuev1.Venue, error) {
	id := strings.TrimSpace(req.VenueID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "venue_id is required")
	}
	v, err := s.repo.GetVenue(ctx, id)
	if err != nil {
		return nil, toStatus(err, "venue")
	}
	out := &venuev1.Venue{
		ID:                v.ID,
		HostID:            v.HostID,
		Name:              v.Name,
		Timezone:          v.Timezone,
		MinBookingMinutes: int32(v.MinBookingMinutes),
		BufferMinutes:     int32(v.BufferMinutes),
	}
	if v.MaxBookingMinutes != nil {
		out.MaxBookingMinutes = int32(*v.MaxBookingMinutes)
	}
	return out, nil
}

func (s *server) ListRules(ctx context.Context, req *venuev1.ListRulesRequest) (*venuev1.ListRulesResponse, error) {
	id := strings.TrimSpace(req.VenueID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "venue_id is required")
	}
	// Distinguish an unknown venue from a venue that is closed all week.
	if _, err := s.repo.GetVenue(ctx, id); err != nil {
		return nil, toStatus(err, "venue")
	}
	rules, err := s.repo.ListRules(ctx, id)
	if err != nil {
		return nil, toStatus(err, "rules")
	}
	resp := &venuev1.ListRulesResponse{Rules: make([]venuev1.Rule, 0, len(rules))}
	for _, r := range rules {
		resp.Rules = append(resp.Rules, venuev1.Rule{
			DayOfWeek:   int32(r.DayOfWeek),
			OpenMinute:  int32(r.OpenMinute),
			CloseMinute: int32(r.CloseMinute),
		})
	}
	return resp, nil
}

func (s *server) ListBlackouts(ctx context.Context, req *venuev1.ListBlackoutsRequest) (*venuev1.ListBlackoutsResponse, error) {
	id := strings.TrimSpace(req.VenueID)
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "venue_id is required")
	}
	if !req.To.After(req.From) {
		return nil, status.Error(codes.InvalidArgument, "to must be after from")
	}
	if req.To.Sub(req.From) > venuev1.MaxBlackoutWindow {
		return nil, status.Error(codes.InvalidArgument, "window too large")
	}
	blackouts, err := s.repo.ListBlackouts(ctx, id, req.From.UTC(), req.To.UTC(), blackoutLimit)
	if err != nil {
		return nil, toStatus(err, "blackouts")
	}
	resp := &venuev1.ListBlackoutsResponse{Blackouts: make([]venuev1.Blackout, 0, len(blackouts))}
	for _, b := range blackouts {
		resp.Blackouts = append(resp.Blackouts, venuev1.Blackout{
			ID:     b.ID,
			Start:  b.Start.UTC(),
			End:    b.End.UTC(),
			Reason: b.Reason,
		})
	}
	return resp, nil
}

func toStatus(err error, what string) error {
	if db.IsNotFound(err) {
		return status.Error(codes.NotFound, what+" not found")
	}
	if errors.Is(err, storage.ErrLimitExceeded) {
		return status.Error(codes.ResourceExhausted, "too many "+what+" in range")
	}
	if ctxErr := status.FromContextError(err); ctxErr.Code() != codes.Unknown {
		return ctxErr.Err()
	}
	return status.Error(codes.Internal, "failed to load "+what)
}

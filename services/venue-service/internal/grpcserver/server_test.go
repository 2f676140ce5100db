package grpcserver

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/venuebook/venuebook/libs/venuev1"
	"github.com/venuebook/venuebook/services/venue-service/internal/model"
	"github.com/venuebook/venuebook/services/venue-service/internal/storage"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeReader struct {
	venues    map[string]model.Venue
	rules     map[string][]model.Rule
	blackouts []model.Blackout
	window    [2]time.Time
}

func (f *fakeReader) GetVenue(_ context.Context, id string) (model.Venue, error) {
	v, ok := f.venues[id]
	if !ok {
		return model.Venue{}, pgx.ErrNoRows
	}
	return v, nil
}

func (f *fakeReader) ListRules(_ context.Context, id string) ([]model.Rule, error) {
	return f.rules[id], nil
}

func (f *fakeReader) ListBlackouts(_ context.Context, _ string, from, to time.Time, limit int) ([]model.Blackout, error) {
	f.window = [2]time.Time{from, to}
	if len(f.blackouts) > limit {
		return nil, storage.ErrLimitExceeded
	}
	return f.blackouts, nil
}

func dialServer(t *testing.T, repo Reader) venuev1.VenueServiceClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	Register(srv, repo)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return venuev1.NewVenueServiceClient(conn)
}

func TestGetVenueMapsOptionalMax(t *testing.T) {
	capMinutes := 240
	repo := &fakeReader{venues: map[string]model.Venue{
		"capped":   {ID: "capped", Name: "A", Timezone: "UTC", MinBookingMinutes: 30, MaxBookingMinutes: &capMinutes, BufferMinutes: 10},
		"uncapped": {ID: "uncapped", Name: "B", Timezone: "Europe/Berlin", MinBookingMinutes: 60},
	}}
	client := dialServer(t, repo)

	v, err := client.GetVenue(context.Background(), &venuev1.GetVenueRequest{VenueID: "capped"})
	if err != nil {
		t.Fatalf("GetVenue: %v", err)
	}
	if v.MaxBookingMinutes != 240 || v.BufferMinutes != 10 {
		t.Fatalf("unexpected venue %+v", v)
	}
	v, err = client.GetVenue(context.Background(), &venuev1.GetVenueRequest{VenueID: "uncapped"})
	if err != nil {
		t.Fatalf("GetVenue: %v", err)
	}
	if v.MaxBookingMinutes != 0 || v.Timezone != "Europe/Berlin" {
		t.Fatalf("unexpected venue %+v", v)
	}
}

func TestGetVenueErrors(t *testing.T) {
	client := dialServer(t, &fakeReader{venues: map[string]model.Venue{}})

	_, err := client.GetVenue(context.Background(), &venuev1.GetVenueRequest{VenueID: "missing"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
	_, err = client.GetVenue(context.Background(), &venuev1.GetVenueRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

func TestListRulesUnknownVenue(t *testing.T) {
	client := dialServer(t, &fakeReader{venues: map[string]model.Venue{}})
	_, err := client.ListRules(context.Background(), &venuev1.ListRulesRequest{VenueID: "missing"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestListRulesClosedVenueIsEmpty(t *testing.T) {
	repo := &fakeReader{
		venues: map[string]model.Venue{"v1": {ID: "v1"}, "v2": {ID: "v2"}},
		rules:  map[string][]model.Rule{"v1": {{DayOfWeek: 1, OpenMinute: 540, CloseMinute: 1020}}},
	}
	client := dialServer(t, repo)

	resp, err := client.ListRules(context.Background(), &venuev1.ListRulesRequest{VenueID: "v1"})
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(resp.Rules) != 1 || resp.Rules[0].OpenMinute != 540 || resp.Rules[0].CloseMinute != 1020 {
		t.Fatalf("unexpected rules %+v", resp.Rules)
	}
	resp, err = client.ListRules(context.Background(), &venuev1.ListRulesRequest{VenueID: "v2"})
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(resp.Rules) != 0 {
		t.Fatalf("expected no rules, got %+v", resp.Rules)
	}
}

func TestListBlackouts(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 14)
	repo := &fakeReader{blackouts: []model.Blackout{{
		ID: "b1", Start: from.Add(48 * time.Hour), End: from.Add(72 * time.Hour), Reason: "private event",
	}}}
	client := dialServer(t, repo)

	resp, err := client.ListBlackouts(context.Background(), &venuev1.ListBlackoutsRequest{VenueID: "v1", From: from, To: to})
	if err != nil {
		t.Fatalf("ListBlackouts: %v", err)
	}
	if len(resp.Blackouts) != 1 || resp.Blackouts[0].Reason != "private event" || !resp.Blackouts[0].Start.Equal(from.Add(48*time.Hour)) {
		t.Fatalf("unexpected blackouts %+v", resp.Blackouts)
	}
	if !repo.window[0].Equal(from) || !repo.window[1].Equal(to) {
		t.Fatalf("unexpected query window %v", repo.window)
	}

	_, err = client.ListBlackouts(context.Background(), &venuev1.ListBlackoutsRequest{VenueID: "v1", From: to, To: from})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument for inverted window, got %v", err)
	}
}

func TestListBlackoutsFailsInsteadOfTruncating(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeReader{blackouts: make([]model.Blackout, blackoutLimit+1)}
	for i := range repo.blackouts {
		start := from.Add(time.Duration(i) * time.Hour)
		repo.blackouts[i] = model.Blackout{ID: fmt.Sprintf("b%d", i), Start: start, End: start.Add(30 * time.Minute)}
	}
	client := dialServer(t, repo)

	_, err := client.ListBlackouts(context.Background(), &venuev1.ListBlackoutsRequest{VenueID: "v1", From: from, To: from.AddDate(1, 0, 0)})
	if status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("expected ResourceExhausted, got %v", err)
	}
}

func TestListBlackoutsRejectsOversizedWindow(t *testing.T) {
	client := dialServer(t, &fakeReader{})
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	_, err := client.ListBlackouts(context.Background(), &venuev1.ListBlackoutsRequest{
		VenueID: "v1", From: from, To: from.Add(venuev1.MaxBlackoutWindow + time.Hour),
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
}

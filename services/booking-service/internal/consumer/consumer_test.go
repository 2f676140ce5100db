package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/venuebook/venuebook/libs/kafkax"
)

type memInbox struct {
	seen map[string]bool
	err  error
}

func (m *memInbox) Record(_ context.Context, eventID, _ string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if m.seen[eventID] {
		return false, nil
	}
	m.seen[eventID] = true
	return true, nil
}

func newTestConsumer(inbox Inbox, h Handler) *Consumer {
	return &Consumer{logger: slog.New(slog.NewTextHandler(io.Discard, nil)), inbox: inbox, handler: h}
}

func message(eventID string) kafka.Message {
	return kafka.Message{
		Topic: "venue.schedule.changed.v1",
		Key:   []byte("venue-1"),
		Headers: []kafka.Header{
			{Key: kafkax.HeaderEventID, Value: []byte(eventID)},
		},
	}
}

func TestDuplicateEventsHandledOnce(t *testing.T) {
	calls := 0
	c := newTestConsumer(&memInbox{seen: map[string]bool{}}, func(context.Context, kafka.Message) error {
		calls++
		return nil
	})

	c.handle(context.Background(), message("evt-1"))
	c.handle(context.Background(), message("evt-1"))
	c.handle(context.Background(), message("evt-2"))
	if calls != 2 {
		t.Fatalf("expected 2 handler calls, got %d", calls)
	}
}

func TestInboxFailureSkipsHandler(t *testing.T) {
	called := false
	c := newTestConsumer(&memInbox{err: errors.New("db down")}, func(context.Context, kafka.Message) error {
		called = true
		return nil
	})
	c.handle(context.Background(), message("evt-1"))
	if called {
		t.Fatal("handler must not run when the inbox cannot record the event")
	}
}

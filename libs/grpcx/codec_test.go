package grpcx

import (
	"testing"
	"time"

	"google.golang.org/grpc/encoding"
)

func TestJSONCodecRegistered(t *testing.T) {
	codec := encoding.GetCodec(JSONCodecName)
	if codec == nil {
		t.Fatal("json codec not registered")
	}

	type payload struct {
		VenueID string    `json:"venue_id"`
		From    time.Time `json:"from"`
	}
	in := payload{VenueID: "v-1", From: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)}
	raw, err := codec.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out payload
	if err := codec.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.VenueID != in.VenueID || !out.From.Equal(in.From) {
		t.Fatalf("unexpected payload %+v", out)
	}
}

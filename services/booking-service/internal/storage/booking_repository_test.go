package storage

import (
	"testing"
	"time"

	"github.com/venuebook/venuebook/services/booking-service/internal/model"
)

// bookingRow feeds scanBooking the columns of bookingColumns in order.
type bookingRow struct {
	status string
}

func (r bookingRow) Scan(dest ...any) error {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	*dest[0].(*string) = "b-1"
	*dest[1].(*string) = "venue-1"
	*dest[2].(*string) = "guest-1"
	*dest[3].(*time.Time) = created.Add(time.Hour)
	*dest[4].(*time.Time) = created.Add(2 * time.Hour)
	*dest[5].(*string) = r.status
	*dest[6].(**time.Time) = nil
	*dest[7].(*string) = ""
	*dest[8].(*time.Time) = created
	*dest[9].(*time.Time) = created
	return nil
}

func TestScanBookingParsesStatus(t *testing.T) {
	b, err := scanBooking(bookingRow{status: "confirmed"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.Status != model.StatusConfirmed || b.VenueID != "venue-1" {
		t.Fatalf("unexpected booking %+v", b)
	}
}

func TestScanBookingRejectsUnknownStatus(t *testing.T) {
	if _, err := scanBooking(bookingRow{status: "booked"}); err == nil {
		t.Fatal("expected an unknown stored status to be an error")
	}
}

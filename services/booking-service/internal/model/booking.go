package model

import (
	"fmt"
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return s, nil
	default:
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
}

// Occupying reports whether a booking in this status blocks its slot.
// Everything except cancelled does.
func (s BookingStatus) Occupying() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	default:
		return false
	}
}

// CanTransition allows pending -> confirmed -> completed, and cancellation
// from pending or confirmed.
func (s BookingStatus) CanTransition(to BookingStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

type Booking struct {
	ID           string
	VenueID      string
	GuestID      string
	StartTime    time.Time
	EndTime      time.Time
	Status       BookingStatus
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

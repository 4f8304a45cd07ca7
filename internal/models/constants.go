package models

import (
	"fmt"
	"strings"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusActive    BookingStatus = "active"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
	StatusDisputed  BookingStatus = "disputed"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []BookingStatus{
	StatusPending,
	StatusConfirmed,
	StatusActive,
	StatusCompleted,
	StatusDisputed,
	StatusCancelled,
}

func (s BookingStatus) String() string {
	return string(s)
}

func (s BookingStatus) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// BlocksAvailability reports whether a booking in this status reserves its dates.
func (s BookingStatus) BlocksAvailability() bool {
	return s != StatusCancelled
}

func ParseBookingStatus(raw string) (BookingStatus, error) {
	s := BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown booking status %q", raw)
	}
	return s, nil
}

// Role is the part an actor plays on a particular booking.
type Role string

const (
	RoleNone    Role = ""
	RoleRenter  Role = "renter"
	RoleOwner   Role = "owner"
	RoleArbiter Role = "arbiter"
)

// Actor is the authenticated caller.
type Actor struct {
	UserID    string
	IsArbiter bool
}

// Perspective selects which side of a user's bookings a query covers.
type Perspective string

const (
	PerspectiveRenter Perspective = "renter"
	PerspectiveOwner  Perspective = "owner"
	PerspectiveBoth   Perspective = "both"
)

func ParsePerspective(raw string) (Perspective, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "both", "all":
		return PerspectiveBoth, nil
	case "renter":
		return PerspectiveRenter, nil
	case "owner":
		return PerspectiveOwner, nil
	default:
		return "", fmt.Errorf("unknown role %q", raw)
	}
}

const (
	// DateLayout is the wire and storage format of calendar dates.
	DateLayout = "2006-01-02"

	// DefaultMaxAdvanceDays bounds how far ahead a booking may start.
	DefaultMaxAdvanceDays = 365

	// DefaultPageSize and MaxPageSize bound list endpoints.
	DefaultPageSize = 20
	MaxPageSize     = 100

	// WorkerQueueSize is the in-memory fallback queue size of the sync worker.
	WorkerQueueSize = 128

	// ItemCacheTTL is how long item lookups stay cached, in seconds.
	ItemCacheTTL = 5 * 60

	// MinRating and MaxRating bound booking ratings.
	MinRating = 1
	MaxRating = 5
)

package models

import "time"

type Booking struct {
	ID            string        `json:"id"`
	ItemID        string        `json:"item_id"`
	RenterID      string        `json:"renter_id"`
	OwnerID       string        `json:"owner_id"`
	StartDate     time.Time     `json:"start_date"`
	EndDate       time.Time     `json:"end_date"`
	TotalDays     int           `json:"total_days"`
	TotalAmount   int64         `json:"total_amount"`
	DepositAmount *int64        `json:"deposit_amount,omitempty"`
	Status        BookingStatus `json:"status"`
	Notes         string        `json:"notes"`
	Rating        *int          `json:"rating,omitempty"`
	Feedback      string        `json:"feedback,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	Version       int64         `json:"version"`
}

// Range returns the booked calendar range.
func (b *Booking) Range() DateRange {
	return DateRange{Start: b.StartDate, End: b.EndDate}
}

// RoleOf resolves which party the actor is on this booking.
// Ownership is read from the frozen OwnerID, never from the item.
func (b *Booking) RoleOf(actor Actor) Role {
	switch {
	case actor.UserID != "" && actor.UserID == b.OwnerID:
		return RoleOwner
	case actor.UserID != "" && actor.UserID == b.RenterID:
		return RoleRenter
	case actor.IsArbiter:
		return RoleArbiter
	default:
		return RoleNone
	}
}

// Conflict is the minimal description of a blocking booking.
type Conflict struct {
	BookingID string        `json:"-"`
	StartDate time.Time     `json:"start_date"`
	EndDate   time.Time     `json:"end_date"`
	Status    BookingStatus `json:"status"`
}

type Availability struct {
	ItemID    string    `json:"item_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Available bool      `json:"available"`
	Conflict  *Conflict `json:"conflict,omitempty"`
}

// BookingFilter selects a user's bookings for listing and export.
type BookingFilter struct {
	UserID      string
	Perspective Perspective
	Status      BookingStatus
	Limit       int
	Offset      int
}

// BookingStats is a read-time aggregation of a user's bookings.
type BookingStats struct {
	UserID      string                `json:"user_id"`
	Perspective Perspective           `json:"role"`
	Total       int                   `json:"total"`
	ByStatus    map[BookingStatus]int `json:"by_status"`
}

// Quote is a price preview for an item and range. TierUnits whole weeks or
// months at TierRate plus ExtraDays at DailyRate add up to TotalAmount.
type Quote struct {
	ItemID      string    `json:"item_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	TotalDays   int       `json:"total_days"`
	TotalAmount int64     `json:"total_amount"`
	Tier        string    `json:"tier"`
	TierUnits   int       `json:"tier_units"`
	TierRate    int64     `json:"tier_rate"`
	ExtraDays   int       `json:"extra_days"`
	DailyRate   int64     `json:"daily_rate"`
}

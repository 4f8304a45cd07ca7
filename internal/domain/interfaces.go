package domain

import (
	"context"
	"time"

	"rentbook/internal/models"
)

// BookingStore is the persistence contract of the booking engine.
type BookingStore interface {
	// CreateBookingWithLock runs the conflict check and the insert atomically.
	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	FindConflict(ctx context.Context, itemID string, r models.DateRange, excludeBookingID string) (*models.Conflict, error)
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status models.BookingStatus, notes string) error
	SetBookingRatingWithVersion(ctx context.Context, id string, version int64, rating int, feedback string) error
	ListUserBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int, error)
	GetUserBookingStats(ctx context.Context, userID string, perspective models.Perspective) (map[models.BookingStatus]int, error)
	PingContext(ctx context.Context) error
}

type ItemCatalog interface {
	GetItemByID(ctx context.Context, id string) (*models.Item, error)
}

type ItemRepository interface {
	ItemCatalog
	UpsertItem(ctx context.Context, item *models.Item) error
}

// CacheRepository stores short-lived lookups and throttling counters.
type CacheRepository interface {
	GetItem(ctx context.Context, id string) (*models.Item, error)
	SetItem(ctx context.Context, item *models.Item) error
	InvalidateItem(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type SyncTaskStore interface {
	CreateSyncTask(ctx context.Context, task *models.SyncTask) error
	GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error)
	UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error
	SyncTaskOrder(ctx context.Context, bookingID string, id int64) (models.SyncTaskOrder, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, booking *models.Booking) error
}

// CreateBookingInput is a renter's booking request.
type CreateBookingInput struct {
	ItemID        string
	RenterID      string
	StartDate     time.Time
	EndDate       time.Time
	ClientAmount  *int64
	DepositAmount *int64
	Notes         string
}

type BookingService interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*models.Booking, error)
	GetBooking(ctx context.Context, id string, actor models.Actor) (*models.Booking, error)
	Transition(ctx context.Context, id string, actor models.Actor, target models.BookingStatus, notes string) (*models.Booking, error)
	Rate(ctx context.Context, id string, actor models.Actor, rating int, feedback string) (*models.Booking, error)
	ListBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int, error)
	GetStats(ctx context.Context, userID string, perspective models.Perspective) (*models.BookingStats, error)
	CheckAvailability(ctx context.Context, itemID string, r models.DateRange, excludeBookingID string) (*models.Availability, error)
	Quote(ctx context.Context, itemID string, r models.DateRange) (*models.Quote, error)
}

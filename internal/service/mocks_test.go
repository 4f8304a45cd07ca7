package service

import (
	"context"
	"time"

	"rentbook/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBookingWithLock(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockStore) FindConflict(ctx context.Context, itemID string, r models.DateRange, exclude string) (*models.Conflict, error) {
	args := m.Called(ctx, itemID, r, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conflict), args.Error(1)
}

func (m *mockStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) UpdateBookingStatusWithVersion(ctx context.Context, id string, v int64, s models.BookingStatus, notes string) error {
	return m.Called(ctx, id, v, s, notes).Error(0)
}

func (m *mockStore) SetBookingRatingWithVersion(ctx context.Context, id string, v int64, rating int, feedback string) error {
	return m.Called(ctx, id, v, rating, feedback).Error(0)
}

func (m *mockStore) ListUserBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Booking), args.Int(1), args.Error(2)
}

func (m *mockStore) GetUserBookingStats(ctx context.Context, userID string, p models.Perspective) (map[models.BookingStatus]int, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[models.BookingStatus]int), args.Error(1)
}

func (m *mockStore) PingContext(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

type mockItems struct {
	mock.Mock
}

func (m *mockItems) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *mockItems) UpsertItem(ctx context.Context, item *models.Item) error {
	return m.Called(ctx, item).Error(0)
}

type mockCache struct {
	mock.Mock
}

func (m *mockCache) GetItem(ctx context.Context, id string) (*models.Item, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Item), args.Error(1)
}

func (m *mockCache) SetItem(ctx context.Context, item *models.Item) error {
	return m.Called(ctx, item).Error(0)
}

func (m *mockCache) InvalidateItem(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockWorker struct {
	mock.Mock
}

func (m *mockWorker) EnqueueTask(ctx context.Context, taskType string, b *models.Booking) error {
	return m.Called(ctx, taskType, b).Error(0)
}

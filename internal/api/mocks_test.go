package api

import (
	"context"

	"rentbook/internal/domain"
	"rentbook/internal/models"

	"github.com/stretchr/testify/mock"
)

type mockBookings struct {
	mock.Mock
}

var _ BookingAPI = (*mockBookings)(nil)

func (m *mockBookings) CreateBooking(ctx context.Context, in domain.CreateBookingInput) (*models.Booking, error) {
	args := m.Called(ctx, in)
	return bookingArg(args, 0), args.Error(1)
}

func (m *mockBookings) GetBooking(ctx context.Context, id string, actor models.Actor) (*models.Booking, error) {
	args := m.Called(ctx, id, actor)
	return bookingArg(args, 0), args.Error(1)
}

func (m *mockBookings) Transition(ctx context.Context, id string, actor models.Actor, target models.BookingStatus, notes string) (*models.Booking, error) {
	args := m.Called(ctx, id, actor, target, notes)
	return bookingArg(args, 0), args.Error(1)
}

func (m *mockBookings) Rate(ctx context.Context, id string, actor models.Actor, rating int, feedback string) (*models.Booking, error) {
	args := m.Called(ctx, id, actor, rating, feedback)
	return bookingArg(args, 0), args.Error(1)
}

func (m *mockBookings) ListBookings(ctx context.Context, f models.BookingFilter) ([]*models.Booking, int, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*models.Booking), args.Int(1), args.Error(2)
}

func (m *mockBookings) GetStats(ctx context.Context, userID string, p models.Perspective) (*models.BookingStats, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.BookingStats), args.Error(1)
}

func (m *mockBookings) CheckAvailability(ctx context.Context, itemID string, r models.DateRange, exclude string) (*models.Availability, error) {
	args := m.Called(ctx, itemID, r, exclude)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Availability), args.Error(1)
}

func (m *mockBookings) Quote(ctx context.Context, itemID string, r models.DateRange) (*models.Quote, error) {
	args := m.Called(ctx, itemID, r)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Quote), args.Error(1)
}

func (m *mockBookings) ExportBookings(ctx context.Context, userID string, p models.Perspective) ([]*models.Booking, error) {
	args := m.Called(ctx, userID, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockBookings) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func bookingArg(args mock.Arguments, i int) *models.Booking {
	if args.Get(i) == nil {
		return nil
	}
	return args.Get(i).(*models.Booking)
}

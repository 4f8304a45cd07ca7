package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"rentbook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

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
	args := m.Called(ctx, item)
	return args.Error(0)
}

func (m *mockCache) InvalidateItem(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockCache) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

func TestFailoverCacheRepository(t *testing.T) {
	primary := new(mockCache)
	fallback := new(mockCache)
	logger := zerolog.New(io.Discard)
	repo := NewFailoverCacheRepository(primary, fallback, &logger)
	ctx := context.Background()

	markDownAt := func(at time.Time) {
		repo.isDown.Store(true)
		repo.lastCheck.Store(at.UnixNano())
	}

	t.Run("PrimarySuccess", func(t *testing.T) {
		item := &models.Item{ID: "cam-1"}
		primary.On("GetItem", ctx, "cam-1").Return(item, nil).Once()

		got, err := repo.GetItem(ctx, "cam-1")
		assert.NoError(t, err)
		assert.Equal(t, item, got)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		item := &models.Item{ID: "cam-2"}
		primary.On("GetItem", ctx, "cam-2").Return(nil, errors.New("fail")).Once()
		fallback.On("GetItem", ctx, "cam-2").Return(item, nil).Once()

		got, err := repo.GetItem(ctx, "cam-2")
		assert.NoError(t, err)
		assert.Equal(t, item, got)
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("StaysOnFallbackWhileDown", func(t *testing.T) {
		markDownAt(time.Now())
		fallback.On("CheckRateLimit", ctx, "create:u1", 10, time.Minute).Return(true, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "create:u1", 10, time.Minute)
		assert.NoError(t, err)
		assert.True(t, allowed)
		fallback.AssertExpectations(t)
		primary.AssertNotCalled(t, "CheckRateLimit", ctx, "create:u1", 10, time.Minute)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		markDownAt(time.Now().Add(-2 * time.Minute))

		item := &models.Item{ID: "cam-3"}
		primary.On("GetItem", ctx, "cam-3").Return(item, nil).Once()

		got, err := repo.GetItem(ctx, "cam-3")
		assert.NoError(t, err)
		assert.Equal(t, item, got)
		assert.False(t, repo.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		markDownAt(time.Now().Add(-2 * time.Minute))

		primary.On("GetItem", ctx, "cam-4").Return(nil, errors.New("still fail")).Once()
		fallback.On("GetItem", ctx, "cam-4").Return(nil, nil).Once()

		_, err := repo.GetItem(ctx, "cam-4")
		assert.NoError(t, err)
		assert.True(t, repo.isDown.Load())
		assert.False(t, repo.usePrimary(), "a failed probe restarts the recovery interval")
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetItemFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		item := &models.Item{ID: "cam-5"}
		primary.On("SetItem", ctx, item).Return(errors.New("fail")).Once()
		fallback.On("SetItem", ctx, item).Return(nil).Once()

		assert.NoError(t, repo.SetItem(ctx, item))
		assert.True(t, repo.isDown.Load())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateClearsBothLayers", func(t *testing.T) {
		repo.isDown.Store(false)
		fallback.On("InvalidateItem", ctx, "cam-6").Return(nil).Once()
		primary.On("InvalidateItem", ctx, "cam-6").Return(nil).Once()

		assert.NoError(t, repo.InvalidateItem(ctx, "cam-6"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("CheckRateLimitFailover", func(t *testing.T) {
		repo.isDown.Store(false)
		primary.On("CheckRateLimit", ctx, "create:u2", 10, time.Minute).Return(false, errors.New("fail")).Once()
		fallback.On("CheckRateLimit", ctx, "create:u2", 10, time.Minute).Return(false, nil).Once()

		allowed, err := repo.CheckRateLimit(ctx, "create:u2", 10, time.Minute)
		assert.NoError(t, err)
		assert.False(t, allowed)
		assert.True(t, repo.isDown.Load())
	})
}

package repository

import (
	"context"
	"sync/atomic"
	"time"

	"rentbook/internal/domain"
	"rentbook/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverCacheRepository serves from the primary until it errors, then from
// the fallback, probing the primary again once recoveryInterval has passed.
type FailoverCacheRepository struct {
	primary   domain.CacheRepository
	fallback  domain.CacheRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverCacheRepository(primary, fallback domain.CacheRepository, logger *zerolog.Logger) *FailoverCacheRepository {
	return &FailoverCacheRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to the primary.
func (r *FailoverCacheRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverCacheRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary cache repository failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverCacheRepository) markUp() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary cache repository recovered")
	}
}

func (r *FailoverCacheRepository) GetItem(ctx context.Context, id string) (*models.Item, error) {
	if r.usePrimary() {
		item, err := r.primary.GetItem(ctx, id)
		if err == nil {
			r.markUp()
			return item, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetItem(ctx, id)
}

func (r *FailoverCacheRepository) SetItem(ctx context.Context, item *models.Item) error {
	if r.usePrimary() {
		err := r.primary.SetItem(ctx, item)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetItem(ctx, item)
}

// InvalidateItem clears both layers so a stale fallback entry cannot outlive a recovery.
func (r *FailoverCacheRepository) InvalidateItem(ctx context.Context, id string) error {
	_ = r.fallback.InvalidateItem(ctx, id)
	if r.usePrimary() {
		err := r.primary.InvalidateItem(ctx, id)
		if err == nil {
			r.markUp()
			return nil
		}
		r.markDown(err)
	}
	return nil
}

func (r *FailoverCacheRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.markUp()
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

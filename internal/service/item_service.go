package service

import (
	"context"

	"rentbook/internal/domain"
	"rentbook/internal/models"

	"github.com/rs/zerolog"
)

// ItemService reads the catalog through the cache repository.
type ItemService struct {
	repo   domain.ItemRepository
	cache  domain.CacheRepository
	logger *zerolog.Logger
}

var _ domain.ItemCatalog = (*ItemService)(nil)

func NewItemService(repo domain.ItemRepository, cache domain.CacheRepository, logger *zerolog.Logger) *ItemService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &ItemService{repo: repo, cache: cache, logger: logger}
}

func (s *ItemService) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	if s.cache != nil {
		item, err := s.cache.GetItem(ctx, id)
		if err != nil {
			s.logger.Debug().Err(err).Str("item_id", id).Msg("item cache read failed")
		} else if item != nil {
			return item, nil
		}
	}

	item, err := s.repo.GetItemByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetItem(ctx, item); err != nil {
			s.logger.Debug().Err(err).Str("item_id", id).Msg("item cache write failed")
		}
	}
	return item, nil
}

// UpsertItem writes the item and drops any cached copy.
func (s *ItemService) UpsertItem(ctx context.Context, item *models.Item) error {
	if err := s.repo.UpsertItem(ctx, item); err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.InvalidateItem(ctx, item.ID); err != nil {
			s.logger.Warn().Err(err).Str("item_id", item.ID).Msg("item cache invalidation failed")
		}
	}
	return nil
}

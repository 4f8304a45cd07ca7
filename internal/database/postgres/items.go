package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentbook/internal/domain"
	"rentbook/internal/models"
)

type itemRow struct {
	ID          string        `db:"id"`
	OwnerID     string        `db:"owner_id"`
	Name        string        `db:"name"`
	Description string        `db:"description"`
	DailyRate   int64         `db:"daily_rate"`
	WeeklyRate  sql.NullInt64 `db:"weekly_rate"`
	MonthlyRate sql.NullInt64 `db:"monthly_rate"`
	IsActive    bool          `db:"is_active"`
	CreatedAt   time.Time     `db:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"`
}

func (r *itemRow) toModel() *models.Item {
	item := &models.Item{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Name:        r.Name,
		Description: r.Description,
		DailyRate:   r.DailyRate,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.WeeklyRate.Valid {
		w := r.WeeklyRate.Int64
		item.WeeklyRate = &w
	}
	if r.MonthlyRate.Valid {
		m := r.MonthlyRate.Int64
		item.MonthlyRate = &m
	}
	return item
}

func (s *Store) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	var row itemRow
	err := s.db.GetContext(ctx, &row, `SELECT id, owner_id, name, description, daily_rate, weekly_rate,
		monthly_rate, is_active, created_at, updated_at FROM items WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) UpsertItem(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	_, err := s.db.NamedExecContext(ctx, `INSERT INTO items
			(id, owner_id, name, description, daily_rate, weekly_rate, monthly_rate, is_active, created_at, updated_at)
		VALUES
			(:id, :owner_id, :name, :description, :daily_rate, :weekly_rate, :monthly_rate, :is_active, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			daily_rate = EXCLUDED.daily_rate,
			weekly_rate = EXCLUDED.weekly_rate,
			monthly_rate = EXCLUDED.monthly_rate,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at`,
		itemRow{
			ID:          item.ID,
			OwnerID:     item.OwnerID,
			Name:        item.Name,
			Description: item.Description,
			DailyRate:   item.DailyRate,
			WeeklyRate:  nullInt64(item.WeeklyRate),
			MonthlyRate: nullInt64(item.MonthlyRate),
			IsActive:    item.IsActive,
			CreatedAt:   item.CreatedAt,
			UpdatedAt:   item.UpdatedAt,
		})
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

// SyncItems upserts a catalog seed item by item.
func (s *Store) SyncItems(ctx context.Context, items []models.Item) error {
	for i := range items {
		if err := s.UpsertItem(ctx, &items[i]); err != nil {
			return fmt.Errorf("failed to sync item %s: %w", items[i].ID, err)
		}
	}
	s.logger.Info().Int("count", len(items)).Msg("Items synchronized")
	return nil
}

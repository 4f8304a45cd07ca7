package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"rentbook/internal/domain"
	"rentbook/internal/models"
)

const itemColumns = `id, owner_id, name, description, daily_rate, weekly_rate, monthly_rate, is_active, created_at, updated_at`

const upsertItemQuery = `INSERT INTO items (` + itemColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		owner_id = excluded.owner_id,
		name = excluded.name,
		description = excluded.description,
		daily_rate = excluded.daily_rate,
		weekly_rate = excluded.weekly_rate,
		monthly_rate = excluded.monthly_rate,
		is_active = excluded.is_active,
		updated_at = excluded.updated_at`

// SetItems replaces the in-process item cache.
func (db *DB) SetItems(items []models.Item) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.itemsCache = make(map[string]models.Item, len(items))
	for _, item := range items {
		db.itemsCache[item.ID] = item
	}
}

// GetItems returns cached items sorted by id.
func (db *DB) GetItems() []models.Item {
	db.mu.RLock()
	items := make([]models.Item, 0, len(db.itemsCache))
	for _, item := range db.itemsCache {
		items = append(items, item)
	}
	db.mu.RUnlock()

	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items
}

func (db *DB) GetItemByID(ctx context.Context, id string) (*models.Item, error) {
	db.mu.RLock()
	cached, ok := db.itemsCache[id]
	db.mu.RUnlock()
	if ok {
		return &cached, nil
	}

	item, err := scanItem(db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	db.mu.Lock()
	db.itemsCache[item.ID] = *item
	db.mu.Unlock()
	return item, nil
}

func (db *DB) UpsertItem(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	if _, err := db.ExecContext(ctx, upsertItemQuery, itemArgs(item)...); err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}

	db.mu.Lock()
	db.itemsCache[item.ID] = *item
	db.mu.Unlock()
	return nil
}

// SyncItems upserts a catalog seed in one transaction and refreshes the cache.
func (db *DB) SyncItems(ctx context.Context, items []models.Item) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now().UTC()
	for i := range items {
		if items[i].CreatedAt.IsZero() {
			items[i].CreatedAt = now
		}
		items[i].UpdatedAt = now
		if _, err := tx.ExecContext(ctx, upsertItemQuery, itemArgs(&items[i])...); err != nil {
			return fmt.Errorf("failed to sync item %s: %w", items[i].ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}

	db.SetItems(items)
	db.logger.Info().Int("count", len(items)).Msg("Items synchronized")
	return nil
}

func (db *DB) GetActiveItems(ctx context.Context) ([]models.Item, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE is_active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to get active items: %w", err)
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (db *DB) DeactivateItem(ctx context.Context, id string) error {
	result, err := db.ExecContext(ctx, `UPDATE items SET is_active = 0, updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to deactivate item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrNotFound)
	}

	db.mu.Lock()
	delete(db.itemsCache, id)
	db.mu.Unlock()
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var (
		item            models.Item
		weekly, monthly sql.NullInt64
	)
	err := row.Scan(&item.ID, &item.OwnerID, &item.Name, &item.Description, &item.DailyRate,
		&weekly, &monthly, &item.IsActive, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		return nil, err
	}
	item.WeeklyRate = int64Ptr(weekly)
	item.MonthlyRate = int64Ptr(monthly)
	return &item, nil
}

func itemArgs(item *models.Item) []any {
	return []any{
		item.ID, item.OwnerID, item.Name, item.Description, item.DailyRate,
		nullInt64(item.WeeklyRate), nullInt64(item.MonthlyRate), item.IsActive,
		item.CreatedAt, item.UpdatedAt,
	}
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

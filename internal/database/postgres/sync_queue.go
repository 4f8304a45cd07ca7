package postgres

import (
	"context"
	"fmt"
	"time"

	"rentbook/internal/models"
)

type syncTaskRow struct {
	ID          int64      `db:"id"`
	TaskType    string     `db:"task_type"`
	BookingID   string     `db:"booking_id"`
	Payload     string     `db:"payload"`
	Status      string     `db:"status"`
	RetryCount  int        `db:"retry_count"`
	LastError   *string    `db:"last_error"`
	CreatedAt   time.Time  `db:"created_at"`
	ProcessedAt *time.Time `db:"processed_at"`
	NextRetryAt *time.Time `db:"next_retry_at"`
}

func (s *Store) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.Status == "" {
		task.Status = models.SyncStatusPending
	}
	now := time.Now().UTC()
	err := s.db.QueryRowxContext(ctx, `INSERT INTO sync_queue
			(task_type, booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		task.TaskType, task.BookingID, task.Payload, task.Status, task.RetryCount, task.LastError, now, task.NextRetryAt,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}
	task.CreatedAt = now
	return nil
}

func (s *Store) GetPendingSyncTasks(ctx context.Context, limit int) ([]models.SyncTask, error) {
	var rows []syncTaskRow
	err := s.db.SelectContext(ctx, &rows, `SELECT id, task_type, booking_id, payload, status, retry_count,
			last_error, created_at, processed_at, next_retry_at
		FROM sync_queue q
		WHERE q.status IN ($1, $2) AND (q.next_retry_at IS NULL OR q.next_retry_at <= $3)
			AND NOT EXISTS (
				SELECT 1 FROM sync_queue e
				WHERE e.booking_id = q.booking_id AND e.id < q.id AND e.status IN ($1, $2))
		ORDER BY q.created_at, q.id LIMIT $4`,
		models.SyncStatusPending, models.SyncStatusRetry, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending sync tasks: %w", err)
	}

	tasks := make([]models.SyncTask, 0, len(rows))
	for _, r := range rows {
		tasks = append(tasks, models.SyncTask(r))
	}
	return tasks, nil
}

func (s *Store) UpdateSyncTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var lastError *string
	if errMsg != "" {
		lastError = &errMsg
	}

	var err error
	switch status {
	case models.SyncStatusRetry:
		_, err = s.db.ExecContext(ctx, `UPDATE sync_queue SET status = $1, last_error = $2, next_retry_at = $3,
			retry_count = retry_count + 1 WHERE id = $4`, status, lastError, nextRetryAt, id)
	case models.SyncStatusCompleted, models.SyncStatusFailed:
		_, err = s.db.ExecContext(ctx, `UPDATE sync_queue SET status = $1, last_error = $2, next_retry_at = $3,
			processed_at = $4 WHERE id = $5`, status, lastError, nextRetryAt, time.Now().UTC(), id)
	default:
		_, err = s.db.ExecContext(ctx, `UPDATE sync_queue SET status = $1, last_error = $2, next_retry_at = $3
			WHERE id = $4`, status, lastError, nextRetryAt, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update sync task status: %w", err)
	}
	return nil
}

// SyncTaskOrder reports whether a task must wait for an earlier one or has
// been overtaken by a later one of the same booking.
func (s *Store) SyncTaskOrder(ctx context.Context, bookingID string, id int64) (models.SyncTaskOrder, error) {
	var order models.SyncTaskOrder
	err := s.db.QueryRowxContext(ctx, `SELECT
			EXISTS (SELECT 1 FROM sync_queue WHERE booking_id = $1 AND id < $2 AND status IN ($3, $4)),
			EXISTS (SELECT 1 FROM sync_queue WHERE booking_id = $1 AND id > $2 AND status = $5)`,
		bookingID, id, models.SyncStatusPending, models.SyncStatusRetry, models.SyncStatusCompleted,
	).Scan(&order.Blocked, &order.Superseded)
	if err != nil {
		return order, fmt.Errorf("failed to check sync task order: %w", err)
	}
	return order, nil
}

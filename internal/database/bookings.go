package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rentbook/internal/domain"
	"rentbook/internal/models"

	"github.com/google/uuid"
)

const bookingColumns = `id, item_id, renter_id, owner_id, start_date, end_date, total_days,
	total_amount, deposit_amount, status, notes, rating, feedback, version, created_at, updated_at`

const conflictQuery = `SELECT id, start_date, end_date, status FROM bookings
	WHERE item_id = ? AND status <> ? AND start_date <= ? AND ? <= end_date AND id <> ?
	ORDER BY start_date LIMIT 1`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateBookingWithLock checks for an overlapping booking and inserts the new
// one inside a single write transaction. The insert trigger rejects any
// overlap that slips past the check.
func (db *DB) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	conflict, err := findConflict(ctx, tx, booking.ItemID, booking.Range(), booking.ID)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if conflict != nil {
		return domain.NewDateConflictError(booking.ItemID, conflict, booking.Range())
	}

	now := time.Now().UTC()
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		booking.ID,
		booking.ItemID,
		booking.RenterID,
		booking.OwnerID,
		formatDate(booking.StartDate),
		formatDate(booking.EndDate),
		booking.TotalDays,
		booking.TotalAmount,
		nullInt64(booking.DepositAmount),
		string(booking.Status),
		booking.Notes,
		nullInt(booking.Rating),
		booking.Feedback,
		1,
		now,
		now,
	)
	if err != nil {
		if isOverlapViolation(err) {
			return domain.NewDateConflictError(booking.ItemID, nil, booking.Range())
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if isOverlapViolation(err) {
			return domain.NewDateConflictError(booking.ItemID, nil, booking.Range())
		}
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

// FindConflict returns the earliest non-cancelled booking of the item whose
// inclusive range intersects r, ignoring excludeBookingID. Nil means free.
func (db *DB) FindConflict(ctx context.Context, itemID string, r models.DateRange, excludeBookingID string) (*models.Conflict, error) {
	conflict, err := findConflict(ctx, db, itemID, r, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to find conflict: %w", err)
	}
	return conflict, nil
}

func findConflict(ctx context.Context, q queryRower, itemID string, r models.DateRange, excludeBookingID string) (*models.Conflict, error) {
	var (
		c          models.Conflict
		start, end string
		status     string
	)
	err := q.QueryRowContext(ctx, conflictQuery,
		itemID, string(models.StatusCancelled), formatDate(r.End), formatDate(r.Start), excludeBookingID,
	).Scan(&c.BookingID, &start, &end, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if c.StartDate, err = models.ParseDate(start); err != nil {
		return nil, fmt.Errorf("failed to parse start date %s: %w", start, err)
	}
	if c.EndDate, err = models.ParseDate(end); err != nil {
		return nil, fmt.Errorf("failed to parse end date %s: %w", end, err)
	}
	c.Status = models.BookingStatus(status)
	return &c, nil
}

func (db *DB) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return b, nil
}

// UpdateBookingStatusWithVersion applies a status change only if the row is
// still at the given version.
func (db *DB) UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status models.BookingStatus, notes string) error {
	query := `UPDATE bookings SET status = ?, notes = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, string(status), notes, time.Now().UTC(), id, version)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return db.casMiss(ctx, id)
	}
	return nil
}

// SetBookingRatingWithVersion stores the first rating of a booking.
func (db *DB) SetBookingRatingWithVersion(ctx context.Context, id string, version int64, rating int, feedback string) error {
	query := `UPDATE bookings SET rating = ?, feedback = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND rating IS NULL`
	result, err := db.ExecContext(ctx, query, rating, feedback, time.Now().UTC(), id, version)
	if err != nil {
		return fmt.Errorf("failed to set booking rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		var rated sql.NullInt64
		err := db.QueryRowContext(ctx, `SELECT rating FROM bookings WHERE id = ?`, id).Scan(&rated)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
		case err != nil:
			return fmt.Errorf("failed to check booking rating: %w", err)
		case rated.Valid:
			return domain.ErrAlreadyRated
		}
		return domain.ErrConcurrentModification
	}
	return nil
}

func (db *DB) casMiss(ctx context.Context, id string) error {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM bookings WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	return domain.ErrConcurrentModification
}

// ListUserBookings returns one page of the user's bookings and the total count.
// A non-positive limit returns every matching row.
func (db *DB) ListUserBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int, error) {
	where, args := userBookingsWhere(filter)

	var total int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count user bookings: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where +
		` ORDER BY start_date DESC, created_at DESC LIMIT ? OFFSET ?`
	rows, err := db.QueryContext(ctx, query, append(args, limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get user bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]*models.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate bookings: %w", err)
	}
	return bookings, total, nil
}

// GetUserBookingStats counts the user's bookings per status.
func (db *DB) GetUserBookingStats(ctx context.Context, userID string, perspective models.Perspective) (map[models.BookingStatus]int, error) {
	where, args := userBookingsWhere(models.BookingFilter{UserID: userID, Perspective: perspective})
	rows, err := db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings WHERE `+where+` GROUP BY status`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[models.BookingStatus]int)
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan booking stats: %w", err)
		}
		stats[models.BookingStatus(status)] = count
	}
	return stats, rows.Err()
}

func userBookingsWhere(filter models.BookingFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	switch filter.Perspective {
	case models.PerspectiveRenter:
		clauses = append(clauses, "renter_id = ?")
		args = append(args, filter.UserID)
	case models.PerspectiveOwner:
		clauses = append(clauses, "owner_id = ?")
		args = append(args, filter.UserID)
	default:
		clauses = append(clauses, "(renter_id = ? OR owner_id = ?)")
		args = append(args, filter.UserID, filter.UserID)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}
	return strings.Join(clauses, " AND "), args
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b          models.Booking
		start, end string
		status     string
		deposit    sql.NullInt64
		rating     sql.NullInt64
	)
	err := row.Scan(
		&b.ID, &b.ItemID, &b.RenterID, &b.OwnerID, &start, &end, &b.TotalDays,
		&b.TotalAmount, &deposit, &status, &b.Notes, &rating, &b.Feedback, &b.Version,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if b.StartDate, err = models.ParseDate(start); err != nil {
		return nil, fmt.Errorf("failed to parse start date %s: %w", start, err)
	}
	if b.EndDate, err = models.ParseDate(end); err != nil {
		return nil, fmt.Errorf("failed to parse end date %s: %w", end, err)
	}
	b.Status = models.BookingStatus(status)
	b.DepositAmount = int64Ptr(deposit)
	if rating.Valid {
		r := int(rating.Int64)
		b.Rating = &r
	}
	return &b, nil
}

func formatDate(t time.Time) string {
	return models.TruncateDay(t).Format(models.DateLayout)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

package postgres

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
	"github.com/jmoiron/sqlx"
)

const bookingColumns = `id, item_id, renter_id, owner_id, start_date, end_date, total_days,
	total_amount, deposit_amount, status, notes, rating, feedback, version, created_at, updated_at`

const conflictQuery = `SELECT id, start_date, end_date, status FROM bookings
	WHERE item_id = $1 AND status <> $2 AND start_date <= $3 AND $4 <= end_date AND id <> $5
	ORDER BY start_date LIMIT 1`

type bookingRow struct {
	ID            string        `db:"id"`
	ItemID        string        `db:"item_id"`
	RenterID      string        `db:"renter_id"`
	OwnerID       string        `db:"owner_id"`
	StartDate     time.Time     `db:"start_date"`
	EndDate       time.Time     `db:"end_date"`
	TotalDays     int           `db:"total_days"`
	TotalAmount   int64         `db:"total_amount"`
	DepositAmount sql.NullInt64 `db:"deposit_amount"`
	Status        string        `db:"status"`
	Notes         string        `db:"notes"`
	Rating        sql.NullInt64 `db:"rating"`
	Feedback      string        `db:"feedback"`
	Version       int64         `db:"version"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (r *bookingRow) toModel() *models.Booking {
	b := &models.Booking{
		ID:          r.ID,
		ItemID:      r.ItemID,
		RenterID:    r.RenterID,
		OwnerID:     r.OwnerID,
		StartDate:   models.TruncateDay(r.StartDate),
		EndDate:     models.TruncateDay(r.EndDate),
		TotalDays:   r.TotalDays,
		TotalAmount: r.TotalAmount,
		Status:      models.BookingStatus(r.Status),
		Notes:       r.Notes,
		Feedback:    r.Feedback,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if r.DepositAmount.Valid {
		d := r.DepositAmount.Int64
		b.DepositAmount = &d
	}
	if r.Rating.Valid {
		v := int(r.Rating.Int64)
		b.Rating = &v
	}
	return b
}

type conflictRow struct {
	ID        string    `db:"id"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	Status    string    `db:"status"`
}

// CreateBookingWithLock serializes creates per item with an advisory lock held
// until the transaction ends, then checks for an overlap and inserts.
func (s *Store) CreateBookingWithLock(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, booking.ItemID); err != nil {
		return fmt.Errorf("failed to lock item: %w", err)
	}

	conflict, err := findConflict(ctx, tx, booking.ItemID, booking.Range(), booking.ID)
	if err != nil {
		return fmt.Errorf("failed to check availability in tx: %w", err)
	}
	if conflict != nil {
		return domain.NewDateConflictError(booking.ItemID, conflict, booking.Range())
	}

	now := time.Now().UTC()
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
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
		if isExclusionViolation(err) {
			return domain.NewDateConflictError(booking.ItemID, nil, booking.Range())
		}
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}

	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1
	return nil
}

func (s *Store) FindConflict(ctx context.Context, itemID string, r models.DateRange, excludeBookingID string) (*models.Conflict, error) {
	conflict, err := findConflict(ctx, s.db, itemID, r, excludeBookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to find conflict: %w", err)
	}
	return conflict, nil
}

func findConflict(ctx context.Context, q sqlx.QueryerContext, itemID string, r models.DateRange, excludeBookingID string) (*models.Conflict, error) {
	var row conflictRow
	err := sqlx.GetContext(ctx, q, &row, conflictQuery,
		itemID, string(models.StatusCancelled), formatDate(r.End), formatDate(r.Start), excludeBookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.Conflict{
		BookingID: row.ID,
		StartDate: models.TruncateDay(row.StartDate),
		EndDate:   models.TruncateDay(row.EndDate),
		Status:    models.BookingStatus(row.Status),
	}, nil
}

func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var row bookingRow
	err := s.db.GetContext(ctx, &row, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return row.toModel(), nil
}

func (s *Store) UpdateBookingStatusWithVersion(ctx context.Context, id string, version int64, status models.BookingStatus, notes string) error {
	query := `UPDATE bookings SET status = $1, notes = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5`
	result, err := s.db.ExecContext(ctx, query, string(status), notes, time.Now().UTC(), id, version)
	if err != nil {
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return s.casMiss(ctx, id)
	}
	return nil
}

func (s *Store) SetBookingRatingWithVersion(ctx context.Context, id string, version int64, rating int, feedback string) error {
	query := `UPDATE bookings SET rating = $1, feedback = $2, version = version + 1, updated_at = $3
		WHERE id = $4 AND version = $5 AND rating IS NULL`
	result, err := s.db.ExecContext(ctx, query, rating, feedback, time.Now().UTC(), id, version)
	if err != nil {
		return fmt.Errorf("failed to set booking rating: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var rated sql.NullInt64
	err = s.db.GetContext(ctx, &rated, `SELECT rating FROM bookings WHERE id = $1`, id)
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

func (s *Store) casMiss(ctx context.Context, id string) error {
	var exists int
	err := s.db.GetContext(ctx, &exists, `SELECT 1 FROM bookings WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("booking %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check booking: %w", err)
	}
	return domain.ErrConcurrentModification
}

func (s *Store) ListUserBookings(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int, error) {
	where, args := userBookingsWhere(filter)

	var total int
	if err := s.db.GetContext(ctx, &total, s.db.Rebind(`SELECT COUNT(*) FROM bookings WHERE `+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count user bookings: %w", err)
	}

	limit := sql.NullInt64{Int64: int64(filter.Limit), Valid: filter.Limit > 0}
	query := s.db.Rebind(`SELECT ` + bookingColumns + ` FROM bookings WHERE ` + where +
		` ORDER BY start_date DESC, created_at DESC LIMIT ? OFFSET ?`)

	var rows []bookingRow
	if err := s.db.SelectContext(ctx, &rows, query, append(args, limit, filter.Offset)...); err != nil {
		return nil, 0, fmt.Errorf("failed to get user bookings: %w", err)
	}

	bookings := make([]*models.Booking, 0, len(rows))
	for i := range rows {
		bookings = append(bookings, rows[i].toModel())
	}
	return bookings, total, nil
}

func (s *Store) GetUserBookingStats(ctx context.Context, userID string, perspective models.Perspective) (map[models.BookingStatus]int, error) {
	where, args := userBookingsWhere(models.BookingFilter{UserID: userID, Perspective: perspective})

	var rows []struct {
		Status string `db:"status"`
		Count  int    `db:"count"`
	}
	query := s.db.Rebind(`SELECT status, COUNT(*) AS count FROM bookings WHERE ` + where + ` GROUP BY status`)
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get booking stats: %w", err)
	}

	stats := make(map[models.BookingStatus]int, len(rows))
	for _, r := range rows {
		stats[models.BookingStatus(r.Status)] = r.Count
	}
	return stats, nil
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

func formatDate(t time.Time) string {
	return models.TruncateDay(t).Format(models.DateLayout)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

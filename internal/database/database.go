package database

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"rentbook/internal/models"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

const memoryPath = ":memory:"

// overlapMarker is the RAISE message of the bookings_no_overlap trigger.
const overlapMarker = "booking_overlap"

type DB struct {
	*sql.DB
	path   string
	logger *zerolog.Logger

	mu         sync.RWMutex
	itemsCache map[string]models.Item
}

// NewDB opens the sqlite store, creating the directory and schema when missing.
// Transactions start with BEGIN IMMEDIATE so the conflict check and the insert
// of a booking run under the database write lock.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if path != memoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", buildDSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == memoryPath {
		// every pooled connection would otherwise get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{
		DB:         sqlDB,
		path:       path,
		logger:     logger,
		itemsCache: make(map[string]models.Item),
	}

	if err := db.createTables(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return db, nil
}

func buildDSN(path string) string {
	params := []string{"_txlock=immediate", "_busy_timeout=5000", "_foreign_keys=on"}
	if path != memoryPath {
		params = append(params, "_journal_mode=WAL")
	}
	return path + "?" + strings.Join(params, "&")
}

// Path returns the file the store was opened from.
func (db *DB) Path() string {
	return db.path
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			daily_rate INTEGER NOT NULL CHECK (daily_rate > 0),
			weekly_rate INTEGER,
			monthly_rate INTEGER,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id TEXT PRIMARY KEY,
			item_id TEXT NOT NULL,
			renter_id TEXT NOT NULL,
			owner_id TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			total_days INTEGER NOT NULL,
			total_amount INTEGER NOT NULL,
			deposit_amount INTEGER,
			status TEXT NOT NULL DEFAULT 'pending',
			notes TEXT NOT NULL DEFAULT '',
			rating INTEGER,
			feedback TEXT NOT NULL DEFAULT '',
			version INTEGER NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			CHECK (start_date <= end_date),
			CHECK (rating IS NULL OR (rating BETWEEN 1 AND 5))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_item_dates ON bookings(item_id, start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_renter ON bookings(renter_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_owner ON bookings(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
		`CREATE TRIGGER IF NOT EXISTS bookings_no_overlap
			BEFORE INSERT ON bookings
			WHEN NEW.status <> 'cancelled'
			BEGIN
				SELECT RAISE(ABORT, 'booking_overlap')
				WHERE EXISTS (
					SELECT 1 FROM bookings
					WHERE item_id = NEW.item_id
					  AND status <> 'cancelled'
					  AND start_date <= NEW.end_date
					  AND NEW.start_date <= end_date
				);
			END`,
		`CREATE TABLE IF NOT EXISTS sync_queue (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_type TEXT NOT NULL,
			booking_id TEXT NOT NULL,
			payload TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'pending',
			retry_count INTEGER NOT NULL DEFAULT 0,
			last_error TEXT,
			created_at DATETIME NOT NULL,
			processed_at DATETIME,
			next_retry_at DATETIME
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sync_queue_status ON sync_queue(status, next_retry_at)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %q: %w", firstLine(query), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// isOverlapViolation reports whether err is the abort raised by bookings_no_overlap.
func isOverlapViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return strings.Contains(sqliteErr.Error(), overlapMarker)
	}
	return err != nil && strings.Contains(err.Error(), overlapMarker)
}

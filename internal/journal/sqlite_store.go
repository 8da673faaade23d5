// file: internal/journal/sqlite_store.go
// version: 1.2.0
// guid: fd7c621b-3867-461b-b93d-d1d08e613593

package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/djordjedjukic/ravendb/internal/units"
)

const eventSelectColumns = `
	id, type, time, details,
	available_bytes, total_physical_bytes, commit_charge_bytes, committable_bytes
`

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite-backed journal
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		time DATETIME NOT NULL,
		details TEXT NOT NULL DEFAULT '',
		available_bytes INTEGER NOT NULL DEFAULT 0,
		total_physical_bytes INTEGER NOT NULL DEFAULT 0,
		commit_charge_bytes INTEGER NOT NULL DEFAULT 0,
		committable_bytes INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_events_type ON events(type);
	CREATE INDEX IF NOT EXISTS idx_events_time ON events(time);
	`

	_, err := s.db.Exec(schema)
	return err
}

func scanEvent(scanner interface{ Scan(dest ...interface{}) error }, event *Event) error {
	var available, totalPhysical, commitCharge, committable int64
	if err := scanner.Scan(
		&event.ID, &event.Type, &event.Time, &event.Details,
		&available, &totalPhysical, &commitCharge, &committable,
	); err != nil {
		return err
	}
	event.Available = units.NewSize(available, units.Bytes)
	event.TotalPhysical = units.NewSize(totalPhysical, units.Bytes)
	event.CommitCharge = units.NewSize(commitCharge, units.Bytes)
	event.Committable = units.NewSize(committable, units.Bytes)
	return nil
}

// Append persists the event, assigning ID and Time when empty.
func (s *SQLiteStore) Append(event *Event) (*Event, error) {
	if event.ID == "" {
		id, err := newULID()
		if err != nil {
			return nil, fmt.Errorf("failed to generate event ID: %w", err)
		}
		event.ID = id
	}
	if event.Time.IsZero() {
		event.Time = time.Now()
	}
	// All timestamps are stored in UTC so that range comparisons in SQL
	// stay consistent.
	event.Time = event.Time.UTC()

	_, err := s.db.Exec(`INSERT INTO events (id, type, time, details,
		available_bytes, total_physical_bytes, commit_charge_bytes, committable_bytes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Type, event.Time, event.Details,
		event.Available.Bytes(), event.TotalPhysical.Bytes(),
		event.CommitCharge.Bytes(), event.Committable.Bytes())
	if err != nil {
		return nil, fmt.Errorf("failed to insert event: %w", err)
	}
	return event, nil
}

// List returns events newest first, honoring the type, since and limit
// filters in opts. ULIDs order chronologically, so ORDER BY id DESC is
// newest first.
func (s *SQLiteStore) List(opts ListOptions) ([]Event, error) {
	query := "SELECT " + eventSelectColumns + " FROM events"
	var conditions []string
	var args []interface{}

	if opts.Type != "" {
		conditions = append(conditions, "type = ?")
		args = append(args, opts.Type)
	}
	if !opts.Since.IsZero() {
		conditions = append(conditions, "time >= ?")
		args = append(args, opts.Since.UTC())
	}
	for i, cond := range conditions {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY id DESC"
	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		if err := scanEvent(rows, &event); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// Stats summarizes the stored events.
func (s *SQLiteStore) Stats() (*Stats, error) {
	stats := &Stats{ByType: make(map[string]int)}

	rows, err := s.db.Query("SELECT type, COUNT(*) FROM events GROUP BY type")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var eventType string
		var count int
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		stats.ByType[eventType] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.Total > 0 {
		var oldest, newest time.Time
		err := s.db.QueryRow("SELECT MIN(time), MAX(time) FROM events").Scan(&oldest, &newest)
		if err != nil {
			return nil, err
		}
		stats.Oldest = &oldest
		stats.Newest = &newest
	}
	return stats, nil
}

// Prune deletes events older than the cutoff, returning how many.
func (s *SQLiteStore) Prune(olderThan time.Time) (int, error) {
	result, err := s.db.Exec("DELETE FROM events WHERE time < ?", olderThan.UTC())
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

// Reset drops all events.
func (s *SQLiteStore) Reset() error {
	_, err := s.db.Exec("DELETE FROM events")
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

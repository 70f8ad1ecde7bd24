package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store handles device event persistence in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if necessary) a SQLite database at path and
// runs the event-log migration.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS device_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			device_id TEXT NOT NULL,
			domain TEXT NOT NULL,
			level INTEGER NOT NULL,
			fan_speed TEXT,
			tilt INTEGER
		);

		CREATE INDEX IF NOT EXISTS idx_device_events_device_time
			ON device_events(device_id, timestamp DESC);
	`)
	return err
}

// Record appends one event.
func (s *Store) Record(e Event) error {
	_, err := s.db.Exec(`
		INSERT INTO device_events (timestamp, device_id, domain, level, fan_speed, tilt)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Timestamp.UTC().Format(time.RFC3339Nano), e.DeviceID, e.Domain, e.Level, nullIfEmpty(e.FanSpeed), e.Tilt)
	if err != nil {
		return fmt.Errorf("history: insert event: %w", err)
	}
	return nil
}

// ForDevice returns the most recent events for one device, newest
// first, capped at limit.
func (s *Store) ForDevice(deviceID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.Query(`
		SELECT id, timestamp, device_id, domain, level, COALESCE(fan_speed, ''), tilt
		FROM device_events
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts string
		if err := rows.Scan(&e.ID, &ts, &e.DeviceID, &e.Domain, &e.Level, &e.FanSpeed, &e.Tilt); err != nil {
			return nil, fmt.Errorf("history: scan: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Prune removes events older than olderThan.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := s.db.Exec(`DELETE FROM device_events WHERE timestamp < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: prune: %w", err)
	}
	return result.RowsAffected()
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

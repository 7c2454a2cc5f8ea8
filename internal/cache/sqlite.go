// Package cache persists bibliographic API responses in SQLite so repeated
// runs over the same reference list do not spend API quota twice.
package cache

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultTTL is how long a cached response stays fresh.
const DefaultTTL = 7 * 24 * time.Hour

// DB wraps a SQLite database connection.
type DB struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int       `json:"entries"`
	Stale   int       `json:"stale"`
	Bytes   int64     `json:"bytes"`
	Oldest  time.Time `json:"oldest,omitempty"`
}

// Open opens or creates a cache database at path. ttl <= 0 selects
// DefaultTTL.
func Open(path string, ttl time.Duration) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &DB{db: db, ttl: ttl, now: time.Now}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS responses (
			key TEXT PRIMARY KEY,
			body BLOB NOT NULL,
			fetched_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_responses_fetched ON responses(fetched_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the body stored under key if it is still fresh. Lookup errors
// are logged and reported as a miss.
func (d *DB) Get(key string) ([]byte, bool) {
	var (
		body      []byte
		fetchedAt int64
	)
	err := d.db.QueryRow(`SELECT body, fetched_at FROM responses WHERE key = ?`, key).Scan(&body, &fetchedAt)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			slog.Warn("cache lookup failed", "error", err)
		}
		return nil, false
	}
	if d.now().Sub(time.Unix(fetchedAt, 0)) > d.ttl {
		return nil, false
	}
	return body, true
}

// Put stores body under key, replacing any previous entry.
func (d *DB) Put(key string, body []byte) error {
	_, err := d.db.Exec(`
		INSERT INTO responses (key, body, fetched_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET body = excluded.body, fetched_at = excluded.fetched_at`,
		key, body, d.now().Unix())
	if err != nil {
		return fmt.Errorf("storing response: %w", err)
	}
	return nil
}

// Prune deletes stale entries and returns how many were removed.
func (d *DB) Prune() (int, error) {
	cutoff := d.now().Add(-d.ttl).Unix()
	res, err := d.db.Exec(`DELETE FROM responses WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Clear deletes every entry.
func (d *DB) Clear() (int, error) {
	res, err := d.db.Exec(`DELETE FROM responses`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Stats reports entry counts and total body size.
func (d *DB) Stats() (Stats, error) {
	var (
		s      Stats
		oldest sql.NullInt64
	)
	cutoff := d.now().Add(-d.ttl).Unix()
	err := d.db.QueryRow(`
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN fetched_at < ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(LENGTH(body)), 0),
			MIN(fetched_at)
		FROM responses`, cutoff).Scan(&s.Entries, &s.Stale, &s.Bytes, &oldest)
	if err != nil {
		return Stats{}, fmt.Errorf("reading cache stats: %w", err)
	}
	if oldest.Valid {
		s.Oldest = time.Unix(oldest.Int64, 0).UTC()
	}
	return s, nil
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "modernc.org/sqlite"

	"littlex/internal/logging"
)

// Fixed keys of the persisted client state.
const (
	KeyToken         = "auth:token"
	KeyUser          = "auth:user"
	KeyNotifications = "notifications"
)

// ErrNotFound is returned when a key is absent or its value has expired.
var ErrNotFound = errors.New("storage: not found")

// DB wraps a SQLite database used as the client's durable key-value store.
// Values are JSON strings under fixed keys, with an optional expiration
// honored on read. Concurrent processes are not coordinated; last writer wins.
type DB struct{ sql *sql.DB }

func Open(path string) (*DB, error) {
	d, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if path == ":memory:" {
		// each in-memory connection is its own database
		d.SetMaxOpenConns(1)
	}
	if _, err := d.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;`); err != nil {
		return nil, err
	}
	db := &DB{sql: d}
	if err := db.migrate(); err != nil {
		_ = d.Close()
		return nil, err
	}
	return db, nil
}

func (d *DB) Close() error { return d.sql.Close() }

func (d *DB) migrate() error {
	_, err := d.sql.Exec(`
	CREATE TABLE IF NOT EXISTS kv (
	  key TEXT PRIMARY KEY,
	  value TEXT NOT NULL,
	  ts INTEGER NOT NULL,
	  expires_ms INTEGER
	);
	`)
	return err
}

// Set stores a raw string value, with ttl=0 meaning no expiration.
func (d *DB) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var exp *int64
	if ttl > 0 {
		ms := ttl.Milliseconds()
		exp = &ms
	}
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO kv(key, value, ts, expires_ms) VALUES(?,?,?,?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, ts=excluded.ts, expires_ms=excluded.expires_ms`,
		key, value, time.Now().UnixMilli(), exp)
	return err
}

// Get returns the stored value for key. Expired entries are removed on read
// and reported as ErrNotFound.
func (d *DB) Get(ctx context.Context, key string) (string, error) {
	row := d.sql.QueryRowContext(ctx, `SELECT value, ts, COALESCE(expires_ms, 0) FROM kv WHERE key=?`, key)
	var value string
	var ts, exp int64
	if err := row.Scan(&value, &ts, &exp); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	if exp > 0 && time.Now().UnixMilli() > ts+exp {
		_, _ = d.sql.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
		return "", ErrNotFound
	}
	return value, nil
}

// Delete removes a key. Missing keys are not an error.
func (d *DB) Delete(ctx context.Context, key string) error {
	_, err := d.sql.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
	return err
}

// SetJSON marshals v and stores it under key.
func (d *DB) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return d.Set(ctx, key, string(b), ttl)
}

// GetJSON unmarshals the value under key into out. Absent or corrupt values
// leave out untouched and return ErrNotFound; corruption is logged, never
// propagated as a distinct failure.
func (d *DB) GetJSON(ctx context.Context, key string, out any) error {
	s, err := d.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(s), out); err != nil {
		logging.Warn("storage_corrupt_value", map[string]any{"key": key, "error": err.Error()})
		_, _ = d.sql.ExecContext(ctx, `DELETE FROM kv WHERE key=?`, key)
		return ErrNotFound
	}
	return nil
}

// Has reports whether a live value exists for key.
func (d *DB) Has(ctx context.Context, key string) bool {
	_, err := d.Get(ctx, key)
	return err == nil
}

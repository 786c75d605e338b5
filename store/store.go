// Package store implements the durable write-behind backing a Cache
// (spec 4.C): an embedded SQLite file holding a single cache_items
// table, a background worker that applies mutation ops asynchronously,
// and a loader that rehydrates surviving rows at startup.
//
// The package is deliberately ignorant of quickleaf.Value/Event — it
// traffics in plain strings and OpKind so the top-level cache package
// can import store without store needing to import it back.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_items (
	key TEXT PRIMARY KEY NOT NULL,
	value TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	ttl_seconds INTEGER,
	expires_at INTEGER
);
CREATE INDEX IF NOT EXISTS idx_cache_items_expires_at
	ON cache_items(expires_at) WHERE expires_at IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_cache_items_created_at
	ON cache_items(created_at);
`

// Store wraps the database/sql handle used for both the synchronous
// TTL-publish path (InsertWithTTL, 4.C) and the background worker's
// writes. SQLite tolerates concurrent readers under WAL, which is
// enabled here so the worker's writes don't stall a concurrent load.
type Store struct {
	db   *sql.DB
	path string
}

// Row is a surviving record read back by LoadLive.
type Row struct {
	Key        string
	Value      string
	CreatedAt  int64
	TTLSeconds *int64
}

// Open creates the database file and parent directories if needed,
// applies the schema, and returns a Store ready for use. It does not
// itself prune or load — callers use LoadLive for that (4.C's "load
// path").
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: init schema: %w", err)
	}

	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA synchronous = NORMAL;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set pragmas: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// PruneExpired deletes rows whose expires_at has already elapsed.
func (s *Store) PruneExpired(nowUnixSec int64) error {
	_, err := s.db.Exec(`DELETE FROM cache_items WHERE expires_at IS NOT NULL AND expires_at < ?`, nowUnixSec)
	return err
}

// LoadLive prunes expired rows, then returns the surviving rows ordered
// by key (4.C: "sort by key; re-insert into the in-memory map"). The
// caller is responsible for re-checking expiration defensively and
// capping at capacity (4.C: "skip any expired row defensively").
func (s *Store) LoadLive(nowUnixSec int64) ([]Row, error) {
	if err := s.PruneExpired(nowUnixSec); err != nil {
		return nil, fmt.Errorf("store: prune on load: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT key, value, created_at, ttl_seconds
		FROM cache_items
		WHERE expires_at IS NULL OR expires_at >= ?
		ORDER BY key ASC`, nowUnixSec)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Key, &r.Value, &r.CreatedAt, &r.TTLSeconds); err != nil {
			return nil, fmt.Errorf("store: scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertSync writes a row synchronously on the calling goroutine. It is
// used both by InsertWithTTL's synchronous publish path (4.C: "the
// facade additionally writes the row synchronously ... so that
// expires_at is recorded") and by the worker's event-driven apply.
//
// Both callers now pass the TTL actually resolved for that specific
// mutation (nil included, when the insert genuinely has none), so a
// plain overwrite on conflict is correct: whichever write lands last
// reflects the same in-memory state the cache itself arrived at, and
// there is nothing left for the other write to accidentally clobber.
func (s *Store) UpsertSync(key, value string, createdAtUnixSec int64, ttlSeconds *int64) error {
	var expiresAt any
	if ttlSeconds != nil {
		expiresAt = createdAtUnixSec + *ttlSeconds
	}
	_, err := s.db.Exec(
		`INSERT INTO cache_items (key, value, created_at, ttl_seconds, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			created_at = excluded.created_at,
			ttl_seconds = excluded.ttl_seconds,
			expires_at = excluded.expires_at`,
		key, value, createdAtUnixSec, ttlSeconds, expiresAt,
	)
	return err
}

// DeleteSync removes a single row synchronously.
func (s *Store) DeleteSync(key string) error {
	_, err := s.db.Exec(`DELETE FROM cache_items WHERE key = ?`, key)
	return err
}

// ClearSync removes every row synchronously.
func (s *Store) ClearSync() error {
	_, err := s.db.Exec(`DELETE FROM cache_items`)
	return err
}

// Now returns the current wall-clock time in Unix seconds. The worker
// uses it for its periodic prune.
func Now() int64 {
	return time.Now().Unix()
}

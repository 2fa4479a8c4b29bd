// Package sqlite implements a cache store on a local SQLite database. It uses
// the same "<type>:<id>" keys as the Redis store, so a cache exported from one
// can be imported into the other.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/eric/pkg/types"
)

//go:embed schema.sql
var schemaSQL string

// DBFileName is the database file created in the data directory.
const DBFileName = "cache.db"

// Store errors.
var (
	ErrDetached        = errors.New("sqlite store is not attached")
	ErrAlreadyAttached = errors.New("sqlite store is already attached")
)

// Store implements types.CacheStore. Entries survive Detach and are visible
// again on the next Attach of the same data directory.
type Store struct {
	mu       sync.RWMutex
	attached bool
	db       *sql.DB
	now      func() time.Time
}

// NewStore returns a detached store. Call Attach before use.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// Attach opens (creating if needed) the database in dataDir.
func (s *Store) Attach(dataDir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return ErrAlreadyAttached
	}
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return err
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return fmt.Errorf("apply schema: %w", err)
	}

	s.db = db
	s.attached = true
	return nil
}

// Detach closes the database. It is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.attached = false
	return err
}

func (s *Store) handle() (*sql.DB, error) {
	if !s.attached {
		return nil, ErrDetached
	}
	return s.db, nil
}

// Get returns the value stored at key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return nil, false, err
	}
	var value []byte
	err = db.QueryRowContext(ctx, `SELECT value FROM cache_entries WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return value, true, nil
}

const upsertEntry = `INSERT INTO cache_entries (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Set stores value at key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, upsertEntry, key, value, s.timestamp()); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Keys returns the sorted keys matching a glob pattern such as "device:*".
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT key FROM cache_entries WHERE key GLOB ? ORDER BY key`, pattern)
	if err != nil {
		return nil, fmt.Errorf("keys %s: %w", pattern, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// UpdatedAt returns when key was last written.
func (s *Store) UpdatedAt(ctx context.Context, key string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return time.Time{}, false, err
	}
	var ts string
	err = db.QueryRowContext(ctx, `SELECT updated_at FROM cache_entries WHERE key = ?`, key).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("updated_at for %s: %w", key, err)
	}
	return t, true, nil
}

// Batch returns a batch whose writes are applied in one transaction.
func (s *Store) Batch() types.CacheBatch {
	return &batch{store: s}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

type batch struct {
	store  *Store
	keys   []string
	values [][]byte
}

func (b *batch) Set(key string, value []byte) {
	b.keys = append(b.keys, key)
	b.values = append(b.values, append([]byte(nil), value...))
}

func (b *batch) Len() int { return len(b.keys) }

func (b *batch) Exec(ctx context.Context) error {
	if len(b.keys) == 0 {
		return nil
	}
	s := b.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, err := s.handle()
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, upsertEntry)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare batch: %w", err)
	}
	defer stmt.Close()

	ts := s.timestamp()
	for i, k := range b.keys {
		if _, err := stmt.ExecContext(ctx, k, b.values[i], ts); err != nil {
			tx.Rollback()
			return fmt.Errorf("batch set %s: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	b.keys, b.values = nil, nil
	return nil
}

var _ types.CacheStore = (*Store)(nil)

// Package redis implements the cache store on Redis. One Store is shared by
// the whole process; its connection pool is dialed on first use.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	goredis "github.com/redis/go-redis/v9"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// scanCount is the COUNT hint passed to SCAN.
const scanCount = 500

// Store implements types.CacheStore. Values are stored as plain strings
// without expiry.
type Store struct {
	opts *goredis.Options

	once   sync.Once
	client *goredis.Client
}

// NewStore parses url (redis://[user:pass@]host:port/db) without connecting.
func NewStore(url string) (*Store, error) {
	if url == "" {
		return nil, types.ErrRedisURLEmpty
	}
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Store{opts: opts}, nil
}

// Client returns the process-wide client, creating it on first call.
func (s *Store) Client() *goredis.Client {
	s.once.Do(func() {
		s.client = goredis.NewClient(s.opts)
	})
	return s.client
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.Client().Ping(ctx).Err()
}

// Get returns the value at key. A missing key is reported with found=false.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.Client().Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value at key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.Client().Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.Client().Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN and returns the sorted keys matching
// pattern.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	seen := make(map[string]struct{})
	var cursor uint64
	for {
		keys, next, err := s.Client().Scan(ctx, cursor, pattern, scanCount).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	slices.Sort(out)
	return out, nil
}

// Batch returns a batch executed as one MULTI/EXEC pipeline.
func (s *Store) Batch() types.CacheBatch {
	return &batch{store: s}
}

// Close releases the connection pool if it was created. The store must not
// be used after Close.
func (s *Store) Close() error {
	var err error
	s.once.Do(func() {})
	if s.client != nil {
		err = s.client.Close()
	}
	return err
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
	pipe := b.store.Client().TxPipeline()
	for i, k := range b.keys {
		pipe.Set(ctx, k, b.values[i], 0)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis batch of %d: %w", len(b.keys), err)
	}
	b.keys, b.values = nil, nil
	return nil
}

var _ types.CacheStore = (*Store)(nil)

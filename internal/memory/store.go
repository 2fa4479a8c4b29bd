// Package memory provides an in-process CacheStore. It is used for local runs
// without Redis and as the cache in tests.
package memory

import (
	"context"
	"path"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// DefaultSize bounds the number of entries kept by NewStore.
const DefaultSize = 50000

// Store is a types.CacheStore holding at most a fixed number of entries. When
// full, the least recently used entry is evicted; an evicted entry reads as a
// miss. Safe for concurrent use.
type Store struct {
	// mu makes a batch apply as one step relative to other operations.
	mu      sync.RWMutex
	entries *lru.Cache[string, []byte]
}

// NewStore returns an empty store bounded by DefaultSize.
func NewStore() *Store {
	s, _ := NewSizedStore(DefaultSize)
	return s
}

// NewSizedStore returns an empty store holding at most size entries. size
// must be positive.
func NewSizedStore(size int) (*Store, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, err
	}
	return &Store{entries: c}, nil
}

// Get returns a copy of the value at key.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries.Get(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

// Set stores a copy of value at key.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Add(key, append([]byte(nil), value...))
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries.Remove(key)
	return nil
}

// Keys returns the sorted keys matching a glob pattern.
func (s *Store) Keys(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var keys []string
	for _, k := range s.entries.Keys() {
		ok, err := path.Match(pattern, k)
		if err != nil {
			return nil, err
		}
		if ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Batch returns a batch applied under a single lock on Exec.
func (s *Store) Batch() types.CacheBatch {
	return &batch{store: s}
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	return s.entries.Len()
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

func (b *batch) Exec(_ context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()
	for i, k := range b.keys {
		b.store.entries.Add(k, b.values[i])
	}
	b.keys, b.values = nil, nil
	return nil
}

var _ types.CacheStore = (*Store)(nil)

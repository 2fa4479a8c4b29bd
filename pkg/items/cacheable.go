package items

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// sharedFetchTimeout bounds an upstream fetch shared by concurrent misses.
const sharedFetchTimeout = 30 * time.Second

// CacheHooks is implemented by every record type that can be served from the
// cache store. LoadFromCache must be the exact inverse of PrepareCacheData
// for every field the snapshot carries.
type CacheHooks interface {
	// CacheKey returns "<type>:<id>".
	CacheKey() string

	// PrepareCacheData returns the JSON-serializable snapshot of the record.
	PrepareCacheData(ctx context.Context) (any, error)

	// LoadFromCache populates the record from a serialized snapshot.
	LoadFromCache(snapshot []byte) error
}

// Cacheable is the read/write surface shared by Device and Product.
type Cacheable interface {
	CacheHooks
	fmt.Stringer
	RecordType() string
	Load(ctx context.Context, raw *types.RawItem) error
	LoadFromUpstream(ctx context.Context) error
	FetchCacheSnapshot(ctx context.Context) (CacheLookup, error)
	SaveToCache(ctx context.Context, batch types.CacheBatch) (any, error)
}

// CacheLookup is the outcome of a cache read: a hit carrying the stored
// snapshot, or a miss.
type CacheLookup struct {
	Key  string
	Data []byte
	Hit  bool
}

// Err returns a *types.CacheMissError for a miss and nil for a hit.
func (l CacheLookup) Err() error {
	if l.Hit {
		return nil
	}
	return &types.CacheMissError{Key: l.Key}
}

// CacheKey builds the cache key for a record type and id.
func CacheKey(recordType, id string) string {
	return recordType + ":" + id
}

// CacheableItem adds the cache read path to an Item. Concrete types embed it
// and pass themselves as the hooks.
type CacheableItem struct {
	*Item
	hooks CacheHooks
}

func newCacheableItem(item *Item, hooks CacheHooks) CacheableItem {
	return CacheableItem{Item: item, hooks: hooks}
}

// Load hydrates the record. With raw it behaves exactly like Item.Load.
// Otherwise it reads the cache; a miss raises one operator alert, loads from
// the board API and repopulates the cache. A miss is never returned as an
// error; upstream failures after a miss are.
func (c *CacheableItem) Load(ctx context.Context, raw *types.RawItem) error {
	if raw != nil {
		return c.Item.Load(ctx, raw)
	}
	if c.ID == "" {
		return fmt.Errorf("%s: load: item id or item data required: %w", c.Item, types.ErrIncompleteRecord)
	}

	lookup, err := c.FetchCacheSnapshot(ctx)
	switch {
	case err != nil:
		c.env.alert(ctx, "cache read failed, loading from board API",
			"record_type", c.recordType, "id", c.ID, "key", lookup.Key, "error", err)
	case lookup.Hit:
		if err := c.hooks.LoadFromCache(lookup.Data); err != nil {
			c.env.alert(ctx, "unreadable cache snapshot, loading from board API",
				"record_type", c.recordType, "id", c.ID, "key", lookup.Key, "error", err)
			break
		}
		c.env.observeLookup(c.recordType, true)
		c.clearStaged()
		return nil
	default:
		c.env.observeLookup(c.recordType, false)
		c.env.alert(ctx, "cache miss, loading from board API",
			"record_type", c.recordType, "id", c.ID, "key", lookup.Key)
	}

	raw, err = c.fetchShared(ctx, lookup.Key)
	if err != nil {
		return err
	}
	if err := c.Item.Load(ctx, raw); err != nil {
		return err
	}
	if _, err := c.SaveToCache(WithoutAlerts(ctx), nil); err != nil {
		c.env.alert(ctx, "could not repopulate cache",
			"record_type", c.recordType, "id", c.ID, "key", lookup.Key, "error", err)
	}
	return nil
}

// LoadFromUpstream hydrates the record from the board API, bypassing the
// cache. It does not write the cache.
func (c *CacheableItem) LoadFromUpstream(ctx context.Context) error {
	return c.Item.Load(ctx, nil)
}

// fetchShared fetches the raw item, sharing one upstream call between
// concurrent loads of the same key. The shared call is not tied to any one
// caller's cancellation; each caller stops waiting when its own ctx ends.
func (c *CacheableItem) fetchShared(ctx context.Context, key string) (*types.RawItem, error) {
	ch := c.env.flight.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedFetchTimeout)
		defer cancel()
		return c.Item.fetch(fctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*types.RawItem), nil
	case <-ctx.Done():
		return nil, &types.UpstreamError{RecordType: c.recordType, ID: c.ID, Op: OpGetItems, Err: ctx.Err()}
	}
}

// FetchCacheSnapshot reads the serialized snapshot at CacheKey. A missing
// entry is reported as a miss, not an error; err is reserved for store
// failures.
func (c *CacheableItem) FetchCacheSnapshot(ctx context.Context) (CacheLookup, error) {
	lookup := CacheLookup{Key: c.hooks.CacheKey()}
	if c.env.Cache == nil {
		return lookup, fmt.Errorf("%s: no cache store configured", c.Item)
	}
	data, found, err := c.env.Cache.Get(ctx, lookup.Key)
	if err != nil {
		return lookup, fmt.Errorf("%s: read cache %s: %w", c.Item, lookup.Key, err)
	}
	lookup.Data = data
	lookup.Hit = found
	return lookup, nil
}

// SaveToCache writes the record's snapshot at CacheKey. With a batch the
// write is queued and becomes visible when the batch is executed. It returns
// the snapshot written.
func (c *CacheableItem) SaveToCache(ctx context.Context, batch types.CacheBatch) (any, error) {
	snapshot, err := c.hooks.PrepareCacheData(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: prepare cache data: %w", c.Item, err)
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("%s: encode cache data: %w", c.Item, err)
	}
	key := c.hooks.CacheKey()
	if batch != nil {
		batch.Set(key, data)
		return snapshot, nil
	}
	if c.env.Cache == nil {
		return nil, fmt.Errorf("%s: no cache store configured", c.Item)
	}
	if err := c.env.Cache.Set(ctx, key, data); err != nil {
		return nil, fmt.Errorf("%s: write cache %s: %w", c.Item, key, err)
	}
	c.env.log().Debug("cached item", "key", key)
	return snapshot, nil
}

// NewCacheable returns an unloaded cacheable record of the given type.
func NewCacheable(env *Env, recordType, id string) (Cacheable, error) {
	switch recordType {
	case types.RecordTypeDevice:
		return NewDevice(env, id), nil
	case types.RecordTypeProduct:
		return NewProduct(env, id), nil
	default:
		return nil, fmt.Errorf("record type %q is not cacheable: %w", recordType, types.ErrUnknownAttribute)
	}
}

// CachedKeys enumerates the cache keys of one record type.
func CachedKeys(ctx context.Context, env *Env, recordType string) ([]string, error) {
	if !types.IsCacheableRecordType(recordType) {
		return nil, fmt.Errorf("record type %q is not cacheable: %w", recordType, types.ErrUnknownAttribute)
	}
	if env.Cache == nil {
		return nil, fmt.Errorf("no cache store configured")
	}
	return env.Cache.Keys(ctx, recordType+":*")
}

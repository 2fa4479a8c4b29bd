package items

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// FetchProducts loads products by id, in the order given. Cached products are
// read from the cache; the misses are fetched from the board API in a single
// call and written back to the cache together. Each miss raises an operator
// alert. Ids unknown upstream are skipped with an alert.
func FetchProducts(ctx context.Context, env *Env, ids []string) ([]*Product, error) {
	loaded := make(map[string]*Product, len(ids))
	var missed []string

	for _, id := range ids {
		if _, seen := loaded[id]; seen {
			continue
		}
		p := NewProduct(env, id)
		lookup, err := p.FetchCacheSnapshot(ctx)
		switch {
		case err != nil:
			env.alert(ctx, "cache read failed, loading from board API", "record_type", types.RecordTypeProduct, "id", id, "error", err)
			missed = append(missed, id)
		case !lookup.Hit:
			env.observeLookup(types.RecordTypeProduct, false)
			env.alert(ctx, "cache miss, loading from board API", "record_type", types.RecordTypeProduct, "id", id, "key", lookup.Key)
			missed = append(missed, id)
		default:
			if err := p.LoadFromCache(lookup.Data); err != nil {
				env.alert(ctx, "unreadable cache snapshot, loading from board API", "record_type", types.RecordTypeProduct, "id", id, "error", err)
				missed = append(missed, id)
				continue
			}
			env.observeLookup(types.RecordTypeProduct, true)
			p.clearStaged()
		}
		loaded[id] = p
	}

	if len(missed) > 0 {
		raws, err := env.Client.GetItems(ctx, missed)
		env.observeUpstream(OpGetItems, err)
		if err != nil {
			return nil, &types.UpstreamError{RecordType: types.RecordTypeProduct, ID: strings.Join(missed, ","), Op: OpGetItems, Err: err}
		}
		found := make(map[string]bool, len(raws))
		var batch types.CacheBatch
		if env.Cache != nil {
			batch = env.Cache.Batch()
		}
		for idx := range raws {
			p, ok := loaded[raws[idx].ID]
			if !ok {
				continue
			}
			if err := p.Item.Load(ctx, &raws[idx]); err != nil {
				return nil, err
			}
			found[p.ID] = true
			if batch != nil {
				if _, err := p.SaveToCache(WithoutAlerts(ctx), batch); err != nil {
					env.alert(ctx, "could not repopulate cache", "record_type", types.RecordTypeProduct, "id", p.ID, "error", err)
				}
			}
		}
		if batch != nil && batch.Len() > 0 {
			if err := batch.Exec(ctx); err != nil {
				env.alert(ctx, "could not repopulate cache", "record_type", types.RecordTypeProduct, "ids", missed, "error", err)
			}
		}
		for _, id := range missed {
			if !found[id] {
				env.alert(ctx, "product not found on board", "record_type", types.RecordTypeProduct, "id", id)
				delete(loaded, id)
			}
		}
	}

	out := make([]*Product, 0, len(loaded))
	for _, id := range ids {
		if p, ok := loaded[id]; ok {
			out = append(out, p)
			delete(loaded, id)
		}
	}
	return out, nil
}

// FetchAllProducts loads every cached product. Index products are skipped
// unless includeIndex is set. Unreadable entries are alerted and skipped.
func FetchAllProducts(ctx context.Context, env *Env, includeIndex bool) ([]*Product, error) {
	keys, err := CachedKeys(ctx, env, types.RecordTypeProduct)
	if err != nil {
		return nil, fmt.Errorf("list cached products: %w", err)
	}
	sort.Strings(keys)
	var out []*Product
	for _, key := range keys {
		data, found, err := env.Cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if !found {
			continue
		}
		p := NewProduct(env, strings.TrimPrefix(key, types.RecordTypeProduct+":"))
		if err := p.LoadFromCache(data); err != nil {
			env.alert(ctx, "unreadable cache snapshot", "key", key, "error", err)
			continue
		}
		if p.IsIndex() && !includeIndex {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

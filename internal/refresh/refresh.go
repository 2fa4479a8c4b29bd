// Package refresh keeps the cache in step with the boards. Every operation
// overwrites cache entries with fresh board data, so running one twice is
// harmless.
package refresh

import (
	"context"
	"fmt"
	"slices"

	"github.com/sourcegraph/conc/pool"

	"github.com/mesh-intelligence/eric/pkg/items"
	"github.com/mesh-intelligence/eric/pkg/types"
)

// Job kinds, used for job names and metrics labels.
const (
	KindRefreshDevice  = "refresh_device"
	KindRefreshProduct = "refresh_product"
	KindWarmAll        = "warm_all"
)

// Stats summarises a WarmAll run.
type Stats struct {
	Devices  int `json:"devices"`
	Products int `json:"products"`
	Orphans  int `json:"orphans"`
}

// Refresher reloads records from the board API into the cache.
type Refresher struct {
	env *items.Env
}

// New returns a Refresher using env's client and cache.
func New(env *items.Env) *Refresher {
	return &Refresher{env: env}
}

// RefreshDevice reloads a device. Its cached product list is kept, since the
// device board does not carry it.
func (r *Refresher) RefreshDevice(ctx context.Context, id string) error {
	d := items.NewDevice(r.env, id)
	if err := d.LoadFromUpstream(ctx); err != nil {
		return err
	}
	if prev, ok := r.cachedDevice(ctx, id); ok {
		d.ProductIDs = prev.ProductIDs
	}
	if _, err := d.SaveToCache(ctx, nil); err != nil {
		return err
	}
	return nil
}

// RefreshProduct reloads a product and keeps the cached product lists of its
// old and new device in step with its device relation.
func (r *Refresher) RefreshProduct(ctx context.Context, id string) error {
	p := items.NewProduct(r.env, id)
	if err := p.LoadFromUpstream(ctx); err != nil {
		return err
	}
	if r.env.Cache == nil {
		return fmt.Errorf("refresh %s: no cache store configured", p)
	}

	var oldDeviceID string
	if prev, ok := r.cachedProduct(ctx, id); ok {
		oldDeviceID = prev.LinkedDeviceID()
	}
	newDeviceID := p.LinkedDeviceID()

	batch := r.env.Cache.Batch()
	if _, err := p.SaveToCache(ctx, batch); err != nil {
		return err
	}
	if oldDeviceID != "" && oldDeviceID != newDeviceID {
		if d, ok := r.cachedDevice(ctx, oldDeviceID); ok {
			d.ProductIDs = slices.DeleteFunc(d.ProductIDs, func(pid string) bool { return pid == id })
			if _, err := d.SaveToCache(ctx, batch); err != nil {
				return err
			}
		}
	}
	if newDeviceID != "" {
		if d, ok := r.cachedDevice(ctx, newDeviceID); ok && !slices.Contains(d.ProductIDs, id) {
			d.ProductIDs = append(d.ProductIDs, id)
			if _, err := d.SaveToCache(ctx, batch); err != nil {
				return err
			}
		}
	}
	if err := batch.Exec(ctx); err != nil {
		return fmt.Errorf("refresh %s: %w", p, err)
	}
	return nil
}

// WarmAll loads both boards and rewrites every device and product entry.
// Each device is written in one batch together with its products.
func (r *Refresher) WarmAll(ctx context.Context) (Stats, error) {
	if r.env.Cache == nil {
		return Stats{}, fmt.Errorf("warm cache: no cache store configured")
	}
	var (
		devices  []*items.Device
		products []*items.Product
	)
	p := pool.New().WithErrors().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		var err error
		devices, err = items.FetchBoardDevices(ctx, r.env)
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		products, err = items.FetchBoardProducts(ctx, r.env)
		return err
	})
	if err := p.Wait(); err != nil {
		return Stats{}, err
	}

	orphans := items.LinkProducts(devices, products)
	byID := make(map[string]*items.Product, len(products))
	for _, prod := range products {
		byID[prod.ID] = prod
	}

	var stats Stats
	for _, d := range devices {
		batch := r.env.Cache.Batch()
		if _, err := d.SaveToCache(ctx, batch); err != nil {
			return stats, err
		}
		for _, pid := range d.ProductIDs {
			if _, err := byID[pid].SaveToCache(ctx, batch); err != nil {
				return stats, err
			}
		}
		if err := batch.Exec(ctx); err != nil {
			return stats, fmt.Errorf("warm %s: %w", d, err)
		}
		stats.Devices++
		stats.Products += len(d.ProductIDs)
	}

	if len(orphans) > 0 {
		batch := r.env.Cache.Batch()
		for _, prod := range orphans {
			if _, err := prod.SaveToCache(ctx, batch); err != nil {
				return stats, err
			}
		}
		if err := batch.Exec(ctx); err != nil {
			return stats, fmt.Errorf("warm orphan products: %w", err)
		}
		stats.Products += len(orphans)
		stats.Orphans = len(orphans)
	}
	return stats, nil
}

// Refresh dispatches on record type.
func (r *Refresher) Refresh(ctx context.Context, recordType, id string) error {
	switch recordType {
	case types.RecordTypeDevice:
		return r.RefreshDevice(ctx, id)
	case types.RecordTypeProduct:
		return r.RefreshProduct(ctx, id)
	default:
		return fmt.Errorf("refresh %s(%s): %w", recordType, id, types.ErrUnknownAttribute)
	}
}

func (r *Refresher) cachedDevice(ctx context.Context, id string) (*items.Device, bool) {
	d := items.NewDevice(r.env, id)
	return d, r.cached(ctx, d)
}

func (r *Refresher) cachedProduct(ctx context.Context, id string) (*items.Product, bool) {
	p := items.NewProduct(r.env, id)
	return p, r.cached(ctx, p)
}

// cached loads c from its cache entry without falling back to the board API.
func (r *Refresher) cached(ctx context.Context, c items.Cacheable) bool {
	lookup, err := c.FetchCacheSnapshot(ctx)
	if err != nil || !lookup.Hit {
		return false
	}
	return c.LoadFromCache(lookup.Data) == nil
}

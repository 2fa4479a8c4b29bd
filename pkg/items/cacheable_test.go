package items

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/eric/internal/testutil"
	"github.com/mesh-intelligence/eric/pkg/types"
)

func TestDeviceHydrateAndCacheRoundTrip(t *testing.T) {
	f := newFixture(t)
	raw := types.RawItem{
		ID:           "1234",
		Name:         "iPhone 12",
		ColumnValues: []types.ColumnData{{"id": "status9", "text": "Phone"}},
	}

	d := NewDevice(f.env, "")
	require.NoError(t, d.Load(context.Background(), &raw))
	assert.Equal(t, "Phone", d.DeviceType())
	assert.Equal(t, "device:1234", d.CacheKey())

	d.ProductIDs = []string{"11", "12"}
	snapshot, err := d.PrepareCacheData(context.Background())
	require.NoError(t, err)
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"iPhone 12","id":"1234","device_id":"1234","product_ids":["11","12"],"device_type":"Phone"}`, string(data))

	back := NewDevice(f.env, "1234")
	require.NoError(t, back.LoadFromCache(data))
	assert.Equal(t, "Phone", back.DeviceType())
	assert.Equal(t, d.Name, back.Name)
	assert.Equal(t, d.ID, back.ID)
	assert.Equal(t, d.ProductIDs, back.ProductIDs)
	assert.Zero(t, f.upstream.CallCount(""))
}

func TestProductCacheRoundTrip(t *testing.T) {
	f := newFixture(t)
	raw := testutil.ProductRaw("555", "iPhone 12 Screen", "1234", "12999", "45", "Screen")
	raw.ColumnValues[5] = types.ColumnData{"id": "text3", "text": "woo-77"}

	p := NewProduct(f.env, "")
	require.NoError(t, p.Load(context.Background(), &raw))

	snapshot, err := p.PrepareCacheData(context.Background())
	require.NoError(t, err)
	data, err := json.Marshal(snapshot)
	require.NoError(t, err)

	back := NewProduct(f.env, "555")
	require.NoError(t, back.LoadFromCache(data))

	assert.Equal(t, p.Name, back.Name)
	assert.Equal(t, p.ID, back.ID)
	assert.Equal(t, 12999, back.Price())
	assert.Equal(t, p.Price(), back.Price())
	assert.Equal(t, p.RequiredMinutes(), back.RequiredMinutes())
	assert.Equal(t, p.ProductType(), back.ProductType())
	assert.Equal(t, "woo-77", back.WooCommerceProductID())
	assert.Equal(t, p.DeviceID(context.Background()), back.DeviceID(context.Background()))
	assert.Zero(t, f.alerts.Len())
}

func TestProductSnapshotWithoutDevice(t *testing.T) {
	f := newFixture(t)
	raw := testutil.ProductRaw("556", "Orphan", "", "100", "10", "Battery")
	p := NewProduct(f.env, "")
	require.NoError(t, p.Load(context.Background(), &raw))

	snapshot, err := p.SaveToCache(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, snapshot.(ProductSnapshot).DeviceID)
	assert.Equal(t, 1, f.alerts.Len())

	data, found, err := f.cache.Get(context.Background(), "product:556")
	require.NoError(t, err)
	require.True(t, found)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	v, present := m["device_id"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestCacheableLoadHit(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.cache.Set(context.Background(), "device:1234",
		[]byte(`{"name":"iPhone 12","id":"1234","device_id":"1234","product_ids":["9"],"device_type":"Phone"}`)))

	d := NewDevice(f.env, "1234")
	require.NoError(t, d.Load(context.Background(), nil))

	assert.Equal(t, "iPhone 12", d.Name)
	assert.Equal(t, "Phone", d.DeviceType())
	assert.Equal(t, []string{"9"}, d.ProductIDs)
	assert.Zero(t, f.upstream.CallCount(""))
	assert.Zero(t, f.alerts.Len())
	assert.Equal(t, 1, f.observer.hits)
}

func TestCacheableLoadMissFallsBackToUpstream(t *testing.T) {
	f := newFixture(t)
	raw := testutil.DeviceRaw("1234", "iPhone 12", "Phone")
	f.upstream.Put(DeviceBoardID, raw)

	d := NewDevice(f.env, "1234")
	require.NoError(t, d.Load(context.Background(), nil))

	assert.Equal(t, 1, f.alerts.Len(), "exactly one alert per miss")
	assert.Equal(t, 1, f.upstream.CallCount(OpGetItems))
	assert.Equal(t, 1, f.observer.misses)

	direct := NewDevice(f.env, "")
	require.NoError(t, direct.Load(context.Background(), &raw))
	assert.Equal(t, direct.ID, d.ID)
	assert.Equal(t, direct.Name, d.Name)
	assert.Equal(t, direct.DeviceType(), d.DeviceType())
	assert.Equal(t, direct.StagedChanges(), d.StagedChanges())

	_, found, err := f.cache.Get(context.Background(), "device:1234")
	require.NoError(t, err)
	assert.True(t, found, "miss repopulates the cache")

	again := NewDevice(f.env, "1234")
	require.NoError(t, again.Load(context.Background(), nil))
	assert.Equal(t, 1, f.upstream.CallCount(OpGetItems), "second load is a hit")
	assert.Equal(t, 1, f.alerts.Len())
}

func TestCacheableLoadMissUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.upstream.Err = errBoom

	err := NewDevice(f.env, "1234").Load(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, f.alerts.Len())
	assert.Zero(t, f.cache.Len())
}

func TestCacheableLoadCorruptSnapshot(t *testing.T) {
	f := newFixture(t)
	f.upstream.Put(DeviceBoardID, testutil.DeviceRaw("1", "Pixel 8", "Phone"))
	require.NoError(t, f.cache.Set(context.Background(), "device:1", []byte("{not json")))

	d := NewDevice(f.env, "1")
	require.NoError(t, d.Load(context.Background(), nil))
	assert.Equal(t, "Pixel 8", d.Name)
	assert.Equal(t, 1, f.alerts.Len())

	data, _, err := f.cache.Get(context.Background(), "device:1")
	require.NoError(t, err)
	assert.True(t, json.Valid(data), "corrupt entry is overwritten")
}

func TestCacheableLoadWithRawSkipsCache(t *testing.T) {
	f := newFixture(t)
	raw := testutil.DeviceRaw("1", "Pixel 8", "Phone")

	d := NewDevice(f.env, "1")
	require.NoError(t, d.Load(context.Background(), &raw))
	assert.Zero(t, f.cache.Len())
	assert.Zero(t, f.alerts.Len())
	assert.Zero(t, f.observer.hits+f.observer.misses)
}

func TestCacheableLoadWithoutID(t *testing.T) {
	f := newFixture(t)
	err := NewDevice(f.env, "").Load(context.Background(), nil)
	assert.ErrorIs(t, err, types.ErrIncompleteRecord)
}

func TestCacheableLoadWithoutCacheStore(t *testing.T) {
	f := newFixture(t)
	f.env.Cache = nil
	f.upstream.Put(DeviceBoardID, testutil.DeviceRaw("1", "Pixel 8", "Phone"))

	d := NewDevice(f.env, "1")
	require.NoError(t, d.Load(context.Background(), nil))
	assert.Equal(t, "Pixel 8", d.Name)
	assert.Equal(t, 2, f.alerts.Len(), "read failure and repopulate failure")
}

func TestFetchCacheSnapshot(t *testing.T) {
	f := newFixture(t)
	d := NewDevice(f.env, "77")

	lookup, err := d.FetchCacheSnapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, lookup.Hit)
	assert.Equal(t, "device:77", lookup.Key)
	var miss *types.CacheMissError
	require.ErrorAs(t, lookup.Err(), &miss)
	assert.Equal(t, "device:77", miss.Key)
	assert.ErrorIs(t, lookup.Err(), types.ErrCacheMiss)

	require.NoError(t, f.cache.Set(context.Background(), "device:77", []byte(`{}`)))
	lookup, err = d.FetchCacheSnapshot(context.Background())
	require.NoError(t, err)
	assert.True(t, lookup.Hit)
	assert.NoError(t, lookup.Err())
}

func TestSaveToCacheBatch(t *testing.T) {
	f := newFixture(t)
	raw := testutil.DeviceRaw("1", "Pixel 8", "Phone")
	d := NewDevice(f.env, "")
	require.NoError(t, d.Load(context.Background(), &raw))
	prodRaw := testutil.ProductRaw("2", "Pixel 8 Screen", "1", "100", "30", "Screen")
	p := NewProduct(f.env, "")
	require.NoError(t, p.Load(context.Background(), &prodRaw))
	d.ProductIDs = []string{"2"}

	batch := f.cache.Batch()
	snap, err := d.SaveToCache(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, "Pixel 8", snap.(DeviceSnapshot).Name)
	_, err = p.SaveToCache(context.Background(), batch)
	require.NoError(t, err)
	assert.Zero(t, f.cache.Len(), "queued writes are not visible")

	require.NoError(t, batch.Exec(context.Background()))
	assert.Equal(t, 2, f.cache.Len())
}

func TestConcurrentMissesAllLoad(t *testing.T) {
	f := newFixture(t)
	f.upstream.Put(DeviceBoardID, testutil.DeviceRaw("1", "Pixel 8", "Phone"))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = NewDevice(f.env, "1").Load(context.Background(), nil)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.LessOrEqual(t, f.upstream.CallCount(OpGetItems), len(errs))
}

func TestNewCacheable(t *testing.T) {
	f := newFixture(t)
	c, err := NewCacheable(f.env, "product", "5")
	require.NoError(t, err)
	assert.Equal(t, "product:5", c.CacheKey())

	_, err = NewCacheable(f.env, "main", "5")
	assert.ErrorIs(t, err, types.ErrUnknownAttribute)
}

func TestCachedKeys(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, k := range []string{"device:1", "device:2", "product:3"} {
		require.NoError(t, f.cache.Set(ctx, k, []byte("{}")))
	}

	keys, err := CachedKeys(ctx, f.env, "device")
	require.NoError(t, err)
	assert.Equal(t, []string{"device:1", "device:2"}, keys)

	_, err = CachedKeys(ctx, f.env, "main")
	assert.Error(t, err)
}

func TestProductDeviceFollowsRelation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	deviceOf := func(p *Product) string {
		t.Helper()
		snapshot, err := p.PrepareCacheData(ctx)
		require.NoError(t, err)
		id := snapshot.(ProductSnapshot).DeviceID
		require.NotNil(t, id)
		return *id
	}

	raw := testutil.ProductRaw("555", "Screen", "100", "10", "5", "Screen")
	p := NewProduct(f.env, "")
	require.NoError(t, p.Load(ctx, &raw))
	assert.Equal(t, "100", p.LinkedDeviceID())

	require.NoError(t, p.Set("device_connect", []string{"200"}))
	assert.Equal(t, "200", p.LinkedDeviceID())
	assert.Equal(t, "200", deviceOf(p))

	reloaded := testutil.ProductRaw("555", "Screen", "300", "10", "5", "Screen")
	require.NoError(t, p.Load(ctx, &reloaded))
	assert.Equal(t, "300", p.LinkedDeviceID())
	assert.Equal(t, "300", deviceOf(p))

	require.NoError(t, p.LoadFromCache([]byte(`{"name":"Screen","id":"555","device_id":"400"}`)))
	assert.Equal(t, "400", deviceOf(p))

	require.NoError(t, p.SetDevice("500"))
	assert.Equal(t, "500", p.DeviceID(ctx))
	assert.Zero(t, f.alerts.Len())
}

func TestProductMissWithoutDeviceAlertsOnce(t *testing.T) {
	f := newFixture(t)
	f.upstream.Put(ProductBoardID, testutil.ProductRaw("556", "Orphan", "", "100", "10", "Battery"))

	p := NewProduct(f.env, "556")
	require.NoError(t, p.Load(context.Background(), nil))

	assert.Equal(t, 1, f.alerts.Len(), "the miss alert covers the write-back")
	data, found, err := f.cache.Get(context.Background(), "product:556")
	require.NoError(t, err)
	require.True(t, found)
	assert.Contains(t, string(data), `"device_id":null`)
}

func TestSharedFetchOutlivesCancelledCaller(t *testing.T) {
	f := newFixture(t)
	f.upstream.Put(DeviceBoardID, testutil.DeviceRaw("1", "Pixel 8", "Phone"))
	f.upstream.Gate = make(chan struct{})
	f.upstream.Started = make(chan struct{}, 1)

	first, cancel := context.WithCancel(context.Background())
	defer cancel()
	firstErr := make(chan error, 1)
	go func() { firstErr <- NewDevice(f.env, "1").Load(first, nil) }()
	<-f.upstream.Started

	secondErr := make(chan error, 1)
	second := NewDevice(f.env, "1")
	go func() { secondErr <- second.Load(context.Background(), nil) }()
	assert.Eventually(t, func() bool { return f.alerts.Len() == 2 }, time.Second, time.Millisecond)

	cancel()
	err := <-firstErr
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, types.ErrUpstream)

	close(f.upstream.Gate)
	require.NoError(t, <-secondErr)
	assert.Equal(t, "Pixel 8", second.Name)
	assert.Equal(t, 1, f.upstream.CallCount(OpGetItems))
}

package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/eric/internal/memory"
	"github.com/mesh-intelligence/eric/internal/testutil"
	"github.com/mesh-intelligence/eric/pkg/items"
	"github.com/mesh-intelligence/eric/pkg/types"
)

type fixture struct {
	env      *items.Env
	upstream *testutil.Upstream
	cache    *memory.Store
	alerts   *testutil.Alerts
	r        *Refresher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		upstream: testutil.NewUpstream(),
		cache:    memory.NewStore(),
		alerts:   &testutil.Alerts{},
	}
	f.env = &items.Env{
		Client: f.upstream,
		Cache:  f.cache,
		Alerts: f.alerts,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	f.r = New(f.env)
	return f
}

func (f *fixture) snapshot(t *testing.T, key string) map[string]any {
	t.Helper()
	data, found, err := f.cache.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, found, "expected %s in cache", key)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func TestRefreshDeviceKeepsProductIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "device:1",
		[]byte(`{"name":"Old","id":"1","device_id":"1","product_ids":["10","11"],"device_type":"Phone"}`)))
	f.upstream.Put(items.DeviceBoardID, testutil.DeviceRaw("1", "iPhone 12", "Phone"))

	require.NoError(t, f.r.RefreshDevice(ctx, "1"))

	snap := f.snapshot(t, "device:1")
	assert.Equal(t, "iPhone 12", snap["name"])
	assert.Equal(t, []any{"10", "11"}, snap["product_ids"])
	assert.Zero(t, f.alerts.Len())
}

func TestRefreshDeviceNotCachedYet(t *testing.T) {
	f := newFixture(t)
	f.upstream.Put(items.DeviceBoardID, testutil.DeviceRaw("1", "iPhone 12", "Phone"))

	require.NoError(t, f.r.Refresh(context.Background(), types.RecordTypeDevice, "1"))
	assert.Equal(t, []any{}, f.snapshot(t, "device:1")["product_ids"])
}

func TestRefreshDeviceUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.upstream.Err = errors.New("rate limited")

	err := f.r.RefreshDevice(context.Background(), "1")
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.Zero(t, f.cache.Len())
}

func TestRefreshProductMovesBetweenDevices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "device:1", []byte(`{"name":"A","id":"1","device_id":"1","product_ids":["10","11"],"device_type":"Phone"}`)))
	require.NoError(t, f.cache.Set(ctx, "device:2", []byte(`{"name":"B","id":"2","device_id":"2","product_ids":[],"device_type":"Phone"}`)))
	require.NoError(t, f.cache.Set(ctx, "product:10", []byte(`{"price":1,"required_minutes":1,"name":"P","device_id":"1","id":"10"}`)))
	f.upstream.Put(items.ProductBoardID, testutil.ProductRaw("10", "P", "2", "150", "45", "Screen"))

	require.NoError(t, f.r.RefreshProduct(ctx, "10"))

	assert.Equal(t, []any{"11"}, f.snapshot(t, "device:1")["product_ids"])
	assert.Equal(t, []any{"10"}, f.snapshot(t, "device:2")["product_ids"])
	prod := f.snapshot(t, "product:10")
	assert.Equal(t, "2", prod["device_id"])
	assert.Equal(t, 150.0, prod["price"])

	require.NoError(t, f.r.RefreshProduct(ctx, "10"), "refresh is idempotent")
	assert.Equal(t, []any{"10"}, f.snapshot(t, "device:2")["product_ids"])
}

func TestRefreshProductWithoutDevice(t *testing.T) {
	f := newFixture(t)
	f.upstream.Put(items.ProductBoardID, testutil.ProductRaw("10", "P", "", "1", "1", "Screen"))

	require.NoError(t, f.r.Refresh(context.Background(), types.RecordTypeProduct, "10"))
	assert.Nil(t, f.snapshot(t, "product:10")["device_id"])
	assert.Equal(t, 1, f.alerts.Len())
}

func TestRefreshUnknownType(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.r.Refresh(context.Background(), "main", "1"), types.ErrUnknownAttribute)
}

func TestWarmAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.upstream.Put(items.DeviceBoardID, testutil.DeviceRaw("1", "iPhone 12", "Phone"))
	f.upstream.Put(items.DeviceBoardID, testutil.DeviceRaw("2", "iPad Air", "Tablet"))
	f.upstream.Put(items.ProductBoardID, testutil.ProductRaw("10", "Screen", "1", "100", "30", "Screen"))
	f.upstream.Put(items.ProductBoardID, testutil.ProductRaw("11", "Battery", "1", "60", "20", "Battery"))
	f.upstream.Put(items.ProductBoardID, testutil.ProductRaw("12", "Orphan", "", "1", "1", "Other"))

	stats, err := f.r.WarmAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Devices: 2, Products: 3, Orphans: 1}, stats)
	assert.Equal(t, 5, f.cache.Len())
	assert.Equal(t, []any{"10", "11"}, f.snapshot(t, "device:1")["product_ids"])
	assert.Equal(t, []any{}, f.snapshot(t, "device:2")["product_ids"])
	assert.Equal(t, 1, f.alerts.Len(), "orphan product without device alerts once")

	again, err := f.r.WarmAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, stats, again)
	assert.Equal(t, 5, f.cache.Len())
}

func TestWarmAllUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.upstream.Err = errors.New("down")

	_, err := f.r.WarmAll(context.Background())
	assert.ErrorIs(t, err, types.ErrUpstream)
	assert.Zero(t, f.cache.Len())
}

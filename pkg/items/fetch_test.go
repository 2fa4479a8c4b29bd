package items

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/eric/internal/testutil"
	"github.com/mesh-intelligence/eric/pkg/types"
)

func TestFetchProductsMixesCacheAndUpstream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "product:1",
		[]byte(`{"price":100,"required_minutes":30,"name":"Cached","device_id":"9","id":"1","product_type":"Screen"}`)))
	f.upstream.Put(ProductBoardID, testutil.ProductRaw("2", "Fetched", "9", "200", "60", "Battery"))

	got, err := FetchProducts(ctx, f.env, []string{"2", "1", "3"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Fetched", got[0].Name)
	assert.Equal(t, "Cached", got[1].Name)
	assert.Equal(t, 200, got[0].Price())
	assert.Equal(t, 1, f.upstream.CallCount(OpGetItems), "misses fetched in one call")

	// two misses plus one unknown id
	assert.Equal(t, 3, f.alerts.Len())

	_, found, err := f.cache.Get(ctx, "product:2")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestFetchProductsUpstreamFailure(t *testing.T) {
	f := newFixture(t)
	f.upstream.Err = errBoom

	_, err := FetchProducts(context.Background(), f.env, []string{"1"})
	assert.ErrorIs(t, err, types.ErrUpstream)
}

func TestDeviceProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "product:1", []byte(`{"price":100,"required_minutes":30,"name":"A","device_id":"9","id":"1"}`)))
	require.NoError(t, f.cache.Set(ctx, "product:2", []byte(`{"price":200,"required_minutes":30,"name":"B","device_id":"9","id":"2"}`)))

	d := NewDevice(f.env, "9")
	d.ProductIDs = []string{"1", "2"}
	got, err := d.Products(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "9", got[0].DeviceID(ctx))
	assert.Zero(t, f.upstream.CallCount(""))
}

func TestFetchAllProductsSkipsIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.cache.Set(ctx, "product:1", []byte(`{"price":1,"required_minutes":1,"name":"Index","device_id":"9","id":"1","product_type":"Index"}`)))
	require.NoError(t, f.cache.Set(ctx, "product:2", []byte(`{"price":1,"required_minutes":1,"name":"Screen","device_id":"9","id":"2","product_type":"Screen"}`)))
	require.NoError(t, f.cache.Set(ctx, "product:3", []byte(`garbage`)))
	require.NoError(t, f.cache.Set(ctx, "device:9", []byte(`{}`)))

	got, err := FetchAllProducts(ctx, f.env, false)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Screen", got[0].Name)
	assert.Equal(t, 1, f.alerts.Len())

	got, err = FetchAllProducts(ctx, f.env, true)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

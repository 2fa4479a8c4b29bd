package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreGetSet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	_, found, err := s.Get(ctx, "device:1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "device:1", []byte(`{"id":"1"}`)))
	v, found, err := s.Get(ctx, "device:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `{"id":"1"}`, string(v))
}

func TestStoreKeysPrefixScan(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for _, k := range []string{"device:2", "device:1", "product:1"} {
		require.NoError(t, s.Set(ctx, k, []byte("{}")))
	}

	keys, err := s.Keys(ctx, "device:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"device:1", "device:2"}, keys)
}

func TestStoreBatchVisibleOnExec(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	b := s.Batch()
	b.Set("device:1", []byte("{}"))
	b.Set("product:5", []byte("{}"))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 0, s.Len())

	require.NoError(t, b.Exec(ctx))
	assert.Equal(t, 2, s.Len())
}

func TestStoreEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	s, err := NewSizedStore(2)
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "device:1", []byte("{}")))
	require.NoError(t, s.Set(ctx, "device:2", []byte("{}")))
	_, _, err = s.Get(ctx, "device:1")
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, "device:3", []byte("{}")))

	keys, err := s.Keys(ctx, "device:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"device:1", "device:3"}, keys)
}

func TestNewSizedStoreRejectsZero(t *testing.T) {
	_, err := NewSizedStore(0)
	assert.Error(t, err)
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.Set(ctx, "device:1", []byte("{}")))
	require.NoError(t, s.Delete(ctx, "device:1"))
	require.NoError(t, s.Delete(ctx, "device:1"))
	assert.Zero(t, s.Len())
}

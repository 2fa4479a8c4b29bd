package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.CacheLookup("device", true)
	m.CacheLookup("device", false)
	m.CacheLookup("device", false)
	m.UpstreamCall("get_items", nil)
	m.UpstreamCall("get_items", errors.New("boom"))
	m.AlertRaised()
	m.JobFinished("refresh_device", nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("device", "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.cacheLookups.WithLabelValues("device", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("get_items", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.upstreamCalls.WithLabelValues("get_items", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.alerts))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.jobs.WithLabelValues("refresh_device", "ok")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.CacheLookup("product", true)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `eric_cache_lookups_total{record_type="product",result="hit"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/eric/internal/jsonl"
	"github.com/mesh-intelligence/eric/internal/sqlite"
	"github.com/mesh-intelligence/eric/pkg/types"
)

type dirs struct {
	config string
	data   string
}

// newDirs isolates a test from the caller's configuration.
func newDirs(t *testing.T) dirs {
	t.Helper()
	color.NoColor = true
	for _, k := range []string{"CACHE_BACKEND", "REDIS_URL", "DATA_DIR", "MONDAY_API_URL", "MONDAY_TOKEN",
		"ALERT_WEBHOOK_URL", "LOG_LEVEL", "LOG_FORMAT", "CONFIG_DIR", "BACKUP_BUCKET"} {
		t.Setenv(envPrefix+"_"+k, "")
	}
	root := t.TempDir()
	return dirs{config: filepath.Join(root, "config"), data: filepath.Join(root, "data")}
}

func execute(t *testing.T, d dirs, args ...string) (string, string, int) {
	t.Helper()
	root := NewRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	all := append([]string{"--config-dir", d.config, "--data-dir", d.data}, args...)
	code := run(root, all)
	return stdout.String(), stderr.String(), code
}

func writeDump(t *testing.T, dir string, entries ...jsonl.Entry) string {
	t.Helper()
	path := filepath.Join(dir, "dump.jsonl")
	require.NoError(t, jsonl.WriteFile(path, entries))
	return path
}

const deviceSnapshot = `{"name":"iPhone 12","id":"1","device_id":"1","product_ids":["10"],"device_type":"Phone"}`

func TestVersion(t *testing.T) {
	d := newDirs(t)
	out, _, code := execute(t, d, "version")
	assert.Equal(t, exitSuccess, code)
	assert.Contains(t, out, "eric v"+Version)
}

func TestInit(t *testing.T) {
	d := newDirs(t)

	out, stderr, code := execute(t, d, "init")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, out, "Wrote")
	assert.Contains(t, out, "Cache backend sqlite ready")

	cfg, err := os.ReadFile(filepath.Join(d.config, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(cfg), "cache_backend: sqlite")
	assert.FileExists(t, filepath.Join(d.data, sqlite.DBFileName))
	assert.DirExists(t, filepath.Join(d.data, "dumps"))

	out, _, code = execute(t, d, "init")
	require.Equal(t, exitSuccess, code)
	assert.NotContains(t, out, "Wrote", "existing config.yaml is left alone")
}

func TestInitRedisWithoutURL(t *testing.T) {
	d := newDirs(t)
	_, stderr, code := execute(t, d, "init", "--backend", "redis")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, types.ErrRedisURLEmpty.Error())
}

func TestInvalidConfig(t *testing.T) {
	d := newDirs(t)
	require.NoError(t, os.MkdirAll(d.config, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d.config, "config.yaml"), []byte("log_format: xml\n"), 0o600))

	_, stderr, code := execute(t, d, "cache", "keys", "device")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "invalid configuration")
}

func TestEnvironmentOverridesConfig(t *testing.T) {
	d := newDirs(t)
	require.NoError(t, os.MkdirAll(d.config, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(d.config, "config.yaml"), []byte("cache_backend: sqlite\n"), 0o600))
	t.Setenv("ERIC_CACHE_BACKEND", "memory")

	out, stderr, code := execute(t, d, "init")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, out, "Cache backend memory ready")
}

func TestCacheImportGetExport(t *testing.T) {
	d := newDirs(t)
	dump := writeDump(t, t.TempDir(),
		jsonl.Entry{Key: "device:1", Value: json.RawMessage(deviceSnapshot)},
		jsonl.Entry{Key: "product:10", Value: json.RawMessage(`{"name":"Screen","id":"10","device_id":"1","price":120,"required_minutes":45}`)},
	)

	out, stderr, code := execute(t, d, "cache", "import", dump)
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, out, "Imported 2 entries")

	out, _, code = execute(t, d, "cache", "keys", "device")
	require.Equal(t, exitSuccess, code)
	assert.Equal(t, "device:1\n", out)

	out, stderr, code = execute(t, d, "cache", "get", "device", "1")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, out, "device:1 HIT")
	assert.Contains(t, out, `"device_type": "Phone"`)

	out, _, code = execute(t, d, "--json", "cache", "get", "device", "1")
	require.Equal(t, exitSuccess, code)
	var got struct {
		Key  string          `json:"key"`
		Hit  bool            `json:"hit"`
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "device:1", got.Key)
	assert.True(t, got.Hit)
	assert.JSONEq(t, deviceSnapshot, string(got.Data))

	out, _, code = execute(t, d, "cache", "products")
	require.Equal(t, exitSuccess, code)
	assert.Equal(t, "10\tScreen\t120\t1\n", out)

	exported := filepath.Join(t.TempDir(), "out.jsonl")
	out, stderr, code = execute(t, d, "cache", "export", exported)
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, out, "Wrote 2 entries")
	entries, err := jsonl.ReadFile(exported)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "device:1", entries[0].Key)
}

func TestCacheExportDefaultsToDumpDir(t *testing.T) {
	d := newDirs(t)
	_, stderr, code := execute(t, d, "cache", "export")
	require.Equal(t, exitSuccess, code, stderr)

	matches, err := filepath.Glob(filepath.Join(d.data, "dumps", "cache-*.jsonl"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestCacheImportRequiresSource(t *testing.T) {
	d := newDirs(t)
	_, stderr, code := execute(t, d, "cache", "import")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "dump file is required")
}

func TestCacheKeysRejectsPlainRecordType(t *testing.T) {
	d := newDirs(t)
	_, stderr, code := execute(t, d, "cache", "keys", "main")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "not cacheable")
}

func TestCacheRefreshFromBoard(t *testing.T) {
	d := newDirs(t)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"items":[{"id":"1","name":"iPhone 13","column_values":[{"id":"status9","text":"Phone","value":null}]}]}}`))
	}))
	t.Cleanup(api.Close)
	t.Setenv("ERIC_MONDAY_API_URL", api.URL)

	dump := writeDump(t, t.TempDir(), jsonl.Entry{Key: "device:1", Value: json.RawMessage(deviceSnapshot)})
	_, _, code := execute(t, d, "cache", "import", dump)
	require.Equal(t, exitSuccess, code)

	out, stderr, code := execute(t, d, "cache", "refresh", "device", "1")
	require.Equal(t, exitSuccess, code, stderr)
	assert.Contains(t, out, "Refreshed device:1")

	out, _, code = execute(t, d, "--json", "cache", "get", "device", "1")
	require.Equal(t, exitSuccess, code)
	var got struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "iPhone 13", got.Data["name"])
	assert.Equal(t, []any{"10"}, got.Data["product_ids"], "refresh keeps the cached product list")
}

func TestCacheRefreshUpstreamFailure(t *testing.T) {
	d := newDirs(t)
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(api.Close)
	t.Setenv("ERIC_MONDAY_API_URL", api.URL)

	_, stderr, code := execute(t, d, "cache", "refresh", "device", "1")
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "Error:")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, types.Config{LogLevel: "warn", LogFormat: "json"})
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, slog.LevelWarn.String(), rec["level"])
}

func TestOpenCacheUnknownBackend(t *testing.T) {
	_, err := openCache(types.Config{CacheBackend: "etcd"})
	assert.ErrorIs(t, err, types.ErrCacheBackendUnknown)
}

package types

import "context"

// Record type tags. A cache key is "<type>:<id>".
const (
	RecordTypeDevice  = "device"
	RecordTypeProduct = "product"
)

// CacheableRecordTypes lists the record types served from the cache store.
var CacheableRecordTypes = []string{
	RecordTypeDevice,
	RecordTypeProduct,
}

// IsCacheableRecordType reports whether t is a cacheable record type tag.
func IsCacheableRecordType(t string) bool {
	for _, c := range CacheableRecordTypes {
		if c == t {
			return true
		}
	}
	return false
}

// CacheStore is a key/value store holding serialized record snapshots.
type CacheStore interface {
	// Get returns the value stored at key. found is false when the key is
	// absent; err is reserved for store failures.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value at key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Keys returns the keys matching a glob pattern such as "device:*".
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Batch starts a set of writes that become visible together on Exec.
	Batch() CacheBatch
}

// CacheBatch queues writes for an atomic flush. A batch is used once.
type CacheBatch interface {
	Set(key string, value []byte)
	Len() int
	Exec(ctx context.Context) error
}

// Alerter raises operator-visible alerts. Alerts never fail the caller.
// args are slog-style key/value pairs.
type Alerter interface {
	Alert(ctx context.Context, msg string, args ...any)
}

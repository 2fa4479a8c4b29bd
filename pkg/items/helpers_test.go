package items

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/mesh-intelligence/eric/internal/memory"
	"github.com/mesh-intelligence/eric/internal/testutil"
)

type countingObserver struct {
	mu       sync.Mutex
	hits     int
	misses   int
	upstream map[string]int
	failures int
}

func (o *countingObserver) CacheLookup(_ string, hit bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if hit {
		o.hits++
	} else {
		o.misses++
	}
}

func (o *countingObserver) UpstreamCall(op string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.upstream == nil {
		o.upstream = make(map[string]int)
	}
	o.upstream[op]++
	if err != nil {
		o.failures++
	}
}

type fixture struct {
	env      *Env
	upstream *testutil.Upstream
	cache    *memory.Store
	alerts   *testutil.Alerts
	observer *countingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		upstream: testutil.NewUpstream(),
		cache:    memory.NewStore(),
		alerts:   &testutil.Alerts{},
		observer: &countingObserver{},
	}
	f.env = &Env{
		Client:   f.upstream,
		Cache:    f.cache,
		Alerts:   f.alerts,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Observer: f.observer,
	}
	return f
}

var errBoom = errors.New("boom")

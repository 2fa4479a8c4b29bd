package items

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/mesh-intelligence/eric/pkg/types"
)

// Observer receives counts of cache lookups and upstream calls.
type Observer interface {
	CacheLookup(recordType string, hit bool)
	UpstreamCall(op string, err error)
}

// Env bundles the collaborators a record needs. One Env is shared by every
// record created during a request or job; it must not be copied after use.
type Env struct {
	Client   types.UpstreamClient
	Cache    types.CacheStore
	Alerts   types.Alerter
	Logger   *slog.Logger
	Observer Observer

	// flight coalesces concurrent upstream fetches after a cache miss.
	flight singleflight.Group
}

func (e *Env) log() *slog.Logger {
	if e.Logger == nil {
		return slog.Default()
	}
	return e.Logger
}

type quietKey struct{}

// WithoutAlerts returns a context under which record alerts are logged but
// not delivered. Use it when the condition has already been alerted, e.g. a
// snapshot written back after a cache miss.
func WithoutAlerts(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

func (e *Env) alert(ctx context.Context, msg string, args ...any) {
	if quiet, _ := ctx.Value(quietKey{}).(bool); quiet {
		e.log().WarnContext(ctx, msg, args...)
		return
	}
	if e.Alerts == nil {
		e.log().WarnContext(ctx, msg, args...)
		return
	}
	e.Alerts.Alert(ctx, msg, args...)
}

func (e *Env) observeLookup(recordType string, hit bool) {
	if e.Observer != nil {
		e.Observer.CacheLookup(recordType, hit)
	}
}

func (e *Env) observeUpstream(op string, err error) {
	if e.Observer != nil {
		e.Observer.UpstreamCall(op, err)
	}
}

package testutil

import (
	"context"
	"sync"
)

// Alert is one recorded alert.
type Alert struct {
	Msg  string
	Args []any
}

// Alerts records alerts instead of delivering them.
type Alerts struct {
	mu     sync.Mutex
	alerts []Alert
}

func (a *Alerts) Alert(_ context.Context, msg string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, Alert{Msg: msg, Args: args})
}

// All returns a copy of the recorded alerts.
func (a *Alerts) All() []Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Alert(nil), a.alerts...)
}

// Len returns the number of recorded alerts.
func (a *Alerts) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.alerts)
}

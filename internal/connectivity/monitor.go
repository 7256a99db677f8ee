// Package connectivity tracks whether the remote store is reachable and
// notifies subscribers on every online/offline transition.
package connectivity

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Prober checks reachability of the remote side.
type Prober interface {
	Ping(ctx context.Context) error
}

// Monitor holds the current connectivity state.
type Monitor struct {
	mu        sync.RWMutex
	online    bool
	onOnline  []func()
	onOffline []func()

	prober Prober
	logger *zap.Logger
}

// NewMonitor returns a monitor starting in the given state. prober may be nil,
// in which case Probe leaves the state unchanged.
func NewMonitor(initial bool, prober Prober, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{online: initial, prober: prober, logger: logger}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// OnOnline registers fn to run on every offline to online transition.
func (m *Monitor) OnOnline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOnline = append(m.onOnline, fn)
}

// OnOffline registers fn to run on every online to offline transition.
func (m *Monitor) OnOffline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOffline = append(m.onOffline, fn)
}

// Set records a new state. Callbacks fire only when the state actually
// changes, after the lock is released. It reports whether a transition happened.
func (m *Monitor) Set(online bool) bool {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return false
	}
	m.online = online

	var callbacks []func()
	if online {
		callbacks = append(callbacks, m.onOnline...)
	} else {
		callbacks = append(callbacks, m.onOffline...)
	}
	m.mu.Unlock()

	m.logger.Info("connectivity changed", zap.Bool("online", online))
	for _, fn := range callbacks {
		fn()
	}
	return true
}

// Probe asks the prober for reachability and records the result.
func (m *Monitor) Probe(ctx context.Context) bool {
	if m.prober == nil {
		return m.Online()
	}

	err := m.prober.Ping(ctx)
	if err != nil {
		m.logger.Debug("connectivity probe failed", zap.Error(err))
	}
	m.Set(err == nil)
	return err == nil
}

// Package manager owns the governors of one Bluetooth stack. It resolves
// identities through a Transport, cascades releases from a parent object to
// everything below it, and drives the periodic refresh of every governor.
package manager

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"
	"github.com/srg/blgov/internal/governor"
	"github.com/srg/blgov/internal/groutine"
	"github.com/srg/blgov/internal/identity"
)

// DefaultRefreshInterval is how often Start refreshes every governor
const DefaultRefreshInterval = 5 * time.Second

// Transport is the platform layer: it materializes live objects and knows the
// kind-specific hooks for them.
type Transport interface {
	Resolve(id identity.Identity) (governor.Object, bool)
	Hooks(kind governor.Kind) governor.Hooks
}

// Option configures a Manager
type Option func(*Manager)

// WithLogger sets the logger shared by the manager and its governors
func WithLogger(logger *logrus.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClock sets the time source for the refresh ticker and interaction timestamps
func WithClock(c clock.Clock) Option {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithRefreshInterval sets the period of the refresh loop started by Start
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.interval = d
		}
	}
}

// Manager implements governor.Manager on top of a Transport
type Manager struct {
	transport Transport
	governors *hashmap.Map[string, *governor.Governor]
	logger    *logrus.Logger
	clock     clock.Clock
	interval  time.Duration

	loopMu sync.Mutex
	cancel context.CancelFunc
	done   <-chan struct{}
}

// New creates a manager with no governors
func New(transport Transport, opts ...Option) *Manager {
	m := &Manager{
		transport: transport,
		governors: hashmap.New[string, *governor.Governor](),
		logger:    logrus.New(),
		clock:     clock.New(),
		interval:  DefaultRefreshInterval,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Clock returns the clock governors use to stamp interactions
func (m *Manager) Clock() clock.Clock {
	return m.clock
}

// Governor returns the governor for id, creating it on first use
func (m *Manager) Governor(id identity.Identity) *governor.Governor {
	key := id.String()
	if g, ok := m.governors.Get(key); ok {
		return g
	}

	g := governor.New(id, m, m.transport.Hooks(governor.KindOf(id)),
		governor.WithLogger(m.logger),
		governor.WithClock(m.clock),
	)
	g, existing := m.governors.GetOrInsert(key, g)
	if !existing {
		m.logger.WithFields(logrus.Fields{
			"identity": key,
			"kind":     g.Kind().String(),
		}).Debug("Created governor")
	}
	return g
}

// Governors returns a snapshot of all governors ordered by identity, so parents precede children
func (m *Manager) Governors() []*governor.Governor {
	govs := make([]*governor.Governor, 0, m.governors.Len())
	m.governors.Range(func(_ string, g *governor.Governor) bool {
		govs = append(govs, g)
		return true
	})

	sort.Slice(govs, func(i, j int) bool {
		return govs[i].Identity().String() < govs[j].Identity().String()
	})
	return govs
}

// Resolve implements governor.Manager
func (m *Manager) Resolve(id identity.Identity) (governor.Object, bool) {
	return m.transport.Resolve(id)
}

// CascadeRelease implements governor.Manager. Descendants are released deepest first.
func (m *Manager) CascadeRelease(id identity.Identity) {
	var descendants []*governor.Governor
	m.governors.Range(func(_ string, g *governor.Governor) bool {
		if g.Identity().IsDescendantOf(id) {
			descendants = append(descendants, g)
		}
		return true
	})
	if len(descendants) == 0 {
		return
	}

	sort.Slice(descendants, func(i, j int) bool {
		return descendants[i].Identity().Depth() > descendants[j].Identity().Depth()
	})

	m.logger.WithFields(logrus.Fields{
		"identity":    id.String(),
		"descendants": len(descendants),
	}).Debug("Cascading release")

	for _, g := range descendants {
		g.Release()
	}
}

// RefreshAll refreshes every governor, parents before children
func (m *Manager) RefreshAll() {
	for _, g := range m.Governors() {
		g.Refresh()
	}
}

// Start launches the refresh loop. It refreshes once immediately, then on
// every tick until ctx is done or Stop is called. Calling Start twice is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.loopMu.Lock()
	defer m.loopMu.Unlock()

	if m.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	ticker := m.clock.Ticker(m.interval)
	m.cancel = cancel

	m.logger.WithField("interval", m.interval).Info("Starting governor refresh loop")
	m.done = groutine.Go(loopCtx, "governor-refresh", func(ctx context.Context) {
		defer ticker.Stop()

		m.RefreshAll()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.RefreshAll()
			}
		}
	})
}

// Stop ends the refresh loop and waits for an in-flight refresh to finish
func (m *Manager) Stop() {
	m.loopMu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	m.logger.Debug("Governor refresh loop stopped")
}

// Dispose stops the loop, releases every governor (children first) and forgets
// them. A transport that implements io.Closer is closed last.
func (m *Manager) Dispose() error {
	m.Stop()

	govs := m.Governors()
	for i := len(govs) - 1; i >= 0; i-- {
		govs[i].Release()
	}
	for _, g := range govs {
		m.governors.Del(g.Identity().String())
	}

	m.logger.WithField("governors", len(govs)).Info("Manager disposed")

	if closer, ok := m.transport.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("closing transport: %w", err)
		}
	}
	return nil
}

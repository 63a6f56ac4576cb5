// Package governor binds the stable identity of a Bluetooth object to the
// transient native object behind it.
//
// A Governor is NOT_READY until a Refresh resolves a live object and the
// kind-specific hooks accept it. From then on callers reach the object
// through Interact; any failure, whether raised by a hook or by an
// interaction, releases the object and drops the governor back to
// NOT_READY. The next successful Refresh brings it back.
package governor

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/sirupsen/logrus"
	"github.com/srg/blgov/internal/identity"
)

const (
	hookInit    = "init"
	hookRefresh = "refresh"
	hookRelease = "release"
)

// Object is a live native handle of a Bluetooth object.
// Implementations must be comparable (pointer types in practice).
type Object interface {
	Identity() identity.Identity
}

// Hooks are the kind-specific steps a governor runs against its object.
//
//   - Init runs once each time the governor binds to an object after being NOT_READY.
//   - Refresh runs on every successful refresh cycle.
//   - Release runs when the object is given up; its error is logged, never propagated.
type Hooks interface {
	Init(obj Object) error
	Refresh(obj Object) error
	Release(obj Object) error
}

// HooksFuncs adapts plain functions to Hooks. Nil fields succeed without doing anything.
type HooksFuncs struct {
	OnInit    func(obj Object) error
	OnRefresh func(obj Object) error
	OnRelease func(obj Object) error
}

func (h HooksFuncs) Init(obj Object) error    { return callHookFunc(h.OnInit, obj) }
func (h HooksFuncs) Refresh(obj Object) error { return callHookFunc(h.OnRefresh, obj) }
func (h HooksFuncs) Release(obj Object) error { return callHookFunc(h.OnRelease, obj) }

func callHookFunc(fn func(Object) error, obj Object) error {
	if fn == nil {
		return nil
	}
	return fn(obj)
}

// Manager resolves identities to live objects and propagates releases to
// dependents. A governor never outlives its manager.
type Manager interface {
	// Resolve looks up or materializes the object for id. ok is false when
	// the object is currently unavailable.
	Resolve(id identity.Identity) (obj Object, ok bool)

	// CascadeRelease releases every object bound below id.
	CascadeRelease(id identity.Identity)
}

// Option configures a Governor
type Option func(*Governor)

// WithLogger sets the logger. Defaults to logrus.New().
func WithLogger(logger *logrus.Logger) Option {
	return func(g *Governor) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithClock sets the time source used for interaction timestamps
func WithClock(c clock.Clock) Option {
	return func(g *Governor) {
		if c != nil {
			g.clock = c
		}
	}
}

// Governor controls one Bluetooth object. All methods are safe for concurrent use.
type Governor struct {
	id      identity.Identity
	kind    Kind
	manager Manager
	hooks   Hooks
	logger  *logrus.Logger
	log     *logrus.Entry
	clock   clock.Clock

	mu                     sync.Mutex
	object                 Object // non-nil iff ready
	releasing              bool   // an explicit release is cascading to dependents
	ready                  atomic.Bool
	lastInteracted         time.Time
	lastNotifiedInteracted time.Time

	listeners listenerRegistry
	events    eventQueue
}

// New creates a NOT_READY governor for id. The kind is derived from the identity.
func New(id identity.Identity, manager Manager, hooks Hooks, opts ...Option) *Governor {
	if hooks == nil {
		hooks = HooksFuncs{}
	}

	g := &Governor{
		id:      id,
		kind:    KindOf(id),
		manager: manager,
		hooks:   hooks,
		logger:  logrus.New(),
		clock:   clock.New(),
	}
	for _, opt := range opts {
		opt(g)
	}

	g.log = g.logger.WithFields(logrus.Fields{
		"identity": id.String(),
		"kind":     g.kind.String(),
	})
	return g
}

// Identity returns the logical address of the governed object
func (g *Governor) Identity() identity.Identity {
	return g.id
}

// Kind returns the object kind tag
func (g *Governor) Kind() Kind {
	return g.kind
}

// IsReady reports whether a live object is currently bound.
// It does not take the governor lock and may be called from anywhere.
func (g *Governor) IsReady() bool {
	return g.ready.Load()
}

// AddListener registers l. Adding the same listener twice has no effect.
func (g *Governor) AddListener(l Listener) {
	g.listeners.add(l)
}

// RemoveListener unregisters l. Removing an unknown listener has no effect.
func (g *Governor) RemoveListener(l Listener) {
	g.listeners.remove(l)
}

// UpdateLastInteracted records that the object was just used. Listeners are
// told on the next Refresh. Successive timestamps are strictly increasing.
func (g *Governor) UpdateLastInteracted() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if !g.lastInteracted.IsZero() && !now.After(g.lastInteracted) {
		now = g.lastInteracted.Add(time.Nanosecond)
	}
	g.lastInteracted = now
}

// LastInteracted returns the last interaction time; ok is false before the first one
func (g *Governor) LastInteracted() (at time.Time, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.lastInteracted, !g.lastInteracted.IsZero()
}

// Refresh synchronizes the governor with the live object.
//
// It never fails: hook failures release the object and surface only as a
// ReadyChanged(false) notification.
func (g *Governor) Refresh() {
	g.locked(g.refreshLocked)
	g.flush()
}

// Release tears down the live object, cascades the release to dependents and
// moves the governor to NOT_READY. It is a no-op when not ready.
func (g *Governor) Release() {
	g.release(nil, func(log *logrus.Entry) {
		log.Info("Releasing object on request")
	})
}

// Interact runs op against the live object and returns its result.
//
// If the governor is not ready, an *InteractionError matching ErrNotReady is
// returned and op is not called. If op fails (error or panic), the governor
// releases the object the same way Release does and then hands the original
// failure back to the caller.
//
// op runs without the governor lock held, so it may call IsReady,
// LastInteracted and the listener methods freely. While a release is
// cascading the governor counts as not ready.
func Interact[T any](g *Governor, label string, op func(obj Object) (T, error)) (T, error) {
	obj := g.current()
	if obj == nil {
		var zero T
		g.log.WithField("label", label).Debug("Interaction refused, object not ready")
		return zero, &InteractionError{Identity: g.id, Label: label, Reason: ReasonNotReady}
	}

	completed := false
	defer func() {
		if completed {
			return
		}
		rec := recover()
		g.abandon(obj, label, fmt.Errorf("interaction aborted: %v", rec))
		if rec != nil {
			panic(rec)
		}
	}()

	result, err := op(obj)
	completed = true
	if err != nil {
		g.abandon(obj, label, err)
	}
	return result, err
}

// Do is Interact for operations without a result
func Do(g *Governor, label string, op func(obj Object) error) error {
	_, err := Interact(g, label, func(obj Object) (struct{}, error) {
		return struct{}{}, op(obj)
	})
	return err
}

func (g *Governor) current() Object {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.releasing {
		return nil
	}
	return g.object
}

// abandon runs the release path after a failed interaction. If the object was
// already replaced or released by someone else, nothing happens.
func (g *Governor) abandon(obj Object, label string, cause error) {
	g.release(obj, func(log *logrus.Entry) {
		log.WithFields(logrus.Fields{
			"label": label,
			"error": cause,
		}).Warn("Interaction failed, releasing object")
	})
}

// release is the explicit release path: release hook, cascade, state, notify.
// When expected is non-nil only that object is released.
//
// The cascade runs without g.mu so that listeners of dependents, which are
// notified during the cascade, may call back into this governor. Meanwhile
// releasing keeps Refresh, Release and Interact away from the object.
func (g *Governor) release(expected Object, logRelease func(*logrus.Entry)) {
	g.mu.Lock()
	obj := g.object
	if obj == nil || g.releasing || (expected != nil && obj != expected) {
		g.mu.Unlock()
		return
	}
	logRelease(g.log)
	g.releasing = true
	g.releaseHookLocked(obj)
	g.mu.Unlock()

	func() {
		defer g.locked(func() {
			g.releasing = false
			if g.object == obj {
				g.object = nil
				g.setReadyLocked(false)
			}
		})
		g.manager.CascadeRelease(g.id)
	}()
	g.flush()
}

func (g *Governor) locked(fn func()) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn()
}

func (g *Governor) refreshLocked() {
	if g.releasing {
		g.log.Debug("Release in progress, skipping refresh")
		return
	}

	obj, ok := g.manager.Resolve(g.id)
	if !ok || obj == nil {
		if g.object != nil {
			g.log.Info("Object is no longer available")
			g.dropLocked(g.object)
		}
		return
	}

	wasReady := g.object != nil
	if err := g.bindLocked(obj, wasReady); err != nil {
		g.log.WithError(err).Warn("Refresh failed, dropping object")
		g.dropLocked(obj)
		return
	}

	g.object = obj
	if !wasReady {
		g.log.Info("Object is ready")
		g.setReadyLocked(true)
	}

	if !g.lastInteracted.Equal(g.lastNotifiedInteracted) {
		g.lastNotifiedInteracted = g.lastInteracted
		g.events.push(event{typ: eventLastInteracted, at: g.lastInteracted})
	}
}

func (g *Governor) bindLocked(obj Object, wasReady bool) error {
	if !wasReady {
		if err := g.callHook(hookInit, g.hooks.Init, obj); err != nil {
			return err
		}
	}
	return g.callHook(hookRefresh, g.hooks.Refresh, obj)
}

// dropLocked is the refresh failure path: release hook, clear, notify. No cascade.
func (g *Governor) dropLocked(obj Object) {
	g.releaseHookLocked(obj)

	wasReady := g.object != nil
	g.object = nil
	if wasReady {
		g.setReadyLocked(false)
	}
}

func (g *Governor) releaseHookLocked(obj Object) {
	if err := g.callHook(hookRelease, g.hooks.Release, obj); err != nil {
		g.log.WithError(err).Warn("Release hook failed, ignoring")
	}
}

func (g *Governor) setReadyLocked(ready bool) {
	g.ready.Store(ready)
	g.events.push(event{typ: eventReady, ready: ready})
}

// callHook runs a hook, converting errors and panics into *HookError
func (g *Governor) callHook(name string, hook func(Object) error, obj Object) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &HookError{Hook: name, Identity: g.id, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()

	if hookErr := hook(obj); hookErr != nil {
		return &HookError{Hook: name, Identity: g.id, Err: hookErr}
	}
	return nil
}

// flush delivers queued events. Must be called without g.mu held.
func (g *Governor) flush() {
	g.events.drain(func(ev event) {
		g.listeners.notify(ev, g.log)
	})
}

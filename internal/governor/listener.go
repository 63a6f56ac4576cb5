package governor

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Listener observes state transitions of a governor.
//
// Callbacks run on the goroutine that caused the transition, with no governor
// lock held. A listener may add or remove listeners, or call back into the
// governor, from inside a callback. Panics are recovered and logged; they
// never reach other listeners or the governor operation that fired them.
//
// Listeners are compared with == on removal, so implementations should be
// pointer types.
type Listener interface {
	ReadyChanged(ready bool)
	LastInteractedChanged(at time.Time)
}

// ListenerFuncs adapts plain functions to the Listener interface. Nil fields are skipped.
type ListenerFuncs struct {
	OnReady          func(ready bool)
	OnLastInteracted func(at time.Time)
}

func (f *ListenerFuncs) ReadyChanged(ready bool) {
	if f.OnReady != nil {
		f.OnReady(ready)
	}
}

func (f *ListenerFuncs) LastInteractedChanged(at time.Time) {
	if f.OnLastInteracted != nil {
		f.OnLastInteracted(at)
	}
}

// ----------------------------
// Registry
// ----------------------------

// listenerRegistry is a copy-on-write set. Readers take the current snapshot
// without locking; writers replace it.
type listenerRegistry struct {
	mu       sync.Mutex
	snapshot atomic.Pointer[[]Listener]
}

func (r *listenerRegistry) add(l Listener) bool {
	if l == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.list()
	for _, existing := range current {
		if existing == l {
			return false
		}
	}

	next := make([]Listener, len(current), len(current)+1)
	copy(next, current)
	next = append(next, l)
	r.snapshot.Store(&next)
	return true
}

func (r *listenerRegistry) remove(l Listener) bool {
	if l == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.list()
	for i, existing := range current {
		if existing != l {
			continue
		}
		next := make([]Listener, 0, len(current)-1)
		next = append(next, current[:i]...)
		next = append(next, current[i+1:]...)
		r.snapshot.Store(&next)
		return true
	}
	return false
}

func (r *listenerRegistry) list() []Listener {
	if p := r.snapshot.Load(); p != nil {
		return *p
	}
	return nil
}

// ----------------------------
// Events
// ----------------------------

type eventType int

const (
	eventReady eventType = iota
	eventLastInteracted
)

func (t eventType) String() string {
	if t == eventReady {
		return "ready"
	}
	return "last_interacted"
}

type event struct {
	typ   eventType
	ready bool
	at    time.Time
}

// eventQueue serializes delivery. Events are enqueued while the governor lock
// is held, so queue order equals state-change order; whichever goroutine finds
// the queue idle drains it after releasing the governor lock.
type eventQueue struct {
	mu       sync.Mutex
	pending  []event
	draining bool
}

func (q *eventQueue) push(ev event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

// drain delivers pending events in order. A nested call (a listener
// triggering another transition) returns immediately and its events are
// delivered by the outer loop.
func (q *eventQueue) drain(deliver func(event)) {
	q.mu.Lock()
	if q.draining {
		q.mu.Unlock()
		return
	}
	q.draining = true

	for len(q.pending) > 0 {
		ev := q.pending[0]
		q.pending[0] = event{}
		q.pending = q.pending[1:]
		q.mu.Unlock()

		deliver(ev)

		q.mu.Lock()
	}

	q.pending = nil
	q.draining = false
	q.mu.Unlock()
}

// ----------------------------
// Notifier
// ----------------------------

// notify fans ev out to every listener of the current snapshot
func (r *listenerRegistry) notify(ev event, logger *logrus.Entry) {
	for _, l := range r.list() {
		deliverTo(l, ev, logger)
	}
}

func deliverTo(l Listener, ev event, logger *logrus.Entry) {
	defer func() {
		if rec := recover(); rec != nil {
			logger.WithFields(logrus.Fields{
				"event": ev.typ.String(),
				"panic": rec,
			}).Warn("Governor listener failed, skipping")
		}
	}()

	switch ev.typ {
	case eventReady:
		l.ReadyChanged(ev.ready)
	case eventLastInteracted:
		l.LastInteractedChanged(ev.at)
	}
}

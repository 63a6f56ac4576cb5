package governor

import "time"

// Test-only access to governor internals. Production code goes through
// Refresh, Release and Interact.

// ForceReady binds obj without resolving or running hooks
func ForceReady(g *Governor, obj Object) {
	g.locked(func() {
		g.object = obj
		g.ready.Store(obj != nil)
	})
}

// SetLastInteracted overwrites the interaction timestamp
func SetLastInteracted(g *Governor, at time.Time) {
	g.locked(func() {
		g.lastInteracted = at
	})
}

// HeldObject returns the bound object, nil when not ready
func HeldObject(g *Governor) Object {
	return g.current()
}

// NotifyReady fans a ready event out to listeners directly
func NotifyReady(g *Governor, ready bool) {
	g.listeners.notify(event{typ: eventReady, ready: ready}, g.log)
}

// NotifyLastInteracted fans the current interaction timestamp out to listeners directly
func NotifyLastInteracted(g *Governor) {
	at, _ := g.LastInteracted()
	g.listeners.notify(event{typ: eventLastInteracted, at: at}, g.log)
}

// ListenerCount returns the number of registered listeners
func ListenerCount(g *Governor) int {
	return len(g.listeners.list())
}

package governor_test

import (
	"fmt"
	"sync"
	"time"

	"github.com/srg/blgov/internal/governor"
	"github.com/srg/blgov/internal/identity"
	"github.com/stretchr/testify/mock"
)

// callLog records calls across all mocks so tests can assert their global order
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (c *callLog) add(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, fmt.Sprintf(format, args...))
}

func (c *callLog) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.calls))
	copy(out, c.calls)
	return out
}

func (c *callLog) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = nil
}

type fakeObject struct {
	id identity.Identity
}

func (o *fakeObject) Identity() identity.Identity {
	return o.id
}

type mockManager struct {
	mock.Mock
	log *callLog
}

func (m *mockManager) Resolve(id identity.Identity) (governor.Object, bool) {
	m.log.add("manager.Resolve")
	args := m.Called(id)
	obj, _ := args.Get(0).(governor.Object)
	return obj, args.Bool(1)
}

func (m *mockManager) CascadeRelease(id identity.Identity) {
	m.log.add("manager.CascadeRelease")
	m.Called(id)
}

type mockHooks struct {
	mock.Mock
	log *callLog
}

func (h *mockHooks) Init(obj governor.Object) error {
	h.log.add("hooks.Init")
	return h.Called(obj).Error(0)
}

func (h *mockHooks) Refresh(obj governor.Object) error {
	h.log.add("hooks.Refresh")
	return h.Called(obj).Error(0)
}

func (h *mockHooks) Release(obj governor.Object) error {
	h.log.add("hooks.Release")
	return h.Called(obj).Error(0)
}

type mockListener struct {
	mock.Mock
	name string
	log  *callLog
}

func newMockListener(name string, log *callLog) *mockListener {
	l := &mockListener{name: name, log: log}
	l.On("ReadyChanged", mock.Anything).Return().Maybe()
	l.On("LastInteractedChanged", mock.Anything).Return().Maybe()
	return l
}

func (l *mockListener) ReadyChanged(ready bool) {
	l.log.add("%s.ReadyChanged(%t)", l.name, ready)
	l.Called(ready)
}

func (l *mockListener) LastInteractedChanged(at time.Time) {
	l.log.add("%s.LastInteractedChanged", l.name)
	l.Called(at)
}

// panicking replaces the default expectation of method with one that panics after being recorded
func (l *mockListener) panicking(method string) {
	for _, c := range l.ExpectedCalls {
		if c.Method == method {
			c.Unset()
			break
		}
	}
	l.On(method, mock.Anything).Run(func(mock.Arguments) {
		panic(fmt.Sprintf("%s exploded in %s", l.name, method))
	}).Maybe()
}

package services

import (
	"context"
	"sync"

	"github.com/AnshRaj112/econex-backend/internal/audit"
	"github.com/AnshRaj112/econex-backend/internal/presence"
	"github.com/google/uuid"
)

// sentEvent is one delivery recorded by testConn.
type sentEvent struct {
	Event   string
	Payload interface{}
}

type testConn struct {
	id   string
	fail bool

	mu   sync.Mutex
	sent []sentEvent
}

func newTestConn() *testConn { return &testConn{id: uuid.NewString()} }

func (c *testConn) ID() string { return c.id }

func (c *testConn) Send(event string, payload interface{}) error {
	if c.fail {
		return errConnGone
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, sentEvent{event, payload})
	return nil
}

func (c *testConn) events(name string) []sentEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []sentEvent
	for _, e := range c.sent {
		if e.Event == name {
			out = append(out, e)
		}
	}
	return out
}

var errConnGone = &connGoneError{}

type connGoneError struct{}

func (*connGoneError) Error() string { return "connection gone" }

var _ presence.Conn = (*testConn)(nil)

type memAudit struct {
	mu          sync.Mutex
	transitions []audit.RequestEvent
	dispatches  []audit.DispatchEntry
}

func (a *memAudit) RecordTransition(_ context.Context, ev audit.RequestEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transitions = append(a.transitions, ev)
	return nil
}

func (a *memAudit) RecordDispatch(_ context.Context, entries []audit.DispatchEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.dispatches = append(a.dispatches, entries...)
	return nil
}

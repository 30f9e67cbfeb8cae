package channel

import (
	"context"
	"sync"
)

// ScriptedConn is a canned realtime connection used by tests and by the
// offline transport mode. Tests drive it by emitting raw transport events.
type ScriptedConn struct {
	mu        sync.Mutex
	events    chan ConnEvent
	closed    bool
	closeOnce sync.Once
}

func NewScriptedConn() *ScriptedConn {
	return &ScriptedConn{events: make(chan ConnEvent, eventBuffer)}
}

func (c *ScriptedConn) Events() <-chan ConnEvent { return c.events }

func (c *ScriptedConn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.events)
	})
	return nil
}

// Emit delivers one raw transport event; it is a no-op after Close.
func (c *ScriptedConn) Emit(evt ConnEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.events <- evt
}

func (c *ScriptedConn) EmitMessage(payload map[string]any) {
	c.Emit(ConnEvent{Type: ConnEventMessage, Payload: payload})
}

func (c *ScriptedConn) EmitMode(speaking bool) {
	c.Emit(ConnEvent{Type: ConnEventMode, Speaking: speaking})
}

// Drop simulates a remote-initiated disconnect.
func (c *ScriptedConn) Drop(reason string) {
	c.Emit(ConnEvent{Type: ConnEventClosed, Reason: reason})
	_ = c.Close()
}

// ScriptedTransport hands out connections built by a factory, recording the
// credential each dial used.
type ScriptedTransport struct {
	mu          sync.Mutex
	factory     func(cred Credential) (Conn, error)
	credentials []Credential
}

func NewScriptedTransport(factory func(cred Credential) (Conn, error)) *ScriptedTransport {
	return &ScriptedTransport{factory: factory}
}

func (t *ScriptedTransport) Open(_ context.Context, cred Credential) (Conn, error) {
	t.mu.Lock()
	t.credentials = append(t.credentials, cred)
	t.mu.Unlock()
	return t.factory(cred)
}

// Credentials returns the credential used by each Open call, in order.
func (t *ScriptedTransport) Credentials() []Credential {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Credential, len(t.credentials))
	copy(out, t.credentials)
	return out
}

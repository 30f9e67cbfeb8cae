package channel

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucamori/intervox/internal/interview"
)

type staticProber struct{ err error }

func (p staticProber) Probe(context.Context) error { return p.err }

type staticIssuer struct {
	cred Credential
	err  error
}

func (i staticIssuer) IssueCredential(context.Context, string, interview.Config) (Credential, error) {
	return i.cred, i.err
}

func nextEvent(t *testing.T, m *Manager) Event {
	t.Helper()
	select {
	case evt := <-m.Events():
		return evt
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for channel event")
		return Event{}
	}
}

func newConnectedManager(t *testing.T) (*Manager, *ScriptedConn) {
	t.Helper()
	conn := NewScriptedConn()
	transport := NewScriptedTransport(func(Credential) (Conn, error) { return conn, nil })
	m := NewManager(transport, staticProber{}, staticIssuer{})
	if err := m.Open(context.Background(), Credential{Token: "tok"}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if evt := nextEvent(t, m); evt.Type != EventConnected {
		t.Fatalf("first event = %q, want %q", evt.Type, EventConnected)
	}
	return m, conn
}

func TestOpenTransitionsToConnected(t *testing.T) {
	m, _ := newConnectedManager(t)
	if got := m.State(); got != StateConnected {
		t.Fatalf("State() = %q, want %q", got, StateConnected)
	}
	if m.IsSpeaking() {
		t.Fatalf("IsSpeaking() = true right after connect")
	}
	if !m.IsListening() {
		t.Fatalf("IsListening() = false while connected and silent")
	}
}

func TestOpenFailureLandsOnDisconnected(t *testing.T) {
	transport := NewScriptedTransport(func(Credential) (Conn, error) {
		return nil, errors.New("dial refused")
	})
	m := NewManager(transport, staticProber{}, staticIssuer{})

	err := m.Open(context.Background(), Credential{Token: "tok"})
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("Open() error = %v, want *ConnectionError", err)
	}
	if got := m.State(); got != StateDisconnected {
		t.Fatalf("State() = %q, want %q", got, StateDisconnected)
	}
}

func TestOpenWhileConnectingRejected(t *testing.T) {
	dialStarted := make(chan struct{})
	release := make(chan struct{})
	transport := NewScriptedTransport(func(Credential) (Conn, error) {
		close(dialStarted)
		<-release
		return NewScriptedConn(), nil
	})
	m := NewManager(transport, staticProber{}, staticIssuer{})

	firstDone := make(chan error, 1)
	go func() { firstDone <- m.Open(context.Background(), Credential{Token: "tok"}) }()
	<-dialStarted

	if err := m.Open(context.Background(), Credential{Token: "tok"}); !errors.Is(err, ErrAlreadyConnecting) {
		t.Fatalf("second Open() error = %v, want ErrAlreadyConnecting", err)
	}
	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
}

func TestCloseIdempotentFromAnyState(t *testing.T) {
	// Idle.
	m := NewManager(NewScriptedTransport(func(Credential) (Conn, error) { return NewScriptedConn(), nil }), staticProber{}, staticIssuer{})
	if err := m.Close(); err != nil {
		t.Fatalf("Close() from idle error = %v", err)
	}
	if got := m.State(); got != StateDisconnected {
		t.Fatalf("State() = %q, want %q", got, StateDisconnected)
	}

	// Connected, then closed twice.
	m, _ = newConnectedManager(t)
	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	evt := nextEvent(t, m)
	if evt.Type != EventDisconnected || !evt.UserInitiated {
		t.Fatalf("event after Close = %+v, want user-initiated disconnect", evt)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	// No further disconnect events leak from the dead pump.
	select {
	case extra := <-m.Events():
		t.Fatalf("unexpected extra event %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCloseWhileConnectingAborts(t *testing.T) {
	dialStarted := make(chan struct{})
	release := make(chan struct{})
	transport := NewScriptedTransport(func(Credential) (Conn, error) {
		close(dialStarted)
		<-release
		return NewScriptedConn(), nil
	})
	m := NewManager(transport, staticProber{}, staticIssuer{})

	done := make(chan error, 1)
	go func() { done <- m.Open(context.Background(), Credential{Token: "tok"}) }()
	<-dialStarted

	if err := m.Close(); err != nil {
		t.Fatalf("Close() during connect error = %v", err)
	}
	close(release)
	if err := <-done; !errors.Is(err, ErrConnectAborted) {
		t.Fatalf("Open() error = %v, want ErrConnectAborted", err)
	}
	if got := m.State(); got != StateDisconnected {
		t.Fatalf("State() = %q, want %q", got, StateDisconnected)
	}
}

func TestUnexpectedDropIsNotUserInitiated(t *testing.T) {
	m, conn := newConnectedManager(t)
	conn.Drop("upstream hangup")

	evt := nextEvent(t, m)
	if evt.Type != EventDisconnected {
		t.Fatalf("event = %q, want %q", evt.Type, EventDisconnected)
	}
	if evt.UserInitiated {
		t.Fatalf("drop classified as user-initiated")
	}
	if evt.Reason != "upstream hangup" {
		t.Fatalf("Reason = %q, want %q", evt.Reason, "upstream hangup")
	}
	if got := m.State(); got != StateDisconnected {
		t.Fatalf("State() = %q, want %q", got, StateDisconnected)
	}
}

func TestSpeakingForcedFalseOutsideConnected(t *testing.T) {
	m, conn := newConnectedManager(t)
	conn.EmitMode(true)
	if evt := nextEvent(t, m); evt.Type != EventMode || !evt.Speaking {
		t.Fatalf("event = %+v, want speaking mode change", evt)
	}
	if !m.IsSpeaking() {
		t.Fatalf("IsSpeaking() = false after speaking mode change")
	}
	if m.IsListening() {
		t.Fatalf("IsListening() = true while agent is speaking")
	}

	_ = m.Close()
	if m.IsSpeaking() {
		t.Fatalf("IsSpeaking() = true after leaving Connected")
	}
}

func TestMessagesFlowThrough(t *testing.T) {
	m, conn := newConnectedManager(t)
	conn.EmitMessage(map[string]any{"type": "agent_response"})

	evt := nextEvent(t, m)
	if evt.Type != EventMessage {
		t.Fatalf("event = %q, want %q", evt.Type, EventMessage)
	}
	if evt.Payload["type"] != "agent_response" {
		t.Fatalf("payload = %+v", evt.Payload)
	}
}

func TestMicProbeFailureWrapsPermissionDenied(t *testing.T) {
	m := NewManager(nil, staticProber{err: errors.New("device busy")}, staticIssuer{})
	err := m.RequestMicrophoneAccess(context.Background())
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("RequestMicrophoneAccess() error = %v, want ErrPermissionDenied", err)
	}
}

func TestSaturatedBufferCountsDrops(t *testing.T) {
	m, conn := newConnectedManager(t)

	// Nobody consumes; once the buffer saturates, further events are dropped
	// and counted instead of blocking the pump.
	for i := 0; i < eventBuffer+50; i++ {
		conn.EmitMessage(map[string]any{"type": "agent_response", "seq": i})
	}

	deadline := time.Now().Add(2 * time.Second)
	for m.DroppedEvents() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("DroppedEvents() = 0 after saturating the buffer")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// The stream itself stays live.
	if evt := nextEvent(t, m); evt.Type != EventMessage {
		t.Fatalf("event = %q, want %q", evt.Type, EventMessage)
	}
}

func TestReopenAfterDrop(t *testing.T) {
	conns := []*ScriptedConn{NewScriptedConn(), NewScriptedConn()}
	dial := 0
	transport := NewScriptedTransport(func(Credential) (Conn, error) {
		c := conns[dial]
		dial++
		return c, nil
	})
	m := NewManager(transport, staticProber{}, staticIssuer{})

	if err := m.Open(context.Background(), Credential{Token: "one"}); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	nextEvent(t, m) // connected
	conns[0].Drop("network blip")
	nextEvent(t, m) // disconnected

	if err := m.Open(context.Background(), Credential{Token: "two"}); err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	if evt := nextEvent(t, m); evt.Type != EventConnected {
		t.Fatalf("event = %q, want %q", evt.Type, EventConnected)
	}
	creds := transport.Credentials()
	if len(creds) != 2 || creds[1].Token != "two" {
		t.Fatalf("credentials = %+v", creds)
	}
}

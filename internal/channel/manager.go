package channel

import (
	"context"
	"fmt"
	"sync"

	"github.com/lucamori/intervox/internal/interview"
)

const eventBuffer = 256

// Manager turns user intent into an established channel and turns raw
// transport signals into a clean state stream. One Manager serves one session
// at a time; it survives reconnects (the event stream spans connections).
type Manager struct {
	transport Transport
	prober    MicrophoneProber
	issuer    CredentialIssuer

	mu        sync.Mutex
	state     State
	speaking  bool
	userEnded bool
	conn      Conn
	gen       uint64
	dropped   uint64

	events chan Event
}

func NewManager(transport Transport, prober MicrophoneProber, issuer CredentialIssuer) *Manager {
	return &Manager{
		transport: transport,
		prober:    prober,
		issuer:    issuer,
		state:     StateIdle,
		events:    make(chan Event, eventBuffer),
	}
}

// Events is the manager's outbound signal stream. It is never closed; it goes
// quiet when no connection is live.
func (m *Manager) Events() <-chan Event {
	return m.events
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// IsSpeaking reports whether the remote agent is emitting audio. It can only
// be true while the channel is Connected.
func (m *Manager) IsSpeaking() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.speaking
}

func (m *Manager) IsListening() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected && !m.speaking
}

// RequestMicrophoneAccess acquires and immediately releases a probe capture
// stream. It must succeed before any credential request; failure leaves the
// connection state untouched.
func (m *Manager) RequestMicrophoneAccess(ctx context.Context) error {
	if m.prober == nil {
		return nil
	}
	if err := m.prober.Probe(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}
	return nil
}

// AcquireCredential asks the issuing collaborator for a short-lived token or
// signed URL authorizing one connection.
func (m *Manager) AcquireCredential(ctx context.Context, agentID string, cfg interview.Config) (Credential, error) {
	return m.issuer.IssueCredential(ctx, agentID, cfg)
}

// Open dials the channel. Idle/Disconnected transition through Connecting to
// Connected; failure lands on Disconnected with a ConnectionError. A second
// Open while Connecting is rejected.
func (m *Manager) Open(ctx context.Context, cred Credential) error {
	m.mu.Lock()
	switch m.state {
	case StateConnecting:
		m.mu.Unlock()
		return ErrAlreadyConnecting
	case StateConnected:
		m.mu.Unlock()
		return ErrAlreadyConnected
	}
	m.state = StateConnecting
	m.speaking = false
	m.userEnded = false
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	conn, err := m.transport.Open(ctx, cred)

	m.mu.Lock()
	if m.gen != gen {
		// Close raced the dial. It already drove the state to Disconnected;
		// just tear down whatever the dial produced.
		m.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return ErrConnectAborted
	}
	if err != nil {
		m.state = StateDisconnected
		m.mu.Unlock()
		return &ConnectionError{Reason: "open_failed", Detail: err.Error()}
	}
	m.conn = conn
	m.state = StateConnected
	m.mu.Unlock()

	m.emit(Event{Type: EventConnected})
	go m.pump(gen, conn)
	return nil
}

// Close is idempotent and safe from any state, including Connecting. The
// user-initiated flag is set synchronously before teardown begins so the
// asynchronous disconnect that follows is never classified as unexpected.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.userEnded = true
	conn := m.conn
	m.conn = nil
	wasConnected := m.state == StateConnected
	m.state = StateDisconnected
	m.speaking = false
	m.gen++
	m.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	if wasConnected {
		m.emit(Event{Type: EventDisconnected, Reason: "user_ended", UserInitiated: true})
	}
	return nil
}

func (m *Manager) pump(gen uint64, conn Conn) {
	for evt := range conn.Events() {
		switch evt.Type {
		case ConnEventMessage:
			if m.staleGen(gen) {
				return
			}
			m.emit(Event{Type: EventMessage, Payload: evt.Payload})
		case ConnEventMode:
			m.mu.Lock()
			stale := m.gen != gen || m.state != StateConnected
			if !stale {
				m.speaking = evt.Speaking
			}
			m.mu.Unlock()
			if !stale {
				m.emit(Event{Type: EventMode, Speaking: evt.Speaking})
			}
		case ConnEventError:
			if m.staleGen(gen) {
				return
			}
			m.emit(Event{Type: EventError, Detail: evt.Detail})
		case ConnEventClosed:
			m.finishDisconnect(gen, evt.Reason)
			return
		}
	}
	m.finishDisconnect(gen, "channel closed")
}

func (m *Manager) finishDisconnect(gen uint64, reason string) {
	m.mu.Lock()
	if m.gen != gen {
		// Close already accounted for this connection.
		m.mu.Unlock()
		return
	}
	user := m.userEnded
	m.state = StateDisconnected
	m.speaking = false
	m.conn = nil
	m.mu.Unlock()

	m.emit(Event{Type: EventDisconnected, Reason: reason, UserInitiated: user})
}

func (m *Manager) staleGen(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen != gen
}

// DroppedEvents counts events discarded because the consumer let the buffer
// saturate. A non-zero count on a live session means transcript loss.
func (m *Manager) DroppedEvents() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

func (m *Manager) emit(evt Event) {
	select {
	case m.events <- evt:
	default:
		// Keep the pump non-blocking; drop if the consumer stalled far enough
		// to saturate the buffer, and make the loss observable.
		m.mu.Lock()
		m.dropped++
		m.mu.Unlock()
	}
}

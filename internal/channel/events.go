// Package channel owns the lifecycle of the realtime duplex channel to the
// remote interview agent: microphone permission, credential acquisition,
// connect/teardown and the classification of disconnects. The session layer
// consumes a single event stream instead of registering callbacks, so every
// transition is observable and testable against a scripted transport.
package channel

import (
	"context"

	"github.com/lucamori/intervox/internal/interview"
)

// State is the mutually-exclusive connection lifecycle state.
type State string

const (
	StateIdle         State = "idle"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// EventType identifies a signal delivered on the manager's event stream.
type EventType string

const (
	EventConnected    EventType = "connected"
	EventDisconnected EventType = "disconnected"
	EventMode         EventType = "mode"
	EventMessage      EventType = "message"
	EventError        EventType = "error"
)

// Event is one asynchronous signal from the realtime channel. Exactly one
// Connected is delivered per successful Open and at most one Disconnected per
// connection; UserInitiated distinguishes a requested teardown from a drop.
type Event struct {
	Type          EventType
	Reason        string
	UserInitiated bool
	Speaking      bool
	Payload       map[string]any
	Detail        string
}

// Credential authorizes one channel connection. Exactly one of Token or
// SignedURL is populated by a well-formed issuance response.
type Credential struct {
	Token     string
	SignedURL string
}

// ConnEventType identifies raw transport signals before the manager
// classifies them.
type ConnEventType string

const (
	ConnEventMessage ConnEventType = "message"
	ConnEventMode    ConnEventType = "mode"
	ConnEventError   ConnEventType = "error"
	ConnEventClosed  ConnEventType = "closed"
)

type ConnEvent struct {
	Type     ConnEventType
	Payload  map[string]any
	Speaking bool
	Reason   string
	Detail   string
}

// Conn is one live connection. Events terminates (channel closed) after a
// ConnEventClosed or once the underlying transport is gone.
type Conn interface {
	Events() <-chan ConnEvent
	Close() error
}

// Transport dials the realtime channel with an issued credential.
type Transport interface {
	Open(ctx context.Context, cred Credential) (Conn, error)
}

// MicrophoneProber acquires and immediately releases a probe capture stream,
// surfacing the permission prompt before any credential is requested.
type MicrophoneProber interface {
	Probe(ctx context.Context) error
}

// CredentialIssuer requests a short-lived connection credential from the
// token-issuing collaborator.
type CredentialIssuer interface {
	IssueCredential(ctx context.Context, agentID string, cfg interview.Config) (Credential, error)
}

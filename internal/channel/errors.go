package channel

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrPermissionDenied aborts start before any credential is requested.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrAlreadyConnecting rejects a second Open while one is in flight.
	ErrAlreadyConnecting = errors.New("connection attempt already in progress")

	// ErrAlreadyConnected rejects Open on a live channel.
	ErrAlreadyConnected = errors.New("channel already connected")

	// ErrConnectAborted reports an Open unblocked by a concurrent Close.
	ErrConnectAborted = errors.New("connection attempt aborted")
)

// ConnectionError reports a channel that failed to open or dropped without a
// user-initiated Close. It is recoverable: the caller may re-invoke Open.
type ConnectionError struct {
	Reason string
	Detail string
}

func (e *ConnectionError) Error() string {
	if strings.TrimSpace(e.Detail) == "" {
		return fmt.Sprintf("connection error (%s)", e.Reason)
	}
	return fmt.Sprintf("connection error (%s): %s", e.Reason, e.Detail)
}

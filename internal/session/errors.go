package session

import "errors"

// ErrEnding rejects Start while a finalize pass is in flight.
var ErrEnding = errors.New("session is finalizing")

// DisconnectGuidance is the user-facing message for a channel that dropped
// without a requested teardown.
const DisconnectGuidance = "The interview disconnected unexpectedly. Please try again."

package interview

import "time"

// Context carries the mutable state of one interview attempt: the chosen
// config, the live transcript log, the persisted session id (empty for guest
// sessions) and the wall-clock start. It survives channel drops so a retried
// connection keeps conversing into the same transcript.
type Context struct {
	Config    Config
	Log       *Log
	SessionID string
	Questions []string
	StartedAt time.Time
}

func NewContext(cfg Config) *Context {
	return &Context{
		Config: cfg,
		Log:    NewLog(),
	}
}

// MarkStarted stamps the start time once; retries after a disconnect keep the
// original timestamp so the final duration covers the whole attempt.
func (c *Context) MarkStarted(now time.Time) {
	if c.StartedAt.IsZero() {
		c.StartedAt = now
	}
}

// Clear resets the context for reuse by a fresh attempt.
func (c *Context) Clear() {
	c.Config = Config{}
	c.Log = NewLog()
	c.SessionID = ""
	c.Questions = nil
	c.StartedAt = time.Time{}
}

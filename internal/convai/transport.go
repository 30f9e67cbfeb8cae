package convai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/lucamori/intervox/internal/channel"
)

const connEventBuffer = 256

type TransportConfig struct {
	// WSBaseURL is the dial target for token credentials. Signed-URL
	// credentials carry their own complete target.
	WSBaseURL string
	AgentID   string
}

// Transport dials the conversational-agent websocket. A signed URL is used
// verbatim; a bare token is appended to the base conversation endpoint.
type Transport struct {
	cfg TransportConfig
}

func NewTransport(cfg TransportConfig) *Transport {
	if strings.TrimSpace(cfg.WSBaseURL) == "" {
		cfg.WSBaseURL = "wss://api.elevenlabs.io"
	}
	return &Transport{cfg: cfg}
}

func (t *Transport) Open(ctx context.Context, cred channel.Credential) (channel.Conn, error) {
	target, err := t.dialURL(cred)
	if err != nil {
		return nil, err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial conversation websocket: %w", err)
	}

	c := &wsConn{conn: conn, events: make(chan channel.ConnEvent, connEventBuffer)}
	go c.readLoop()
	return c, nil
}

func (t *Transport) dialURL(cred channel.Credential) (string, error) {
	if s := strings.TrimSpace(cred.SignedURL); s != "" && strings.TrimSpace(cred.Token) == "" {
		return s, nil
	}
	u, err := url.Parse(strings.TrimRight(t.cfg.WSBaseURL, "/") + "/v1/convai/conversation")
	if err != nil {
		return "", err
	}
	q := u.Query()
	if t.cfg.AgentID != "" {
		q.Set("agent_id", t.cfg.AgentID)
	}
	token := strings.TrimSpace(cred.Token)
	if token == "" {
		return "", fmt.Errorf("credential carries neither token nor signed URL")
	}
	q.Set("conversation_token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type wsConn struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	closeOnce sync.Once
	events    chan channel.ConnEvent
}

func (c *wsConn) Events() <-chan channel.ConnEvent { return c.events }

func (c *wsConn) Close() error {
	var retErr error
	c.closeOnce.Do(func() {
		retErr = c.conn.Close()
		close(c.events)
	})
	return retErr
}

func (c *wsConn) safeClose() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
		close(c.events)
	})
}

func (c *wsConn) writeJSON(payload map[string]any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(payload)
}

func (c *wsConn) readLoop() {
	defer c.safeClose()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.emitClosed(err)
			return
		}
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}

		switch messageType(raw) {
		case "ping":
			_ = c.writeJSON(map[string]any{"type": "pong", "event_id": raw["event_id"]})
		case "mode":
			c.events <- channel.ConnEvent{Type: channel.ConnEventMode, Speaking: modeIsSpeaking(raw)}
		case "error":
			c.events <- channel.ConnEvent{Type: channel.ConnEventError, Detail: errorDetail(raw)}
		default:
			// Transcript, response and unrecognized payloads all flow through
			// as-is; the normalizer decides what becomes a transcript entry.
			c.events <- channel.ConnEvent{Type: channel.ConnEventMessage, Payload: raw}
		}
	}
}

func (c *wsConn) emitClosed(err error) {
	reason := "remote closed"
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Text != "" {
		reason = closeErr.Text
	}
	select {
	case c.events <- channel.ConnEvent{Type: channel.ConnEventClosed, Reason: reason}:
	default:
	}
}

func messageType(raw map[string]any) string {
	if s, ok := raw["type"].(string); ok && s != "" {
		return s
	}
	if s, ok := raw["message_type"].(string); ok {
		return s
	}
	return ""
}

func modeIsSpeaking(raw map[string]any) bool {
	if nested, ok := raw["mode_event"].(map[string]any); ok {
		if s, ok := nested["mode"].(string); ok {
			return s == "speaking"
		}
	}
	if s, ok := raw["mode"].(string); ok {
		return s == "speaking"
	}
	if b, ok := raw["speaking"].(bool); ok {
		return b
	}
	return false
}

func errorDetail(raw map[string]any) string {
	if s, ok := raw["error"].(string); ok && s != "" {
		return s
	}
	if s, ok := raw["detail"].(string); ok {
		return s
	}
	return "unspecified transport error"
}

// Package protocol defines the conversational-agent websocket frames the
// simulator emits and the replies it understands. The live transport parses
// frames defensively from raw maps; these types are the well-formed side of
// that contract.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType identifies websocket payload variants.
type MessageType string

const (
	TypeUserTranscript MessageType = "user_transcript"
	TypeAgentResponse  MessageType = "agent_response"
	TypeAudio          MessageType = "audio"
	TypeMode           MessageType = "mode"
	TypePing           MessageType = "ping"
	TypePong           MessageType = "pong"
	TypeError          MessageType = "error"
)

var ErrUnsupportedType = errors.New("unsupported message type")

type Envelope struct {
	Type MessageType `json:"type"`
}

// UserTranscript carries a committed user utterance.
type UserTranscript struct {
	Type  MessageType `json:"type"`
	Event struct {
		UserTranscript string `json:"user_transcript"`
	} `json:"user_transcription_event"`
}

func NewUserTranscript(text string) UserTranscript {
	m := UserTranscript{Type: TypeUserTranscript}
	m.Event.UserTranscript = text
	return m
}

// AgentResponse carries one finished agent utterance.
type AgentResponse struct {
	Type  MessageType `json:"type"`
	Event struct {
		AgentResponse string `json:"agent_response"`
	} `json:"agent_response_event"`
}

func NewAgentResponse(text string) AgentResponse {
	m := AgentResponse{Type: TypeAgentResponse}
	m.Event.AgentResponse = text
	return m
}

// AudioChunk is agent audio; the orchestrator never transcribes it.
type AudioChunk struct {
	Type  MessageType `json:"type"`
	Event struct {
		AudioBase64 string `json:"audio_base_64"`
	} `json:"audio_event"`
}

func NewAudioChunk(audioBase64 string) AudioChunk {
	m := AudioChunk{Type: TypeAudio}
	m.Event.AudioBase64 = audioBase64
	return m
}

// ModeChange flips the agent between speaking and listening.
type ModeChange struct {
	Type  MessageType `json:"type"`
	Event struct {
		Mode string `json:"mode"`
	} `json:"mode_event"`
}

func NewModeChange(speaking bool) ModeChange {
	m := ModeChange{Type: TypeMode}
	if speaking {
		m.Event.Mode = "speaking"
	} else {
		m.Event.Mode = "listening"
	}
	return m
}

type Ping struct {
	Type    MessageType `json:"type"`
	EventID int         `json:"event_id"`
}

type Pong struct {
	Type    MessageType `json:"type"`
	EventID any         `json:"event_id"`
}

type ErrorEvent struct {
	Type  MessageType `json:"type"`
	Error string      `json:"error"`
}

// ParseClientMessage decodes a frame sent by the connected client. The
// simulator only accepts pongs; everything else is a contract violation.
func ParseClientMessage(raw []byte) (any, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	switch env.Type {
	case TypePong:
		var msg Pong
		if err := json.Unmarshal(raw, &msg); err != nil {
			return nil, fmt.Errorf("decode pong: %w", err)
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedType, env.Type)
	}
}

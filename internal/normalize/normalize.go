// Package normalize maps loosely-typed realtime agent payloads into canonical
// transcript entries. The upstream channel does not guarantee a single schema
// across payload revisions, so extraction is defensive: an ordered chain of
// named extractors is tried against the raw key/value payload and the first
// match wins. Unknown categories are ignored, never errors.
package normalize

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/lucamori/intervox/internal/interview"
)

// Extractor attempts to produce a transcript entry from one raw payload.
// The chain is deliberately open-ended: new payload revisions get a new
// extractor appended, existing ones are never edited.
type Extractor struct {
	Name string
	Fn   func(map[string]any) (interview.TranscriptEntry, bool)
}

var defaultChain = []Extractor{
	{Name: "user_transcript", Fn: extractUserTranscript},
	{Name: "agent_response", Fn: extractAgentResponse},
	{Name: "tagged_transcript", Fn: extractTaggedTranscript},
	{Name: "unified_message", Fn: extractUnifiedMessage},
}

// Normalize converts a raw channel payload into zero or one transcript
// entries. Audio chunks, debug events and unrecognized categories yield no
// entry; blank text after trimming is discarded in every branch.
func Normalize(payload map[string]any) (interview.TranscriptEntry, bool) {
	if payload == nil {
		return interview.TranscriptEntry{}, false
	}
	for _, ex := range defaultChain {
		if entry, ok := ex.Fn(payload); ok {
			return entry, true
		}
	}
	return interview.TranscriptEntry{}, false
}

func extractUserTranscript(payload map[string]any) (interview.TranscriptEntry, bool) {
	if category(payload) != "user_transcript" {
		return interview.TranscriptEntry{}, false
	}
	text := firstNonBlank(
		nestedString(payload, "user_transcription_event", "user_transcript"),
		nestedString(payload, "user_transcription_event", "text"),
		nestedString(payload, "user_transcript_event", "user_transcript"),
		nestedString(payload, "user_transcript_event", "text"),
		asString(payload["user_transcript"]),
		asString(payload["text"]),
	)
	if text == "" {
		return interview.TranscriptEntry{}, false
	}
	return interview.TranscriptEntry{Speaker: interview.SpeakerUser, Text: text}, true
}

func extractAgentResponse(payload map[string]any) (interview.TranscriptEntry, bool) {
	if category(payload) != "agent_response" {
		return interview.TranscriptEntry{}, false
	}
	text := firstNonBlank(
		nestedString(payload, "agent_response_event", "agent_response"),
		nestedString(payload, "agent_response_event", "text"),
		nestedString(payload, "agent_response_correction_event", "corrected_agent_response"),
		asString(payload["agent_response"]),
		asString(payload["text"]),
	)
	if text == "" {
		return interview.TranscriptEntry{}, false
	}
	return interview.TranscriptEntry{Speaker: interview.SpeakerAI, Text: text}, true
}

func extractTaggedTranscript(payload map[string]any) (interview.TranscriptEntry, bool) {
	if category(payload) != "transcript" {
		return interview.TranscriptEntry{}, false
	}
	role := strings.ToLower(strings.TrimSpace(asString(payload["role"])))
	if role == "" {
		return interview.TranscriptEntry{}, false
	}
	text := firstNonBlank(
		asString(payload["text"]),
		asString(payload["message"]),
	)
	if text == "" {
		return interview.TranscriptEntry{}, false
	}
	speaker := interview.SpeakerUser
	if role == "agent" {
		speaker = interview.SpeakerAI
	}
	return interview.TranscriptEntry{Speaker: speaker, Text: text}, true
}

func extractUnifiedMessage(payload map[string]any) (interview.TranscriptEntry, bool) {
	text := firstNonBlank(
		asString(payload["message"]),
		asString(payload["text"]),
	)
	role := strings.ToLower(strings.TrimSpace(firstNonBlank(
		asString(payload["role"]),
		asString(payload["source"]),
	)))
	if text == "" || role == "" {
		return interview.TranscriptEntry{}, false
	}
	speaker := interview.SpeakerUser
	if role == "agent" || role == "ai" {
		speaker = interview.SpeakerAI
	}
	return interview.TranscriptEntry{Speaker: speaker, Text: text}, true
}

// category reads the declared payload kind. Older payload revisions used
// message_type instead of type.
func category(payload map[string]any) string {
	if t := strings.TrimSpace(asString(payload["type"])); t != "" {
		return t
	}
	return strings.TrimSpace(asString(payload["message_type"]))
}

func nestedString(payload map[string]any, objKey, key string) string {
	obj, ok := payload[objKey].(map[string]any)
	if !ok {
		return ""
	}
	return asString(obj[key])
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

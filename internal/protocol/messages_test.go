package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestFrameShapes(t *testing.T) {
	tests := []struct {
		name string
		msg  any
		want string
	}{
		{
			name: "user transcript",
			msg:  NewUserTranscript("I would shard by tenant."),
			want: `{"type":"user_transcript","user_transcription_event":{"user_transcript":"I would shard by tenant."}}`,
		},
		{
			name: "agent response",
			msg:  NewAgentResponse("How would you handle hot keys?"),
			want: `{"type":"agent_response","agent_response_event":{"agent_response":"How would you handle hot keys?"}}`,
		},
		{
			name: "speaking mode",
			msg:  NewModeChange(true),
			want: `{"type":"mode","mode_event":{"mode":"speaking"}}`,
		},
		{
			name: "listening mode",
			msg:  NewModeChange(false),
			want: `{"type":"mode","mode_event":{"mode":"listening"}}`,
		},
		{
			name: "audio chunk",
			msg:  NewAudioChunk("AQID"),
			want: `{"type":"audio","audio_event":{"audio_base_64":"AQID"}}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("frame = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseClientMessagePong(t *testing.T) {
	msg, err := ParseClientMessage([]byte(`{"type":"pong","event_id":3}`))
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}
	pong, ok := msg.(Pong)
	if !ok {
		t.Fatalf("message type = %T, want Pong", msg)
	}
	if pong.EventID != float64(3) {
		t.Fatalf("EventID = %v", pong.EventID)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

package interview

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{Role: "Backend Engineer", Level: LevelIntermediate, TechStack: []string{"Go"}, QuestionCount: 5}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", nil, false},
		{"blank role", func(c *Config) { c.Role = "  " }, true},
		{"unknown level", func(c *Config) { c.Level = "Expert" }, true},
		{"empty stack", func(c *Config) { c.TechStack = nil }, true},
		{"blank stack entry", func(c *Config) { c.TechStack = []string{"Go", " "} }, true},
		{"count below minimum", func(c *Config) { c.QuestionCount = 2 }, true},
		{"count above maximum", func(c *Config) { c.QuestionCount = 16 }, true},
		{"count at bounds", func(c *Config) { c.QuestionCount = MaxQuestionCount }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWeightedOverall(t *testing.T) {
	tests := []struct {
		tech, comm, ps int
		want           int
	}{
		{100, 100, 100, 100},
		{0, 0, 0, 0},
		{80, 70, 60, 71},
		{50, 100, 100, 80},
	}
	for _, tt := range tests {
		if got := WeightedOverall(tt.tech, tt.comm, tt.ps); got != tt.want {
			t.Fatalf("WeightedOverall(%d, %d, %d) = %d, want %d", tt.tech, tt.comm, tt.ps, got, tt.want)
		}
	}
}

func TestLogAppendStampsAndPreservesOrder(t *testing.T) {
	l := NewLog()
	stamped := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	l.Append(TranscriptEntry{Speaker: SpeakerAI, Text: "First question."})
	l.Append(TranscriptEntry{Speaker: SpeakerUser, Text: "An answer.", Timestamp: stamped})
	l.Append(TranscriptEntry{Speaker: SpeakerUser, Text: "An answer.", Timestamp: stamped})

	if l.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (duplicates are valid)", l.Len())
	}
	got := l.Snapshot()
	if got[0].Timestamp.IsZero() {
		t.Fatalf("first entry not stamped at append time")
	}
	if !got[1].Timestamp.Equal(stamped) {
		t.Fatalf("provided timestamp = %v, want %v", got[1].Timestamp, stamped)
	}
	if got[0].Speaker != SpeakerAI || got[1].Speaker != SpeakerUser {
		t.Fatalf("order = %v %v", got[0].Speaker, got[1].Speaker)
	}
}

func TestLogSnapshotIsACopy(t *testing.T) {
	l := NewLog()
	l.Append(TranscriptEntry{Speaker: SpeakerAI, Text: "Original."})

	snap := l.Snapshot()
	snap[0].Text = "Mutated."

	if got := l.Snapshot()[0].Text; got != "Original." {
		t.Fatalf("stored entry = %q after mutating a snapshot", got)
	}
}

func TestContextMarkStartedKeepsFirstTimestamp(t *testing.T) {
	c := NewContext(validConfig())
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	c.MarkStarted(first)
	c.MarkStarted(first.Add(time.Minute))

	if !c.StartedAt.Equal(first) {
		t.Fatalf("StartedAt = %v, want the first mark %v", c.StartedAt, first)
	}
}

func TestContextClearResetsEverything(t *testing.T) {
	c := NewContext(validConfig())
	c.SessionID = "sess-1"
	c.Questions = []string{"Why Go?"}
	c.MarkStarted(time.Now().UTC())
	c.Log.Append(TranscriptEntry{Speaker: SpeakerUser, Text: "Hello."})

	c.Clear()

	if c.SessionID != "" || c.Questions != nil || !c.StartedAt.IsZero() {
		t.Fatalf("Clear() left state behind: %+v", c)
	}
	if c.Config.Role != "" {
		t.Fatalf("Config not cleared: %+v", c.Config)
	}
	if c.Log.Len() != 0 {
		t.Fatalf("Log not reset, Len() = %d", c.Log.Len())
	}
}

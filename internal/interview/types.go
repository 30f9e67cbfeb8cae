package interview

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Speaker identifies who produced a transcript entry.
type Speaker string

const (
	SpeakerAI   Speaker = "AI"
	SpeakerUser Speaker = "User"
)

// Level grades the seniority an interview is calibrated for.
type Level string

const (
	LevelBeginner     Level = "Beginner"
	LevelIntermediate Level = "Intermediate"
	LevelAdvanced     Level = "Advanced"
)

const (
	MinQuestionCount = 3
	MaxQuestionCount = 15
)

// TranscriptEntry is a single utterance. Entries are immutable once created;
// ordering is insertion order and duplicate utterances are valid.
type TranscriptEntry struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Config describes one interview attempt. It is created at setup and stays
// immutable for the lifetime of the session.
type Config struct {
	Role          string   `json:"role"`
	Level         Level    `json:"level"`
	TechStack     []string `json:"techStack"`
	QuestionCount int      `json:"questionCount"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Role) == "" {
		return fmt.Errorf("role is required")
	}
	switch c.Level {
	case LevelBeginner, LevelIntermediate, LevelAdvanced:
	default:
		return fmt.Errorf("invalid level %q (expected Beginner|Intermediate|Advanced)", c.Level)
	}
	if len(c.TechStack) == 0 {
		return fmt.Errorf("tech stack must not be empty")
	}
	for _, tech := range c.TechStack {
		if strings.TrimSpace(tech) == "" {
			return fmt.Errorf("tech stack entries must not be blank")
		}
	}
	if c.QuestionCount < MinQuestionCount || c.QuestionCount > MaxQuestionCount {
		return fmt.Errorf("question count %d out of range [%d,%d]", c.QuestionCount, MinQuestionCount, MaxQuestionCount)
	}
	return nil
}

// Status tracks the lifecycle of a persisted interview session.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusArchived   Status = "archived"
)

// Feedback is the scored result produced by the analysis collaborator.
type Feedback struct {
	OverallScore        int      `json:"overallScore"`
	TechnicalScore      int      `json:"technicalScore"`
	CommunicationScore  int      `json:"communicationScore"`
	ProblemSolvingScore int      `json:"problemSolvingScore"`
	Strengths           []string `json:"strengths"`
	Improvements        []string `json:"improvements"`
	DetailedFeedback    string   `json:"detailedFeedback"`
}

// WeightedOverall computes the documented 40/30/30 weighting of the three
// dimension scores. The scorer is expected, not forced, to honor it; nothing
// in the session path recomputes or overrides what the scorer returned.
func WeightedOverall(technical, communication, problemSolving int) int {
	return int(math.Round(0.4*float64(technical) + 0.3*float64(communication) + 0.3*float64(problemSolving)))
}

// SessionRecord is the persistence-facing view of one interview attempt,
// independent of the live transcript log.
type SessionRecord struct {
	ID              string            `json:"id"`
	Config          Config            `json:"config"`
	Transcript      []TranscriptEntry `json:"transcript"`
	Status          Status            `json:"status"`
	DurationSeconds int               `json:"duration_seconds"`
	Feedback        *Feedback         `json:"feedback,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

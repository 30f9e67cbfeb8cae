package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config contains all runtime settings for the interview orchestrator.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool

	AgentID string

	// TransportMode selects the realtime transport: "agent" dials the
	// conversational-agent platform, "scripted" runs against the local
	// simulator with no outbound traffic.
	TransportMode string

	AgentWSBaseURL     string
	AgentAPIKey        string
	CredentialEndpoint string
	AnalysisEndpoint   string
	QuestionsEndpoint  string
	NotifyEndpoint     string

	CheckpointInterval time.Duration

	MicProbeCommand string

	DatabaseURL string
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:           envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "intervox"),
		AllowAnyOrigin:     false,
		AgentID:            stringsTrimSpace("AGENT_ID"),
		TransportMode:      envOrDefault("APP_TRANSPORT_MODE", "agent"),
		AgentWSBaseURL:     envOrDefault("AGENT_WS_BASE_URL", "wss://api.elevenlabs.io"),
		AgentAPIKey:        stringsTrimSpace("AGENT_API_KEY"),
		CredentialEndpoint: stringsTrimSpace("CREDENTIAL_ENDPOINT"),
		AnalysisEndpoint:   stringsTrimSpace("ANALYSIS_ENDPOINT"),
		QuestionsEndpoint:  stringsTrimSpace("QUESTIONS_ENDPOINT"),
		NotifyEndpoint:     stringsTrimSpace("NOTIFY_ENDPOINT"),
		MicProbeCommand:    envOrDefault("MIC_PROBE_COMMAND", ""),
		DatabaseURL:        stringsTrimSpace("DATABASE_URL"),

		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
		CheckpointInterval:       5 * time.Second,
	}
	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.CheckpointInterval, err = durationFromEnv("APP_CHECKPOINT_INTERVAL", cfg.CheckpointInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	switch cfg.TransportMode {
	case "agent", "scripted":
	default:
		return Config{}, fmt.Errorf("APP_TRANSPORT_MODE must be agent or scripted, got %q", cfg.TransportMode)
	}
	if cfg.TransportMode == "agent" && cfg.CredentialEndpoint == "" {
		return Config{}, fmt.Errorf("CREDENTIAL_ENDPOINT is required in agent transport mode")
	}
	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.CheckpointInterval < 500*time.Millisecond {
		return Config{}, fmt.Errorf("APP_CHECKPOINT_INTERVAL must be at least 500ms")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return trimSpace(os.Getenv(key))
}

func trimSpace(v string) string {
	for len(v) > 0 && (v[0] == ' ' || v[0] == '\n' || v[0] == '\t' || v[0] == '\r') {
		v = v[1:]
	}
	for len(v) > 0 {
		c := v[len(v)-1]
		if c == ' ' || c == '\n' || c == '\t' || c == '\r' {
			v = v[:len(v)-1]
			continue
		}
		break
	}
	return v
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

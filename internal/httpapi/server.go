// Package httpapi exposes the interview orchestrator over HTTP: lifecycle
// endpoints for live interviews, read access to persisted sessions, health
// and metrics.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lucamori/intervox/internal/analysis"
	"github.com/lucamori/intervox/internal/channel"
	"github.com/lucamori/intervox/internal/config"
	"github.com/lucamori/intervox/internal/convai"
	"github.com/lucamori/intervox/internal/interview"
	"github.com/lucamori/intervox/internal/observability"
	"github.com/lucamori/intervox/internal/reliability"
	"github.com/lucamori/intervox/internal/session"
	"github.com/lucamori/intervox/internal/store"
)

// OrchestratorFactory builds one orchestrator per created interview.
type OrchestratorFactory func() *session.Orchestrator

type Server struct {
	cfg      config.Config
	registry *session.Registry
	sessions store.Store
	factory  OrchestratorFactory
	metrics  *observability.Metrics
	perf     *observability.StageWindow
	upgrader websocket.Upgrader
}

func New(cfg config.Config, registry *session.Registry, sessions store.Store, factory OrchestratorFactory, metrics *observability.Metrics, perf *observability.StageWindow) *Server {
	return &Server{
		cfg:      cfg,
		registry: registry,
		sessions: sessions,
		factory:  factory,
		metrics:  metrics,
		perf:     perf,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Only same-origin browsers may watch a live interview unless
				// explicitly opened up.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})
	r.Get("/v1/perf/latency", s.handlePerfLatency)

	r.Post("/v1/interviews", s.handleCreateInterview)
	r.Post("/v1/interviews/{id}/start", s.handleRestartInterview)
	r.Post("/v1/interviews/{id}/end", s.handleEndInterview)
	r.Get("/v1/interviews/{id}", s.handleInterviewStatus)
	r.Get("/v1/interviews/{id}/transcript", s.handleInterviewTranscript)
	r.Get("/v1/interviews/{id}/stream", s.handleInterviewStream)

	r.Get("/v1/sessions", s.handleListSessions)
	r.Get("/v1/sessions/{id}", s.handleGetSession)
	r.Post("/v1/sessions/{id}/archive", s.handleArchiveSession)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"live_interviews": s.registry.LiveCount(),
		"store_mode":      s.storeMode(),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":     "ready",
		"store_mode": s.storeMode(),
	})
}

func (s *Server) handlePerfLatency(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, s.perf.Snapshot())
}

type createInterviewResponse struct {
	InterviewID string        `json:"interview_id"`
	SessionID   string        `json:"session_id,omitempty"`
	Phase       session.Phase `json:"phase"`
	Questions   []string      `json:"questions,omitempty"`
	Connection  channel.State `json:"connection"`
}

func (s *Server) handleCreateInterview(w http.ResponseWriter, r *http.Request) {
	var cfg interview.Config
	if err := decodeJSON(r, &cfg); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	orch := s.factory()
	if err := orch.Start(r.Context(), cfg); err != nil {
		respondFailure(w, err)
		return
	}
	s.registry.Add(orch)

	respondJSON(w, http.StatusCreated, createInterviewResponse{
		InterviewID: orch.ID(),
		SessionID:   orch.SessionID(),
		Phase:       orch.Phase(),
		Questions:   orch.Questions(),
		Connection:  orch.ConnectionState(),
	})
}

// handleRestartInterview reconnects a live interview whose channel dropped.
func (s *Server) handleRestartInterview(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.liveInterview(w, r)
	if !ok {
		return
	}
	// Config is ignored on resume; reuse what the orchestrator holds.
	var cfg interview.Config
	_ = decodeJSON(r, &cfg)

	if err := orch.Start(r.Context(), cfg); err != nil {
		respondFailure(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.statusOf(orch))
}

type endInterviewResponse struct {
	Record    *interview.SessionRecord `json:"record,omitempty"`
	Error     string                   `json:"error,omitempty"`
	Code      string                   `json:"code,omitempty"`
	Retryable bool                     `json:"retryable,omitempty"`
}

func (s *Server) handleEndInterview(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.liveInterview(w, r)
	if !ok {
		return
	}

	rec, err := orch.End(r.Context())
	s.registry.Remove(orch.ID())

	resp := endInterviewResponse{Record: rec}
	if err != nil {
		resp.Error = err.Error()
		resp.Code = failureCode(err)
		resp.Retryable = reliability.IsRetryableFailureCode(resp.Code)
	}
	respondJSON(w, http.StatusOK, resp)
}

type interviewStatus struct {
	InterviewID string        `json:"interview_id"`
	SessionID   string        `json:"session_id,omitempty"`
	Phase       session.Phase `json:"phase"`
	Connection  channel.State `json:"connection"`
	Speaking    bool          `json:"speaking"`
	Listening   bool          `json:"listening"`
	Entries     int           `json:"entries"`
	Questions   []string      `json:"questions,omitempty"`
	Dropped     uint64        `json:"dropped_events,omitempty"`
	Error       string        `json:"error,omitempty"`
	Code        string        `json:"code,omitempty"`
	Retryable   bool          `json:"retryable,omitempty"`
}

func (s *Server) statusOf(orch *session.Orchestrator) interviewStatus {
	st := interviewStatus{
		InterviewID: orch.ID(),
		SessionID:   orch.SessionID(),
		Phase:       orch.Phase(),
		Connection:  orch.ConnectionState(),
		Speaking:    orch.IsSpeaking(),
		Listening:   orch.IsListening(),
		Entries:     len(orch.Transcript()),
		Questions:   orch.Questions(),
		Dropped:     orch.DroppedEvents(),
	}
	if err := orch.Err(); err != nil {
		st.Error = err.Error()
		st.Code = failureCode(err)
		st.Retryable = reliability.IsRetryableFailureCode(st.Code)
	}
	return st
}

func (s *Server) handleInterviewStatus(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.liveInterview(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, s.statusOf(orch))
}

func (s *Server) handleInterviewTranscript(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.liveInterview(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"interview_id": orch.ID(),
		"transcript":   orch.Transcript(),
	})
}

// handleInterviewStream pushes the live status over a websocket so a viewer
// can follow the interview without polling.
func (s *Server) handleInterviewStream(w http.ResponseWriter, r *http.Request) {
	orch, ok := s.liveInterview(w, r)
	if !ok {
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	sent := 0
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			transcript := orch.Transcript()
			update := map[string]any{
				"status": s.statusOf(orch),
			}
			if len(transcript) > sent {
				update["new_entries"] = transcript[sent:]
				sent = len(transcript)
			}
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(update); err != nil {
				return
			}
		}
	}
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		respondError(w, http.StatusNotImplemented, "no_store", "session store not configured")
		return
	}
	list, err := s.sessions.ListSessions(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"sessions": list})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		respondError(w, http.StatusNotImplemented, "no_store", "session store not configured")
		return
	}
	rec, err := s.sessions.GetSession(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (s *Server) handleArchiveSession(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil {
		respondError(w, http.StatusNotImplemented, "no_store", "session store not configured")
		return
	}
	err := s.sessions.Archive(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "session_not_found", err.Error())
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "archived"})
}

func (s *Server) liveInterview(w http.ResponseWriter, r *http.Request) (*session.Orchestrator, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_interview_id", "missing interview id")
		return nil, false
	}
	orch, err := s.registry.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "interview_not_found", err.Error())
		return nil, false
	}
	return orch, true
}

func (s *Server) storeMode() string {
	switch s.sessions.(type) {
	case nil:
		return "disabled"
	case *store.InMemoryStore:
		return "in-memory"
	default:
		return "postgres"
	}
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Retryable bool   `json:"retryable,omitempty"`
}

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(out)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code, Retryable: reliability.IsRetryableFailureCode(code)})
}

// respondFailure maps orchestration failures to HTTP statuses and stable
// failure codes.
func respondFailure(w http.ResponseWriter, err error) {
	code := failureCode(err)
	status := http.StatusBadRequest
	switch {
	case errors.Is(err, channel.ErrPermissionDenied):
		status = http.StatusForbidden
	case errors.Is(err, channel.ErrAlreadyConnecting), errors.Is(err, channel.ErrAlreadyConnected), errors.Is(err, session.ErrEnding):
		status = http.StatusConflict
	default:
		var credErr *convai.CredentialError
		var connErr *channel.ConnectionError
		if errors.As(err, &credErr) || errors.As(err, &connErr) {
			status = http.StatusBadGateway
		}
	}
	respondError(w, status, code, err.Error())
}

func failureCode(err error) string {
	var (
		connErr *channel.ConnectionError
		credErr *convai.CredentialError
		anaErr  *analysis.AnalysisError
	)
	switch {
	case errors.Is(err, channel.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, channel.ErrAlreadyConnecting):
		return "already_connecting"
	case errors.Is(err, channel.ErrAlreadyConnected):
		return "already_connected"
	case errors.Is(err, session.ErrEnding):
		return "finalizing"
	case errors.As(err, &connErr):
		return connErr.Reason
	case errors.As(err, &credErr):
		return "credential_failed"
	case errors.As(err, &anaErr):
		return string(anaErr.Kind)
	default:
		return "invalid_request"
	}
}

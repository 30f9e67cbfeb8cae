package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lucamori/intervox/internal/analysis"
	"github.com/lucamori/intervox/internal/audio"
	"github.com/lucamori/intervox/internal/channel"
	"github.com/lucamori/intervox/internal/config"
	"github.com/lucamori/intervox/internal/convai"
	"github.com/lucamori/intervox/internal/httpapi"
	"github.com/lucamori/intervox/internal/interview"
	"github.com/lucamori/intervox/internal/notify"
	"github.com/lucamori/intervox/internal/observability"
	"github.com/lucamori/intervox/internal/questions"
	"github.com/lucamori/intervox/internal/session"
	"github.com/lucamori/intervox/internal/store"
)

// scriptedIssuer hands out a fixed signed URL, used to point the channel at
// the local agent simulator without a credential endpoint.
type scriptedIssuer struct {
	signedURL string
}

func (i scriptedIssuer) IssueCredential(context.Context, string, interview.Config) (channel.Credential, error) {
	return channel.Credential{SignedURL: i.signedURL}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	perf := observability.NewStageWindow(256)

	ctx := context.Background()
	sessionStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("session store init failed: %v", err)
	}
	defer sessionStore.Close()

	var (
		transport channel.Transport
		prober    channel.MicrophoneProber
		issuer    channel.CredentialIssuer
	)
	switch cfg.TransportMode {
	case "agent":
		transport = convai.NewTransport(convai.TransportConfig{
			WSBaseURL: cfg.AgentWSBaseURL,
			AgentID:   cfg.AgentID,
		})
		issuer = convai.NewCredentialClient(convai.CredentialClientConfig{
			Endpoint: cfg.CredentialEndpoint,
			APIKey:   cfg.AgentAPIKey,
		})
		if strings.EqualFold(cfg.MicProbeCommand, "off") {
			prober = audio.StaticProber{}
		} else {
			prober = audio.NewFFMPEGProber(cfg.MicProbeCommand)
		}
		log.Printf("transport: agent platform at %s", cfg.AgentWSBaseURL)
	case "scripted":
		transport = convai.NewTransport(convai.TransportConfig{WSBaseURL: cfg.AgentWSBaseURL})
		issuer = scriptedIssuer{signedURL: cfg.AgentWSBaseURL}
		prober = audio.StaticProber{}
		log.Printf("transport: scripted simulator at %s", cfg.AgentWSBaseURL)
	}

	var analyzer session.Analyzer
	if cfg.AnalysisEndpoint != "" {
		analyzer = analysis.NewClient(analysis.ClientConfig{Endpoint: cfg.AnalysisEndpoint, APIKey: cfg.AgentAPIKey})
	} else {
		log.Printf("ANALYSIS_ENDPOINT not set; sessions complete without feedback")
	}
	var planner session.Planner
	if cfg.QuestionsEndpoint != "" {
		planner = questions.NewPlanner(questions.PlannerConfig{Endpoint: cfg.QuestionsEndpoint, APIKey: cfg.AgentAPIKey})
	}
	var notifier session.Notifier
	if cfg.NotifyEndpoint != "" {
		notifier = notify.NewEmailNotifier(notify.EmailNotifierConfig{Endpoint: cfg.NotifyEndpoint, APIKey: cfg.AgentAPIKey})
	}

	registry := session.NewRegistry(cfg.SessionInactivityTimeout)
	registry.SetExpireHook(func(_ *session.Orchestrator) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
	})

	factory := func() *session.Orchestrator {
		return session.NewOrchestrator(cfg.AgentID, session.Collaborators{
			Channel:  channel.NewManager(transport, prober, issuer),
			Store:    sessionStore,
			Analyzer: analyzer,
			Planner:  planner,
			Notifier: notifier,
			Metrics:  metrics,
			Perf:     perf,
		}, cfg.CheckpointInterval)
	}

	api := httpapi.New(cfg, registry, sessionStore, factory, metrics, perf)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	runCtx, runCancel := context.WithCancel(context.Background())
	defer runCancel()
	registry.StartJanitor(runCtx, time.Minute)

	go func() {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	log.Printf("shutdown signal received")

	runCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
		_ = httpServer.Close()
	}

	log.Printf("shutdown complete")
}

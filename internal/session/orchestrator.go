// Package session orchestrates one interview attempt end to end: microphone
// probe, credential issuance, channel open, transcript accumulation with
// periodic checkpoints, and the single analyze-and-complete pass at the end.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"

	"github.com/lucamori/intervox/internal/channel"
	"github.com/lucamori/intervox/internal/interview"
	"github.com/lucamori/intervox/internal/normalize"
	"github.com/lucamori/intervox/internal/observability"
	"github.com/lucamori/intervox/internal/store"
)

const defaultCheckpointInterval = 5 * time.Second

// Phase is the orchestration lifecycle, distinct from the channel's
// connection state. An unexpected disconnect keeps the phase Live so the
// accumulated transcript survives a restart of the conversation.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseConnecting Phase = "connecting"
	PhaseLive       Phase = "live"
	PhaseEnding     Phase = "ending"
	PhaseAnalyzed   Phase = "analyzed"
)

// Analyzer scores a finished transcript. Called at most once per session.
type Analyzer interface {
	Analyze(ctx context.Context, transcript []interview.TranscriptEntry, cfg interview.Config) (*interview.Feedback, error)
}

// Planner proposes a question list ahead of the conversation. Advisory only.
type Planner interface {
	Plan(ctx context.Context, cfg interview.Config) ([]string, error)
}

// Notifier announces a completed session. Best effort.
type Notifier interface {
	SessionCompleted(ctx context.Context, rec interview.SessionRecord) error
}

// Collaborators wires the orchestrator's dependencies. Store, Analyzer,
// Planner and Notifier may be nil; a nil store runs the session as a guest
// with no persistence and no analysis.
type Collaborators struct {
	Channel  *channel.Manager
	Store    store.Store
	Analyzer Analyzer
	Planner  Planner
	Notifier Notifier
	Metrics  *observability.Metrics
	Perf     *observability.StageWindow
}

// Orchestrator drives a single interview attempt. Start and End serialize on
// one mutex; observers read a separately-locked snapshot so they never wait
// on a slow collaborator.
type Orchestrator struct {
	id      string
	agentID string
	collab  Collaborators

	checkpointEvery time.Duration
	debounced       func(func())

	mu sync.Mutex // serializes Start/End and the finalize sequence

	stateMu      sync.RWMutex
	phase        Phase
	ic           *interview.Context
	lastErr      error
	last         *interview.SessionRecord
	lastActivity time.Time

	cpMu sync.Mutex // serializes checkpoint writes against finalize
}

func NewOrchestrator(agentID string, collab Collaborators, checkpointEvery time.Duration) *Orchestrator {
	if checkpointEvery <= 0 {
		checkpointEvery = defaultCheckpointInterval
	}
	return &Orchestrator{
		id:              uuid.NewString(),
		agentID:         agentID,
		collab:          collab,
		checkpointEvery: checkpointEvery,
		debounced:       debounce.New(checkpointEvery),
		phase:           PhaseSetup,
		lastActivity:    time.Now().UTC(),
	}
}

// ID identifies this orchestrator instance, independent of the persisted
// session id which only exists once the store accepts the session.
func (o *Orchestrator) ID() string { return o.id }

// Start runs the setup ladder: microphone probe, question planning,
// credential issuance, channel open, then session creation. Each rung
// failing leaves the phase where it was so the caller can retry Start.
// After an unexpected disconnect the phase is still Live and Start resumes
// the same interview over a fresh connection.
func (o *Orchestrator) Start(ctx context.Context, cfg interview.Config) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stateMu.Lock()
	phase := o.phase
	switch phase {
	case PhaseConnecting:
		o.stateMu.Unlock()
		return channel.ErrAlreadyConnecting
	case PhaseEnding:
		o.stateMu.Unlock()
		return ErrEnding
	case PhaseLive:
		if o.collab.Channel.State() == channel.StateConnected {
			o.stateMu.Unlock()
			return channel.ErrAlreadyConnected
		}
	}
	resuming := phase == PhaseLive
	if !resuming {
		if err := cfg.Validate(); err != nil {
			o.stateMu.Unlock()
			return err
		}
		o.ic = interview.NewContext(cfg)
		o.last = nil
	}
	ic := o.ic
	o.lastErr = nil
	o.stateMu.Unlock()

	if err := o.collab.Channel.RequestMicrophoneAccess(ctx); err != nil {
		o.countError("microphone", "permission_denied")
		o.setErr(err)
		return err
	}

	if !resuming && o.collab.Planner != nil {
		if qs, err := o.collab.Planner.Plan(ctx, ic.Config); err != nil {
			o.countError("planner", "plan_failed")
		} else {
			ic.Questions = qs
		}
	}

	credStart := time.Now()
	cred, err := o.collab.Channel.AcquireCredential(ctx, o.agentID, ic.Config)
	if err != nil {
		o.countError("credential", "issue_failed")
		o.setErr(err)
		return err
	}
	o.collab.Perf.ObserveDuration(observability.StageCredentialIssue, time.Since(credStart))

	o.setPhase(PhaseConnecting)
	openStart := time.Now()
	if err := o.collab.Channel.Open(ctx, cred); err != nil {
		o.countError("channel", "open_failed")
		o.restorePhase(phase)
		o.setErr(err)
		return err
	}
	o.collab.Perf.ObserveDuration(observability.StageChannelOpen, time.Since(openStart))

	o.stateMu.Lock()
	o.phase = PhaseLive
	o.ic.MarkStarted(time.Now().UTC())
	o.lastActivity = time.Now().UTC()
	o.stateMu.Unlock()

	if o.collab.Metrics != nil {
		o.collab.Metrics.SessionEvents.WithLabelValues("started").Inc()
		if !resuming {
			o.collab.Metrics.ActiveSessions.Inc()
		}
	}

	if !resuming && o.collab.Store != nil {
		rec, err := o.collab.Store.CreateSession(ctx, ic.Config)
		if err != nil {
			// Persistence is optional; the interview continues as a guest.
			o.countError("store", "create_failed")
		} else {
			o.stateMu.Lock()
			o.ic.SessionID = rec.ID
			o.stateMu.Unlock()
		}
	}
	return nil
}

// Run consumes the channel event stream until ctx is cancelled. It is the
// only writer of the transcript log.
func (o *Orchestrator) Run(ctx context.Context) {
	events := o.collab.Channel.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-events:
			o.handle(ctx, evt)
		}
	}
}

func (o *Orchestrator) handle(ctx context.Context, evt channel.Event) {
	switch evt.Type {
	case channel.EventMessage:
		entry, ok := normalize.Normalize(evt.Payload)
		if !ok {
			if o.collab.Metrics != nil {
				o.collab.Metrics.IgnoredPayloads.Inc()
			}
			return
		}
		o.stateMu.Lock()
		ic := o.ic
		live := o.phase == PhaseLive
		persisted := ic != nil && ic.SessionID != ""
		o.lastActivity = time.Now().UTC()
		o.stateMu.Unlock()
		if ic == nil {
			return
		}
		ic.Log.Append(entry)
		if o.collab.Metrics != nil {
			o.collab.Metrics.TranscriptEntries.WithLabelValues(string(entry.Speaker)).Inc()
		}
		if live && persisted {
			o.debounced(func() { o.checkpoint(context.WithoutCancel(ctx), false) })
		}
	case channel.EventDisconnected:
		if evt.UserInitiated {
			return
		}
		o.stateMu.Lock()
		live := o.phase == PhaseLive
		if live {
			o.lastErr = &channel.ConnectionError{Reason: "unexpected_disconnect", Detail: DisconnectGuidance}
		}
		o.stateMu.Unlock()
		if live {
			o.collab.Perf.ObserveIndicator("unexpected_disconnect")
			o.countError("channel", "unexpected_disconnect")
		}
	case channel.EventError:
		o.countError("channel", "transport_error")
	}
}

// checkpoint mirrors the full transcript into the store. Debounced writes run
// only while Live; the synchronous write from End passes final and is the only
// one admitted in Ending, so a timer armed before finalization began can never
// add a second write.
func (o *Orchestrator) checkpoint(ctx context.Context, final bool) {
	o.cpMu.Lock()
	defer o.cpMu.Unlock()

	o.stateMu.RLock()
	ic := o.ic
	phase := o.phase
	var sessionID string
	if ic != nil {
		sessionID = ic.SessionID
	}
	o.stateMu.RUnlock()
	if ic == nil || sessionID == "" || o.collab.Store == nil {
		return
	}
	if final {
		if phase != PhaseEnding {
			return
		}
	} else if phase != PhaseLive {
		return
	}

	start := time.Now()
	if err := o.collab.Store.UpdateTranscript(ctx, sessionID, ic.Log.Snapshot()); err != nil {
		o.countError("store", "checkpoint_failed")
		return
	}
	if o.collab.Metrics != nil {
		o.collab.Metrics.ObserveCheckpointLatency(time.Since(start))
	}
	o.collab.Perf.ObserveDuration(observability.StageCheckpointWrite, time.Since(start))
}

// End tears the channel down and, when the session is persisted and the
// transcript non-empty, writes the final checkpoint, runs the single
// analysis pass and finalizes the record. Analysis failure still completes
// the session; only the feedback is missing. End after End returns the
// previous result.
func (o *Orchestrator) End(ctx context.Context) (*interview.SessionRecord, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.stateMu.Lock()
	switch o.phase {
	case PhaseAnalyzed, PhaseSetup:
		last := o.last
		o.stateMu.Unlock()
		// Close is idempotent from any state; End always issues it.
		_ = o.collab.Channel.Close()
		return last, nil
	}
	wasLive := o.phase == PhaseLive
	o.phase = PhaseEnding
	ic := o.ic
	o.stateMu.Unlock()

	_ = o.collab.Channel.Close()

	var (
		rec     *interview.SessionRecord
		lastErr error
	)
	if ic != nil {
		transcript := ic.Log.Snapshot()
		if ic.SessionID != "" && o.collab.Store != nil && len(transcript) > 0 {
			duration := int(time.Since(ic.StartedAt).Seconds())

			o.checkpoint(ctx, true)

			var feedback *interview.Feedback
			if o.collab.Analyzer != nil {
				analysisStart := time.Now()
				fb, err := o.collab.Analyzer.Analyze(ctx, transcript, ic.Config)
				if err != nil {
					o.countError("analysis", "analyze_failed")
					lastErr = err
				} else {
					feedback = fb
					if o.collab.Metrics != nil {
						o.collab.Metrics.ObserveAnalysisLatency(time.Since(analysisStart))
					}
					o.collab.Perf.ObserveDuration(observability.StageAnalysis, time.Since(analysisStart))
				}
			}

			if err := o.collab.Store.Finalize(ctx, ic.SessionID, transcript, duration, feedback); err != nil {
				o.countError("store", "finalize_failed")
				if lastErr == nil {
					lastErr = err
				}
			} else if got, err := o.collab.Store.GetSession(ctx, ic.SessionID); err == nil {
				rec = &got
			}

			if rec != nil && o.collab.Notifier != nil {
				if err := o.collab.Notifier.SessionCompleted(ctx, *rec); err != nil {
					o.countError("notify", "send_failed")
				}
			}
		}
	}

	o.stateMu.Lock()
	o.phase = PhaseAnalyzed
	o.last = rec
	o.lastErr = lastErr
	if o.ic != nil {
		o.ic.Clear()
	}
	o.stateMu.Unlock()

	if o.collab.Metrics != nil {
		o.collab.Metrics.SessionEvents.WithLabelValues("ended").Inc()
		if wasLive {
			o.collab.Metrics.ActiveSessions.Dec()
		}
	}
	return rec, lastErr
}

func (o *Orchestrator) setPhase(p Phase) {
	o.stateMu.Lock()
	o.phase = p
	o.stateMu.Unlock()
}

func (o *Orchestrator) restorePhase(p Phase) {
	o.stateMu.Lock()
	o.phase = p
	o.stateMu.Unlock()
}

func (o *Orchestrator) setErr(err error) {
	o.stateMu.Lock()
	o.lastErr = err
	o.stateMu.Unlock()
}

func (o *Orchestrator) countError(collaborator, code string) {
	if o.collab.Metrics != nil {
		o.collab.Metrics.CollaboratorErrors.WithLabelValues(collaborator, code).Inc()
	}
}

// Phase reports the orchestration lifecycle phase.
func (o *Orchestrator) Phase() Phase {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.phase
}

func (o *Orchestrator) ConnectionState() channel.State { return o.collab.Channel.State() }
func (o *Orchestrator) IsSpeaking() bool               { return o.collab.Channel.IsSpeaking() }
func (o *Orchestrator) IsListening() bool              { return o.collab.Channel.IsListening() }
func (o *Orchestrator) DroppedEvents() uint64          { return o.collab.Channel.DroppedEvents() }

// Transcript returns a snapshot of the accumulated transcript.
func (o *Orchestrator) Transcript() []interview.TranscriptEntry {
	o.stateMu.RLock()
	ic := o.ic
	o.stateMu.RUnlock()
	if ic == nil {
		return nil
	}
	return ic.Log.Snapshot()
}

func (o *Orchestrator) Err() error {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.lastErr
}

func (o *Orchestrator) Questions() []string {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	if o.ic == nil {
		return nil
	}
	out := make([]string, len(o.ic.Questions))
	copy(out, o.ic.Questions)
	return out
}

func (o *Orchestrator) SessionID() string {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	if o.ic == nil {
		return ""
	}
	return o.ic.SessionID
}

// Result returns the finalized record once End completed, nil before.
func (o *Orchestrator) Result() *interview.SessionRecord {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.last
}

// LastActivity reports the last transcript or lifecycle activity, for the
// registry janitor.
func (o *Orchestrator) LastActivity() time.Time {
	o.stateMu.RLock()
	defer o.stateMu.RUnlock()
	return o.lastActivity
}

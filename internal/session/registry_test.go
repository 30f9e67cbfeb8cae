package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lucamori/intervox/internal/channel"
	"github.com/lucamori/intervox/internal/observability"
)

func newIdleOrchestrator() *Orchestrator {
	transport := channel.NewScriptedTransport(func(channel.Credential) (channel.Conn, error) {
		return channel.NewScriptedConn(), nil
	})
	return NewOrchestrator("agent-1", Collaborators{
		Channel: channel.NewManager(transport, fakeProber{}, &countingIssuer{}),
		Metrics: testMetrics(),
		Perf:    observability.NewStageWindow(8),
	}, time.Second)
}

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry(time.Minute)
	orch := newIdleOrchestrator()
	r.Add(orch)

	got, err := r.Get(orch.ID())
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ID() != orch.ID() {
		t.Fatalf("Get() returned a different orchestrator")
	}
	if r.LiveCount() != 1 {
		t.Fatalf("LiveCount() = %d, want 1", r.LiveCount())
	}

	r.Remove(orch.ID())
	if _, err := r.Get(orch.ID()); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("Get() after Remove error = %v, want ErrUnknownSession", err)
	}
}

func TestRegistryJanitorExpiresInactive(t *testing.T) {
	r := NewRegistry(30 * time.Millisecond)
	orch := newIdleOrchestrator()
	r.Add(orch)

	expired := make(chan string, 1)
	r.SetExpireHook(func(o *Orchestrator) { expired <- o.ID() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r.StartJanitor(ctx, 10*time.Millisecond)

	select {
	case id := <-expired:
		if id != orch.ID() {
			t.Fatalf("expired id = %q, want %q", id, orch.ID())
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("janitor never expired the idle session")
	}
	if r.LiveCount() != 0 {
		t.Fatalf("LiveCount() = %d after expiry, want 0", r.LiveCount())
	}
}

package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrUnknownSession = errors.New("unknown live session")

// Registry tracks live orchestrators by id and reaps the ones that went
// quiet, so an abandoned browser tab does not hold a session open forever.
type Registry struct {
	mu                sync.RWMutex
	live              map[string]*registryEntry
	inactivityTimeout time.Duration
	onExpire          func(*Orchestrator)
}

type registryEntry struct {
	orch   *Orchestrator
	cancel context.CancelFunc
}

func NewRegistry(inactivityTimeout time.Duration) *Registry {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Registry{
		live:              make(map[string]*registryEntry),
		inactivityTimeout: inactivityTimeout,
	}
}

// SetExpireHook installs a callback invoked after the janitor ends an
// inactive session.
func (r *Registry) SetExpireHook(hook func(*Orchestrator)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExpire = hook
}

// Add registers a live orchestrator and starts its event loop.
func (r *Registry) Add(orch *Orchestrator) {
	ctx, cancel := context.WithCancel(context.Background())
	go orch.Run(ctx)

	r.mu.Lock()
	r.live[orch.ID()] = &registryEntry{orch: orch, cancel: cancel}
	r.mu.Unlock()
}

func (r *Registry) Get(id string) (*Orchestrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.live[id]
	if !ok {
		return nil, ErrUnknownSession
	}
	return entry.orch, nil
}

// Remove stops the event loop and drops the orchestrator. The caller is
// responsible for having ended it first.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	entry, ok := r.live[id]
	if ok {
		delete(r.live, id)
	}
	r.mu.Unlock()
	if ok {
		entry.cancel()
	}
}

func (r *Registry) LiveCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}

// StartJanitor reaps orchestrators with no activity past the timeout,
// ending them so their transcripts finalize before removal.
func (r *Registry) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.expireInactive(ctx)
			}
		}
	}()
}

func (r *Registry) expireInactive(ctx context.Context) {
	now := time.Now().UTC()
	var expired []*registryEntry

	r.mu.Lock()
	for id, entry := range r.live {
		if now.Sub(entry.orch.LastActivity()) < r.inactivityTimeout {
			continue
		}
		delete(r.live, id)
		expired = append(expired, entry)
	}
	hook := r.onExpire
	r.mu.Unlock()

	for _, entry := range expired {
		_, _ = entry.orch.End(ctx)
		entry.cancel()
		if hook != nil {
			hook(entry.orch)
		}
	}
}

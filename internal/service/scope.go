package service

import (
	"context"
	"sync"
)

// scopeTracker remembers the latest run per caller scope. Starting a run
// cancels the previous one in the same scope. Generations are unique across
// scopes so a finished scope can be dropped safely.
type scopeTracker struct {
	mu     sync.Mutex
	next   uint64
	scopes map[string]*scopeState
}

type scopeState struct {
	generation uint64
	cancel     context.CancelFunc
}

type scopeRun struct {
	ctx        context.Context
	key        string
	generation uint64
	tracker    *scopeTracker
}

func newScopeTracker() *scopeTracker {
	return &scopeTracker{scopes: make(map[string]*scopeState)}
}

func (t *scopeTracker) begin(parent context.Context, key string) *scopeRun {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()

	state, ok := t.scopes[key]
	if !ok {
		state = &scopeState{}
		t.scopes[key] = state
	}
	if state.cancel != nil {
		state.cancel()
	}
	t.next++
	state.generation = t.next
	state.cancel = cancel

	return &scopeRun{ctx: ctx, key: key, generation: state.generation, tracker: t}
}

// current reports whether no newer run has started in the same scope.
func (r *scopeRun) current() bool {
	r.tracker.mu.Lock()
	defer r.tracker.mu.Unlock()
	state, ok := r.tracker.scopes[r.key]
	return ok && state.generation == r.generation
}

func (r *scopeRun) done() {
	r.tracker.mu.Lock()
	defer r.tracker.mu.Unlock()
	state, ok := r.tracker.scopes[r.key]
	if !ok || state.generation != r.generation {
		return
	}
	state.cancel()
	delete(r.tracker.scopes, r.key)
}

func scopeKey(ctx context.Context, view string) string {
	username := requester(ctx)
	if username == "" {
		username = "anonymous"
	}
	return username + ":" + view
}

func requester(ctx context.Context) string {
	actor, _ := ActorFromContext(ctx)
	return actor.Username
}

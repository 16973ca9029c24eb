package server

import (
	"context"
	"sort"
	"sync"
	"time"
)

// ActiveCall is a dispatch that has not returned yet.
type ActiveCall struct {
	ID      string    `json:"id"`
	Server  string    `json:"server"`
	Tool    string    `json:"tool"`
	Started time.Time `json:"started"`

	cancel context.CancelFunc
	seq    uint64
}

// CallTracker tracks in-flight calls so they can be listed and cancelled.
type CallTracker struct {
	mu    sync.RWMutex
	calls map[string]*ActiveCall
	seq   uint64
}

// NewCallTracker creates a new CallTracker.
func NewCallTracker() *CallTracker {
	return &CallTracker{
		calls: make(map[string]*ActiveCall),
	}
}

// Begin registers a call and returns a context cancelled by Cancel or
// CloseAll. The returned func must be called when the call finishes.
func (ct *CallTracker) Begin(ctx context.Context, id, server, tool string) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	ct.mu.Lock()
	ct.seq++
	ct.calls[id] = &ActiveCall{
		ID:      id,
		Server:  server,
		Tool:    tool,
		Started: time.Now().UTC(),
		cancel:  cancel,
		seq:     ct.seq,
	}
	ct.mu.Unlock()

	return ctx, func() {
		cancel()
		ct.mu.Lock()
		delete(ct.calls, id)
		ct.mu.Unlock()
	}
}

// Get returns an in-flight call if it exists.
func (ct *CallTracker) Get(id string) (ActiveCall, bool) {
	ct.mu.RLock()
	defer ct.mu.RUnlock()
	ac, ok := ct.calls[id]
	if !ok {
		return ActiveCall{}, false
	}
	return *ac, true
}

// Active returns the in-flight calls, oldest first.
func (ct *CallTracker) Active() []ActiveCall {
	ct.mu.RLock()
	out := make([]ActiveCall, 0, len(ct.calls))
	for _, ac := range ct.calls {
		out = append(out, *ac)
	}
	ct.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// Cancel cancels an in-flight call. It reports whether the call existed.
func (ct *CallTracker) Cancel(id string) bool {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	ac, ok := ct.calls[id]
	if ok {
		ac.cancel()
		delete(ct.calls, id)
	}
	return ok
}

// CloseAll cancels all in-flight calls.
func (ct *CallTracker) CloseAll() {
	ct.mu.Lock()
	defer ct.mu.Unlock()
	for id, ac := range ct.calls {
		ac.cancel()
		delete(ct.calls, id)
	}
}

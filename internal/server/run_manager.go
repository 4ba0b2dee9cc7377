package server

import (
	"context"
	"sync"
)

// RunManager tracks in-flight executions so they can be cancelled from the
// websocket protocol or at shutdown. Nothing is persisted; a run exists
// only while it executes.
type RunManager struct {
	mu   sync.Mutex
	runs map[string]context.CancelFunc
}

// NewRunManager creates an empty RunManager.
func NewRunManager() *RunManager {
	return &RunManager{
		runs: make(map[string]context.CancelFunc),
	}
}

// Begin registers a run and returns its cancellable context.
func (rm *RunManager) Begin(id string, parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	rm.mu.Lock()
	rm.runs[id] = cancel
	rm.mu.Unlock()
	return ctx
}

// End cancels and forgets a run. Safe to call after Cancel.
func (rm *RunManager) End(id string) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	if cancel, ok := rm.runs[id]; ok {
		cancel()
		delete(rm.runs, id)
	}
}

// Cancel aborts an in-flight run. Returns false if the run is unknown.
func (rm *RunManager) Cancel(id string) bool {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	cancel, ok := rm.runs[id]
	if ok {
		cancel()
	}
	return ok
}

// Count returns the number of in-flight runs.
func (rm *RunManager) Count() int {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return len(rm.runs)
}

// CancelAll aborts every in-flight run.
func (rm *RunManager) CancelAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	for id, cancel := range rm.runs {
		cancel()
		delete(rm.runs, id)
	}
}

package message

import "sync"

// OpenTracker persists expand/collapse state for rendering units across
// reducer re-runs. Without an explicit toggle a unit defaults open only while
// it is the most recent one (no later part exists); once superseded it
// defaults closed. An explicit user toggle overrides the default until the
// next full re-run for that id clears it.
type OpenTracker struct {
	mu        sync.RWMutex
	overrides map[string]bool
}

func NewOpenTracker() *OpenTracker {
	return &OpenTracker{overrides: make(map[string]bool)}
}

// GetIsOpen implements OpenStateFunc.
func (t *OpenTracker) GetIsOpen(id string, partType string, hasNextPart bool) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if open, ok := t.overrides[id]; ok {
		return open
	}
	return !hasNextPart
}

// OnOpenChange records an explicit user toggle for a unit.
func (t *OpenTracker) OnOpenChange(id string, open bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overrides[id] = open
}

// Reset clears the recorded toggle for one unit so the recency default
// applies again.
func (t *OpenTracker) Reset(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.overrides, id)
}

// ResetAll drops every recorded toggle, e.g. when a chat is cleared.
func (t *OpenTracker) ResetAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.overrides = make(map[string]bool)
}

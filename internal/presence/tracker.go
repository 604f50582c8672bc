// Package presence tracks open listener connections per network origin.
// Several physical connections from the same origin (reloads, extra tabs,
// overlapping reconnects) count as a single listener; the tracker detects the
// 0→1 and 1→0 crossings of each origin's reference count and reports them
// exactly once each.
package presence

import (
	"log/slog"
	"sync"
)

// ChangeReason says which kind of raw event caused a listener-count change.
type ChangeReason string

const (
	ReasonConnect    ChangeReason = "connect"
	ReasonDisconnect ChangeReason = "disconnect"
)

// Change describes one transition of the global listener count.
type Change struct {
	Count  int
	Delta  int
	Reason ChangeReason
}

// Tracker maps origin IDs to open-connection counts. All methods are safe for
// concurrent use; transition callbacks are serialized and fire in the order
// the triggering calls were made.
type Tracker struct {
	mu       sync.Mutex
	conns    map[string]int
	onChange func(Change)
}

// NewTracker creates a Tracker. onChange, if non-nil, is invoked synchronously
// once per 0→1 or 1→0 crossing of an origin's connection count — never once
// per raw connection event.
func NewTracker(onChange func(Change)) *Tracker {
	return &Tracker{
		conns:    make(map[string]int),
		onChange: onChange,
	}
}

// Register records a new open connection for originID. It reports whether
// this was the origin's first open connection, in which case the global
// listener count has just gone up by one.
func (t *Tracker) Register(originID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.conns[originID]++
	if t.conns[originID] > 1 {
		return false
	}
	t.emit(1, ReasonConnect)
	return true
}

// Unregister records a closed connection for originID. It reports whether
// this was the origin's last open connection. A disconnect for an untracked
// origin (duplicate close signals) is a no-op: the count never goes negative
// and no spurious transition is reported.
func (t *Tracker) Unregister(originID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	n, ok := t.conns[originID]
	if !ok {
		slog.Warn("unregister for untracked origin", slog.String("origin", originID))
		return false
	}
	if n > 1 {
		t.conns[originID] = n - 1
		return false
	}
	delete(t.conns, originID)
	t.emit(-1, ReasonDisconnect)
	return true
}

// Listeners returns the global listener count: the number of distinct origins
// with at least one open connection.
func (t *Tracker) Listeners() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.conns)
}

// Connections returns the open-connection count for one origin.
func (t *Tracker) Connections(originID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.conns[originID]
}

// emit runs with t.mu held so transitions are observed in call order.
func (t *Tracker) emit(delta int, reason ChangeReason) {
	if t.onChange == nil {
		return
	}
	t.onChange(Change{Count: len(t.conns), Delta: delta, Reason: reason})
}

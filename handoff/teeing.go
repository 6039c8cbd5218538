package handoff

import (
	"sync"

	"github.com/noneback/stratumflow"
)

// teeState is the interior-mutable state shared between every branch of a
// teeing handoff. Keeping it behind its own mutex, rather than exposing it
// to the scheduler, is what lets TeeingHandoff provide fan-out while the
// scheduler still only ever sees a plain Handoff/Teeable per branch id.
type teeState[T any] struct {
	mu       sync.Mutex
	branches map[int][]T
	nextID   int
}

// TeeingHandoff is a handoff with fan-out: a value Send to any branch (all
// branches share one write side) is delivered to every live branch's
// queue, the sending branch's own included. Each stratumflow.HandoffID in the graph store corresponds to one
// *TeeingHandoff branch; the scheduler only ever calls IsBottom on it, the
// graph store calls Tee/Drop, and user subgraph code calls Send/TakeAll.
type TeeingHandoff[T any] struct {
	state *teeState[T]
	id    int
	live  bool
}

var (
	_ stratumflow.Handoff  = (*TeeingHandoff[int])(nil)
	_ stratumflow.Teeable  = (*TeeingHandoff[int])(nil)
)

// NewTeeingHandoff returns the root branch of a new teeing handoff.
func NewTeeingHandoff[T any]() *TeeingHandoff[T] {
	st := &teeState[T]{branches: make(map[int][]T)}
	st.branches[st.nextID] = nil
	root := &TeeingHandoff[T]{state: st, id: st.nextID, live: true}
	st.nextID++
	return root
}

// IsBottom reports whether this branch currently holds no deliverable
// data.
func (h *TeeingHandoff[T]) IsBottom() bool {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	return len(h.state.branches[h.id]) == 0
}

// Send delivers v to every live branch, including this one.
func (h *TeeingHandoff[T]) Send(v T) {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	for id := range h.state.branches {
		h.state.branches[id] = append(h.state.branches[id], v)
	}
}

// TakeAll drains and returns this branch's buffered values.
func (h *TeeingHandoff[T]) TakeAll() []T {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	if !h.live {
		return nil
	}
	out := h.state.branches[h.id]
	h.state.branches[h.id] = nil
	return out
}

// Tee creates a new branch sharing this handoff's upstream queue. Adding a
// branch never rewrites historical data already delivered to existing
// branches.
func (h *TeeingHandoff[T]) Tee() stratumflow.Handoff {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	id := h.state.nextID
	h.state.nextID++
	h.state.branches[id] = nil
	return &TeeingHandoff[T]{state: h.state, id: id, live: true}
}

// Drop marks this branch as no longer consuming; future Sends stop being
// delivered to it.
func (h *TeeingHandoff[T]) Drop() {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	delete(h.state.branches, h.id)
	h.live = false
}

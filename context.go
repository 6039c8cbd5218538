package stratumflow

import (
	"context"
	"time"
)

// Tick is the scheduler's unit of logical time. It starts at 0 and
// increases by exactly one at every tick boundary.
type Tick uint64

// stratumQueue is a plain FIFO of subgraph ids, used one per stratum.
type stratumQueue struct {
	items []SubgraphID
}

func (q *stratumQueue) pushBack(id SubgraphID) { q.items = append(q.items, id) }

func (q *stratumQueue) popFront() (SubgraphID, bool) {
	if len(q.items) == 0 {
		return 0, false
	}
	id := q.items[0]
	q.items = q.items[1:]
	return id, true
}

func (q *stratumQueue) empty() bool { return len(q.items) == 0 }

func (q *stratumQueue) len() int { return len(q.items) }

// stratumStackEntry is one (loop depth, stratum) pair pushed when a loop
// member subgraph becomes runnable, so next_stratum can revisit an
// earlier-numbered stratum within the same tick to drive loop iterations.
type stratumStackEntry struct {
	depth   int
	stratum int
}

// stratumStack is a LIFO stack of pending stratum revisits. Pushing a pair
// already on the stack is a no-op: spec.md's design notes flag the
// duplicate-push case as tolerated-but-wasteful in the original source,
// so stratumflow dedupes outright rather than carrying the same redundant
// inner-loop pass the Rust original does (see DESIGN.md).
type stratumStack struct {
	entries []stratumStackEntry
}

func (s *stratumStack) push(depth, stratum int) {
	for _, e := range s.entries {
		if e.depth == depth && e.stratum == stratum {
			return
		}
	}
	s.entries = append(s.entries, stratumStackEntry{depth: depth, stratum: stratum})
}

func (s *stratumStack) pop() (int, bool) {
	if len(s.entries) == 0 {
		return 0, false
	}
	last := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return last.stratum, true
}

func (s *stratumStack) empty() bool { return len(s.entries) == 0 }

// eventMessage is what a Reactor pushes into the scheduler's event queue:
// a subgraph to schedule, and whether the request came from outside the
// scheduler (affects can_start_tick, see spec.md §4.5).
type eventMessage struct {
	subgraph   SubgraphID
	isExternal bool
}

// requestedTask is a deferred task awaiting its first RunStratum call.
type requestedTask struct {
	run func(ctx context.Context) error
}

// Context is the scheduler's per-process mutable state: spec.md §3
// component 4. It is passed to every subgraph body. Fields that
// back the driving algorithm (queues, stacks, nonce bookkeeping) are
// unexported; subgraph bodies interact with Context only through the
// exported accessors below (IsFirstRunThisTick, LoopIterCount,
// AllowAnotherIteration, RescheduleLoopBlock, RequestTask, AddState/
// GetState/SetStateLifespanHook at package scope).
type Context struct {
	currentTick    Tick
	currentStratum int

	stratumQueues []stratumQueue
	stratumStack  stratumStack

	loopNonce      uint64
	loopNonceStack []uint64

	canStartTick       bool
	eventsReceivedTick bool
	currentTickStart   time.Time

	// subgraphID, isFirstRunThisTick and loopIterCount are set by the
	// scheduler driver immediately before a subgraph body runs, per
	// spec.md §4.2.
	subgraphID         SubgraphID
	isFirstRunThisTick bool
	loopIterCount      int

	// allowAnotherIteration and rescheduleLoopBlock are set by a running
	// subgraph body via AllowAnotherIteration/RescheduleLoopBlock, and
	// consumed (and cleared) by the driver at the end of RunStratum's
	// per-subgraph step.
	allowAnotherIteration bool
	rescheduleLoopBlock   bool

	scheduleDeferred []SubgraphID

	states []*stateEntry

	eventQueue chan eventMessage

	tasks []requestedTask

	logger SLogger
}

func newContext(eventQueueCap int, logger SLogger) *Context {
	return &Context{
		eventQueue: make(chan eventMessage, eventQueueCap),
		logger:     logger,
	}
}

// initStratum extends stratumQueues so that stratum k is addressable,
// mirroring the Rust original's lazy stratum-vector growth.
func (c *Context) initStratum(k int) {
	for len(c.stratumQueues) <= k {
		c.stratumQueues = append(c.stratumQueues, stratumQueue{})
	}
}

func (c *Context) stateEntry(id StateID) *stateEntry {
	idx := int(id)
	if idx < 0 || idx >= len(c.states) {
		panic("stratumflow: invalid state id")
	}
	return c.states[idx]
}

// CurrentTick returns the tick this Context is executing within.
func (c *Context) CurrentTick() Tick { return c.currentTick }

// CurrentStratum returns the stratum currently being run.
func (c *Context) CurrentStratum() int { return c.currentStratum }

// SubgraphID returns the id of the subgraph currently running.
func (c *Context) SubgraphID() SubgraphID { return c.subgraphID }

// Logger returns the scheduler's configured SLogger, so subgraph bodies
// can emit diagnostics through the same sink as the driving loop.
func (c *Context) Logger() SLogger { return c.logger }

// IsFirstRunThisTick reports whether the currently running subgraph has
// not yet run during CurrentTick.
func (c *Context) IsFirstRunThisTick() bool { return c.isFirstRunThisTick }

// LoopIterCount returns the iteration count observed by the currently
// running subgraph, meaningful only when it belongs to a loop block.
func (c *Context) LoopIterCount() int { return c.loopIterCount }

// AllowAnotherIteration requests that the enclosing loop block run another
// iteration. Only meaningful when called from within a loop member's body.
func (c *Context) AllowAnotherIteration() { c.allowAnotherIteration = true }

// RescheduleLoopBlock requests that the whole enclosing loop block be
// rescheduled within the current tick.
func (c *Context) RescheduleLoopBlock() { c.rescheduleLoopBlock = true }

// RequestTask hands run to the host runtime's task spawner the first time
// RunStratum is subsequently called. Use AbortTasks/JoinTasks to manage
// the resulting task's lifetime.
func (c *Context) RequestTask(run func(ctx context.Context) error) {
	c.tasks = append(c.tasks, requestedTask{run: run})
}

func (c *Context) fireStateHooks(matches func(Lifespan) bool) {
	for _, entry := range c.states {
		for _, hook := range entry.hooks {
			if matches(hook.lifespan) {
				hook.reset()
			}
		}
	}
}

func (c *Context) runStateHooksSubgraph(sg SubgraphID) {
	c.fireStateHooks(func(l Lifespan) bool {
		return l.Kind == LifespanSubgraph && l.Subgraph == sg
	})
}

func (c *Context) runStateHooksLoop(loop LoopID) {
	c.fireStateHooks(func(l Lifespan) bool {
		return l.Kind == LifespanLoop && l.Loop == loop
	})
}

func (c *Context) runStateHooksTick() {
	c.fireStateHooks(func(l Lifespan) bool { return l.Kind == LifespanTick })
}

package stratumflow

import (
	"context"
	"runtime"
	"time"
)

// Scheduler is the public driving surface: spec.md §2 component 7. It owns
// the graph store (handoffs, subgraphs, loop bookkeeping) and the Context,
// and composes them into tick/stratum/loop progress.
type Scheduler struct {
	subgraphs slotVec[SubgraphID, subgraphData]
	handoffs  slotVec[HandoffID, handoffData]

	loops     slotVec[LoopID, loopData]
	loopDepth map[LoopID]int

	ctx *Context

	logger  SLogger
	metrics *MetricsRecorder
	tasks   *taskPool
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithLogger sets the SLogger used for the scheduler's structured
// diagnostics. Defaults to DefaultSLogger (discards everything).
func WithLogger(l SLogger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithMetrics attaches a MetricsRecorder. Defaults to nil (no-op).
func WithMetrics(m *MetricsRecorder) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithEventQueueCapacity sets the buffer size of the reactor's event
// channel. Defaults to 64.
func WithEventQueueCapacity(n int) Option {
	return func(s *Scheduler) { s.ctx.eventQueue = make(chan eventMessage, n) }
}

// New returns an empty Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{
		loopDepth: make(map[LoopID]int),
		logger:    DefaultSLogger(),
	}
	s.ctx = newContext(64, s.logger)
	s.tasks = newTaskPool(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	s.ctx.logger = s.logger
	return s
}

// Reactor returns a clonable event-sender handle for scheduling subgraphs
// from outside the driving loop, including from other goroutines.
func (s *Scheduler) Reactor() Reactor {
	return Reactor{send: s.ctx.eventQueue}
}

// CurrentTick returns the scheduler's current tick.
func (s *Scheduler) CurrentTick() Tick { return s.ctx.currentTick }

// CurrentStratum returns the stratum currently being processed.
func (s *Scheduler) CurrentStratum() int { return s.ctx.currentStratum }

// ScheduleSubgraph marks sg scheduled and pushes it onto its stratum
// queue, if it was not already scheduled. Returns true iff this call
// newly scheduled it.
func (s *Scheduler) ScheduleSubgraph(sg SubgraphID) bool {
	data := s.subgraphs.Get(sg)
	if data == nil {
		panic(wrapf(ErrUnknownSubgraph, "subgraph %s", sg))
	}
	if data.isScheduled {
		return false
	}
	data.isScheduled = true
	s.ctx.stratumQueues[data.stratum].pushBack(sg)
	s.metrics.queueDepth(data.stratum, s.ctx.stratumQueues[data.stratum].len())
	return true
}

// RequestTask is an alias for Context.RequestTask, for callers holding
// only a *Scheduler.
func (s *Scheduler) RequestTask(run func(ctx context.Context) error) {
	s.ctx.RequestTask(run)
}

// AbortTasks cancels all outstanding host-runtime tasks spawned via
// RequestTask.
func (s *Scheduler) AbortTasks() { s.tasks.abort() }

// JoinTasks blocks until every spawned task has returned (or been
// canceled), returning the first non-nil error, if any.
func (s *Scheduler) JoinTasks() error { return s.tasks.join() }

// Close aborts all outstanding tasks. Go has no destructors; Close is the
// idiomatic substitute for the Rust original's Drop impl (graph.rs
// `impl Drop for Dfir`), which also aborts tasks on teardown.
func (s *Scheduler) Close() { s.AbortTasks() }

// RunTick runs the dataflow until the current tick ends. Returns true if
// any work was done.
func (s *Scheduler) RunTick() bool {
	workDone := false
	for s.NextStratum(true) {
		workDone = true
		s.RunStratum()
	}
	return workDone
}

// RunAvailable runs ticks until no more immediately-available work
// remains. Runs at least one tick even with no external events pending.
// If the graph contains loops that never terminate, this may run
// forever. Returns true if any work was done.
func (s *Scheduler) RunAvailable() bool {
	workDone := false
	for s.NextStratum(false) {
		workDone = true
		s.RunStratum()
	}
	return workDone
}

// RunAvailableAsync is RunAvailable, yielding the goroutine scheduler once
// per stratum (Go's cooperative-yield stand-in for the Rust original's
// `tokio::task::yield_now().await`) so other goroutines — in particular
// anything feeding the Reactor — get a chance to run between strata.
func (s *Scheduler) RunAvailableAsync(ctx context.Context) bool {
	workDone := false
	for s.NextStratum(false) {
		workDone = true
		s.RunStratum()
		runtime.Gosched()
		select {
		case <-ctx.Done():
			return workDone
		default:
		}
	}
	return workDone
}

// Run drives the scheduler forever, one tick at a time.
func (s *Scheduler) Run() {
	for {
		s.RunTick()
	}
}

// RunAsync drives the scheduler forever: run whatever is immediately
// available, then block for the next external event.
func (s *Scheduler) RunAsync(ctx context.Context) {
	for {
		s.RunAvailableAsync(ctx)
		if ctx.Err() != nil {
			return
		}
		if _, ok := s.RecvEventsAsync(ctx); !ok {
			return
		}
	}
}

// RunStratum drains the FIFO queue for the current stratum, running every
// subgraph popped from it, until the queue is empty. Returns true if any
// work was done. See spec.md §4.3.
func (s *Scheduler) RunStratum() bool {
	s.ctx.spawnRequestedTasks(s.tasks)

	workDone := false

pop:
	for {
		sgID, ok := s.ctx.stratumQueues[s.ctx.currentStratum].popFront()
		if !ok {
			break
		}
		s.metrics.queueDepth(s.ctx.currentStratum, s.ctx.stratumQueues[s.ctx.currentStratum].len())

		sgData := s.subgraphs.MustGet(sgID)
		if !sgData.isScheduled {
			panic("stratumflow: popped subgraph was not marked scheduled (protocol violation)")
		}
		sgData.isScheduled = false

		switch {
		case sgData.loopDepth > len(s.ctx.loopNonceStack):
			s.ctx.loopNonce++
			s.ctx.loopNonceStack = append(s.ctx.loopNonceStack, s.ctx.loopNonce)
		case sgData.loopDepth < len(s.ctx.loopNonceStack):
			s.ctx.loopNonceStack = s.ctx.loopNonceStack[:len(s.ctx.loopNonceStack)-1]
		}

		s.ctx.subgraphID = sgID
		s.ctx.isFirstRunThisTick = sgData.lastTickRunIn == nil || *sgData.lastTickRunIn < s.ctx.currentTick

		if sgData.loopID != nil {
			loopID := *sgData.loopID
			loop := s.loops.MustGet(loopID)

			var currNonce *uint64
			if n := len(s.ctx.loopNonceStack); n > 0 {
				v := s.ctx.loopNonceStack[n-1]
				currNonce = &v
			}

			var currIterCount int
			var newLoopExecution bool

			sameExecution := currNonce == nil || *currNonce == sgData.lastLoopNonce.nonce
			if sameExecution {
				if loop.iterCount != nil && sgData.lastLoopNonce.iterCount != nil && *loop.iterCount == *sgData.lastLoopNonce.iterCount {
					if !loop.allowAnotherIteration {
						continue pop
					}
					loop.allowAnotherIteration = false
					currIterCount = *loop.iterCount + 1
					newLoopExecution = false
				} else if loop.iterCount == nil && sgData.lastLoopNonce.iterCount == nil {
					// Neither the loop nor this subgraph has run an
					// iteration yet: first iteration of a fresh execution.
					if !loop.allowAnotherIteration {
						continue pop
					}
					loop.allowAnotherIteration = false
					currIterCount = 0
					newLoopExecution = true
				} else {
					// Catch-up: the loop has iterated further than this
					// subgraph has observed. Jump forward without firing
					// intermediate per-iteration hooks (see DESIGN.md,
					// "catch-up" open question).
					currIterCount = *loop.iterCount
					newLoopExecution = false
				}
			} else {
				currIterCount = 0
				newLoopExecution = true
			}

			if newLoopExecution {
				s.ctx.runStateHooksLoop(loopID)
			}
			if newLoopExecution || loop.iterCount == nil || *loop.iterCount != currIterCount {
				s.metrics.loopIteration()
			}

			loop.iterCount = &currIterCount
			s.ctx.loopIterCount = currIterCount
			var nonceVal uint64
			if currNonce != nil {
				nonceVal = *currNonce
			}
			ic := currIterCount
			sgData.lastLoopNonce = loopNonce{nonce: nonceVal, iterCount: &ic}
		}

		s.ctx.runStateHooksSubgraph(sgID)

		recv, send := s.resolvePorts(sgData)
		s.logger.Debug("running subgraph", "tick", s.ctx.currentTick, "stratum", s.ctx.currentStratum, "subgraph", sgID.String())
		sgData.body(s.ctx, recv, send)
		s.metrics.subgraph()

		tick := s.ctx.currentTick
		sgData.lastTickRunIn = &tick

		for _, hID := range sgData.succs {
			hData := s.handoffs.MustGet(hID)
			if hData.handoff.IsBottom() {
				continue
			}
			for _, succID := range hData.succs {
				succData := s.subgraphs.MustGet(succID)
				if succData.stratum < s.ctx.currentStratum && !sgData.isLazy {
					s.ctx.canStartTick = true
				}
				if !succData.isScheduled {
					succData.isScheduled = true
					s.ctx.stratumQueues[succData.stratum].pushBack(succID)
					s.metrics.queueDepth(succData.stratum, s.ctx.stratumQueues[succData.stratum].len())
				}
				if succData.loopDepth > 0 {
					s.ctx.stratumStack.push(succData.loopDepth, succData.stratum)
				}
			}
		}

		reschedule := s.ctx.rescheduleLoopBlock
		allowAnother := s.ctx.allowAnotherIteration
		s.ctx.rescheduleLoopBlock = false
		s.ctx.allowAnotherIteration = false

		if reschedule {
			s.ctx.scheduleDeferred = append(s.ctx.scheduleDeferred, sgID)
			s.ctx.stratumStack.push(sgData.loopDepth, sgData.stratum)
		}
		if reschedule || allowAnother {
			if sgData.loopID != nil {
				s.loops.MustGet(*sgData.loopID).allowAnotherIteration = true
			}
		}

		workDone = true
	}

	s.metrics.stratum()
	return workDone
}

// NextStratum advances the stratum/tick cursor to the next stratum with
// immediately available work, possibly the current one. Returns false if
// no work is immediately available anywhere (in which case the scheduler
// is left at stratum 0, able to receive more external events). See
// spec.md §4.3.
func (s *Scheduler) NextStratum(currentTickOnly bool) bool {
	endStratum := s.ctx.currentStratum
	newTickStarted := false

	if s.ctx.currentStratum == 0 {
		newTickStarted = true
		s.ctx.canStartTick = false
		s.ctx.currentTickStart = time.Now()

		if !s.ctx.eventsReceivedTick {
			s.TryRecvEvents()
		}
	}

	for {
		if !s.ctx.stratumQueues[s.ctx.currentStratum].empty() {
			return true
		}

		if next, ok := s.ctx.stratumStack.pop(); ok {
			s.ctx.currentStratum = next
			deferred := s.ctx.scheduleDeferred
			s.ctx.scheduleDeferred = nil
			for _, sgID := range deferred {
				sgData := s.subgraphs.MustGet(sgID)
				if !sgData.isScheduled {
					sgData.isScheduled = true
					s.ctx.stratumQueues[sgData.stratum].pushBack(sgID)
					s.metrics.queueDepth(sgData.stratum, s.ctx.stratumQueues[sgData.stratum].len())
				}
			}
		} else {
			s.ctx.currentStratum++

			if s.ctx.currentStratum >= len(s.ctx.stratumQueues) {
				newTickStarted = true
				s.ctx.runStateHooksTick()
				s.metrics.tick()

				s.ctx.currentStratum = 0
				s.ctx.currentTick++
				s.ctx.eventsReceivedTick = false

				if currentTickOnly {
					return false
				}

				s.TryRecvEvents()
				if s.ctx.canStartTick {
					s.ctx.canStartTick = false
					endStratum = 0
					continue
				}
				s.ctx.eventsReceivedTick = false
				return false
			}
		}

		if newTickStarted && endStratum == s.ctx.currentStratum {
			s.ctx.eventsReceivedTick = false
			s.ctx.currentStratum = 0
			return false
		}
	}
}

// TryRecvEvents enqueues subgraphs triggered by already-pending reactor
// events without blocking. Returns the number of subgraphs newly
// enqueued.
func (s *Scheduler) TryRecvEvents() int {
	enqueued := 0
	for {
		var msg eventMessage
		select {
		case msg = <-s.ctx.eventQueue:
		default:
			s.ctx.eventsReceivedTick = true
			return enqueued
		}
		enqueued += s.deliverEvent(msg)
	}
}

// RecvEvents blocks until at least one external reactor event has been
// received, then drains any further pending events non-blockingly.
// Returns the number of subgraphs newly enqueued; the second result is
// false if the event queue is closed before any subgraph was enqueued —
// the normal shutdown signal.
func (s *Scheduler) RecvEvents() (int, bool) {
	count := 0
	for {
		msg, ok := <-s.ctx.eventQueue
		if !ok {
			return count, count > 0
		}
		count += s.deliverEvent(msg)
		if msg.isExternal {
			break
		}
	}
	s.ctx.eventsReceivedTick = true
	extra := s.TryRecvEvents()
	return count + extra, true
}

// RecvEventsAsync is RecvEvents, suspending on ctx cancellation as well as
// the next event message — Go's equivalent of the Rust original's
// recv_events_async suspension point.
func (s *Scheduler) RecvEventsAsync(ctx context.Context) (int, bool) {
	count := 0
	for {
		select {
		case msg, ok := <-s.ctx.eventQueue:
			if !ok {
				return count, count > 0
			}
			count += s.deliverEvent(msg)
			if msg.isExternal {
				s.ctx.eventsReceivedTick = true
				extra := s.TryRecvEvents()
				return count + extra, true
			}
		case <-ctx.Done():
			return count, count > 0
		}
	}
}

// deliverEvent applies one event message's scheduling effect and returns
// 1 if it newly enqueued a subgraph, 0 otherwise.
func (s *Scheduler) deliverEvent(msg eventMessage) int {
	s.metrics.event(msg.isExternal)
	sgData := s.subgraphs.MustGet(msg.subgraph)
	enqueued := 0
	if !sgData.isScheduled {
		sgData.isScheduled = true
		s.ctx.stratumQueues[sgData.stratum].pushBack(msg.subgraph)
		s.metrics.queueDepth(sgData.stratum, s.ctx.stratumQueues[sgData.stratum].len())
		enqueued = 1
	}
	if msg.isExternal {
		if !s.ctx.eventsReceivedTick || sgData.stratum < s.ctx.currentStratum {
			s.ctx.canStartTick = true
		}
	}
	return enqueued
}

// resolvePorts resolves a subgraph's declared preds/succs handoff ids into
// RecvHandle/SendHandle values immediately before invocation, per
// spec.md §4.2. Each handle holds the Handoff value itself, copied out of
// s.handoffs, so the handles stay usable even if the subgraph body causes
// further handoffs to be inserted (which may move slotVec entries).
func (s *Scheduler) resolvePorts(sgData *subgraphData) ([]RecvHandle, []SendHandle) {
	recv := make([]RecvHandle, len(sgData.preds))
	for i, hID := range sgData.preds {
		recv[i] = RecvHandle{id: hID, handoff: s.handoffs.MustGet(hID).handoff}
	}
	send := make([]SendHandle, len(sgData.succs))
	for i, hID := range sgData.succs {
		send[i] = SendHandle{id: hID, handoff: s.handoffs.MustGet(hID).handoff}
	}
	return recv, send
}

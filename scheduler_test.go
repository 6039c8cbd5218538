package stratumflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noneback/stratumflow"
	"github.com/noneback/stratumflow/handoff"
)

// Scenario A — single stratum identity pipeline.
func TestRunTick_IdentityPipeline(t *testing.T) {
	s := stratumflow.New()
	send, recv := stratumflow.MakeEdge[*handoff.VecHandoff[int]](s, "h", handoff.NewVecHandoff[int]())

	var observed []int
	s.AddSubgraph("src", nil, []stratumflow.HandoffID{send.ID()}, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		h := stratumflow.SendAs[*handoff.VecHandoff[int]](send[0])
		h.Send(1)
		h.Send(2)
		h.Send(3)
	})
	s.AddSubgraph("sink", []stratumflow.HandoffID{recv.ID()}, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		h := stratumflow.RecvAs[*handoff.VecHandoff[int]](recv[0])
		observed = append(observed, h.TakeAll()...)
	})

	s.RunTick()

	assert.Equal(t, []int{1, 2, 3}, observed)
	assert.Equal(t, stratumflow.Tick(1), s.CurrentTick())
}

// Scenario B — stratum ordering: c reads from a stratum-1 input fed by b,
// which itself reads a's stratum-0 output, and must observe a and b
// having already completed.
func TestRunTick_StratumOrdering(t *testing.T) {
	s := stratumflow.New()
	send1, recv1 := stratumflow.MakeEdge[*handoff.VecHandoff[int]](s, "h1", handoff.NewVecHandoff[int]())
	send2, recv2 := stratumflow.MakeEdge[*handoff.VecHandoff[int]](s, "h2", handoff.NewVecHandoff[int]())

	var order []string
	s.AddSubgraphStratified("a", 0, nil, []stratumflow.HandoffID{send1.ID()}, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		order = append(order, "a")
		stratumflow.SendAs[*handoff.VecHandoff[int]](send[0]).Send(1)
	})
	s.AddSubgraphStratified("b", 0, []stratumflow.HandoffID{recv1.ID()}, []stratumflow.HandoffID{send2.ID()}, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		order = append(order, "b")
		stratumflow.RecvAs[*handoff.VecHandoff[int]](recv[0]).TakeAll()
		stratumflow.SendAs[*handoff.VecHandoff[int]](send[0]).Send(2)
	})

	var seen []int
	s.AddSubgraphStratified("c", 1, []stratumflow.HandoffID{recv2.ID()}, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		order = append(order, "c")
		seen = append(seen, stratumflow.RecvAs[*handoff.VecHandoff[int]](recv[0]).TakeAll()...)
	})

	s.RunTick()

	assert.Equal(t, []int{2}, seen)
	require.Len(t, order, 3)
	assert.Equal(t, "c", order[2])
	assert.ElementsMatch(t, []string{"a", "b"}, order[:2])
}

// Scenario C — tick lifetime reset: a Tick-lifespan state hook clears the
// accumulator between ticks, so tick 2's output excludes tick 1's inputs.
func TestRunTick_TickLifespanReset(t *testing.T) {
	s := stratumflow.New()
	in := handoff.NewVecHandoff[int]()
	_, recv := stratumflow.MakeEdge[*handoff.VecHandoff[int]](s, "h", in)

	var perTick [][]int
	var stateHandle stratumflow.StateHandle[[]int]
	var initialized bool

	accID := s.AddSubgraph("acc", []stratumflow.HandoffID{recv.ID()}, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		if !initialized {
			stateHandle = stratumflow.AddState(ctx, []int{})
			stratumflow.SetStateLifespanHook(ctx, stateHandle, stratumflow.TickLifespan, func(v *[]int) { *v = (*v)[:0] })
			initialized = true
		}
		acc := stratumflow.GetState(ctx, stateHandle)
		*acc = append(*acc, stratumflow.RecvAs[*handoff.VecHandoff[int]](recv[0]).TakeAll()...)
		perTick = append(perTick, append([]int(nil), (*acc)...))
	})

	in.Send(1)
	in.Send(2)
	s.RunTick()

	// acc has no producer subgraph feeding it (in.Send is a raw push, not
	// dataflow through a scheduled edge), so nothing schedules it again
	// for the second tick automatically — feed it the same way the
	// reactor would.
	in.Send(3)
	in.Send(4)
	s.ScheduleSubgraph(accID)
	s.RunTick()

	require.Len(t, perTick, 2)
	assert.Equal(t, []int{1, 2}, perTick[0])
	assert.Equal(t, []int{3, 4}, perTick[1])
}

// Scenario D — loop with allow_another_iteration: body runs exactly 6
// times within one tick, observing loop_iter_count 0..5 in order.
func TestRunTick_LoopAllowAnotherIteration(t *testing.T) {
	s := stratumflow.New()
	loopID := s.AddLoop(nil)

	var iters []int
	var bodyID stratumflow.SubgraphID
	bodyID = s.AddSubgraphFull("body", 0, nil, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		iters = append(iters, ctx.LoopIterCount())
		if ctx.LoopIterCount() < 5 {
			// A single-stratum loop re-enters the ordinary stratum queue
			// directly (the way a self-loop successor edge would), rather
			// than through RescheduleLoopBlock's cross-stratum revisit
			// path — see DESIGN.md.
			ctx.AllowAnotherIteration()
			s.ScheduleSubgraph(bodyID)
		}
	}, &loopID, false)

	s.RunTick()

	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, iters)
}

// Scenario E — external event crossing a tick boundary: a subgraph with
// no ports is scheduled purely by the reactor.
func TestRunAvailable_ExternalEventCrossesTickBoundary(t *testing.T) {
	s := stratumflow.New()
	var runs int
	r := s.AddSubgraph("r", nil, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		runs++
	})

	// r was auto-scheduled at AddSubgraph time (every subgraph is): drain
	// that first so the reactor path below is observed cleanly.
	s.RunAvailable()
	runs = 0

	assert.False(t, s.RunAvailable())
	assert.Equal(t, 0, runs)

	s.Reactor().Schedule(r)
	assert.True(t, s.RunAvailable())
	assert.Equal(t, 1, runs)
}

// Scenario F — teeing fan-out: both branches observe a send to the root;
// after dropping one branch, only the remaining branch observes further
// sends.
func TestRunTick_TeeingFanOut(t *testing.T) {
	s := stratumflow.New()
	root := handoff.NewTeeingHandoff[int]()
	sendRoot, _ := stratumflow.MakeEdge[*handoff.TeeingHandoff[int]](s, "h", root)

	var producedTick int
	producer := s.AddSubgraph("producer", nil, []stratumflow.HandoffID{sendRoot.ID()}, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		h := stratumflow.SendAs[*handoff.TeeingHandoff[int]](send[0])
		if producedTick == 0 {
			h.Send(100)
			h.Send(200)
		} else {
			h.Send(300)
		}
		producedTick++
	})

	// Tee branches are attached after the producer is wired, so the new
	// branches get appended to the producer's own successor list too.
	sendA, recvA := stratumflow.TeeingHandoffTee[*handoff.TeeingHandoff[int]](s, sendRoot.ID())
	sendB, recvB := stratumflow.TeeingHandoffTee[*handoff.TeeingHandoff[int]](s, sendRoot.ID())
	_ = sendA
	_ = sendB

	var seenA, seenB []int
	s.AddSubgraph("ca", []stratumflow.HandoffID{recvA.ID()}, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		seenA = append(seenA, stratumflow.RecvAs[*handoff.TeeingHandoff[int]](recv[0]).TakeAll()...)
	})
	s.AddSubgraph("cb", []stratumflow.HandoffID{recvB.ID()}, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		seenB = append(seenB, stratumflow.RecvAs[*handoff.TeeingHandoff[int]](recv[0]).TakeAll()...)
	})

	s.RunTick()
	assert.Equal(t, []int{100, 200}, seenA)
	assert.Equal(t, []int{100, 200}, seenB)

	s.TeeingHandoffDrop(recvB.ID())

	s.ScheduleSubgraph(producer)
	s.RunTick()
	assert.Equal(t, []int{100, 200, 300}, seenA)
	assert.Equal(t, []int{100, 200}, seenB, "dropped branch must not observe further sends")
}

// Round-trip law: schedule_subgraph(s) twice in a row returns true then
// false.
func TestScheduleSubgraph_Idempotent(t *testing.T) {
	s := stratumflow.New()
	sg := s.AddSubgraph("sg", []stratumflow.HandoffID{mustEdge(t, s).ID()}, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {})

	// sg starts scheduled from construction (every subgraph does); drain
	// that before exercising the idempotency of ScheduleSubgraph itself.
	s.RunAvailable()

	assert.True(t, s.ScheduleSubgraph(sg))
	assert.False(t, s.ScheduleSubgraph(sg))
}

func mustEdge(t *testing.T, s *stratumflow.Scheduler) stratumflow.RecvPort[*handoff.VecHandoff[int]] {
	t.Helper()
	_, recv := stratumflow.MakeEdge[*handoff.VecHandoff[int]](s, "scratch", handoff.NewVecHandoff[int]())
	return recv
}

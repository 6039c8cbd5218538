package stratumflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noneback/stratumflow"
	"github.com/noneback/stratumflow/handoff"
)

func TestAddSubgraphFull_UnknownHandoffPanics(t *testing.T) {
	s := stratumflow.New()
	assert.Panics(t, func() {
		s.AddSubgraph("sg", []stratumflow.HandoffID{999}, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {})
	})
}

func TestAddSubgraphFull_MultipleWritersPanics(t *testing.T) {
	s := stratumflow.New()
	_, recv := stratumflow.MakeEdge[*handoff.VecHandoff[int]](s, "h", handoff.NewVecHandoff[int]())

	s.AddSubgraph("writer1", nil, []stratumflow.HandoffID{recv.ID()}, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {})

	assert.Panics(t, func() {
		s.AddSubgraph("writer2", nil, []stratumflow.HandoffID{recv.ID()}, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {})
	})
}

func TestAddLoop_ForeignLoopPanics(t *testing.T) {
	s1 := stratumflow.New()
	s2 := stratumflow.New()
	foreignLoop := s1.AddLoop(nil)

	assert.Panics(t, func() {
		s2.AddLoop(&foreignLoop)
	})
}

func TestAddLoop_NestedDepth(t *testing.T) {
	s := stratumflow.New()
	outer := s.AddLoop(nil)
	inner := s.AddLoop(&outer)

	// Depth is only observable indirectly through AddSubgraphFull not
	// panicking when given a loop id from the same scheduler.
	assert.NotPanics(t, func() {
		s.AddSubgraphFull("sg", 0, nil, nil, func(ctx *stratumflow.Context, recv []stratumflow.RecvHandle, send []stratumflow.SendHandle) {}, &inner, false)
	})
}

func TestRecvSendAs_TypeMismatchPanics(t *testing.T) {
	s := stratumflow.New()
	_, recv := stratumflow.MakeEdge[*handoff.VecHandoff[int]](s, "h", handoff.NewVecHandoff[int]())

	var handle stratumflow.RecvHandle
	s.AddSubgraph("sg", []stratumflow.HandoffID{recv.ID()}, nil, func(ctx *stratumflow.Context, recvH []stratumflow.RecvHandle, send []stratumflow.SendHandle) {
		handle = recvH[0]
	})
	s.RunTick()

	assert.Panics(t, func() {
		stratumflow.RecvAs[*handoff.VecHandoff[string]](handle)
	})
}

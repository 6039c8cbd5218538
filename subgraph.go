package stratumflow

// SubgraphFn is the body of a subgraph: an executable unit of user code
// bound to a fixed set of input and output handoff ports. recv and send
// are resolved by the scheduler immediately before invocation, in port
// declaration order, from the ids passed to AddSubgraphFull. The body
// downcasts each handle to its concrete handoff type with RecvAs/SendAs.
type SubgraphFn func(ctx *Context, recv []RecvHandle, send []SendHandle)

// loopNonce pairs a loop execution's nonce with the iteration count the
// subgraph last observed within it. See spec.md §4.3 step 4 and the "Loop
// nonce stack vs. iteration count" design note: this pair must live on the
// subgraph, not the loop, because distinct subgraphs in the same loop can
// sit at different positions on the stratum stack.
type loopNonce struct {
	nonce     uint64
	iterCount *int
}

// subgraphData is the graph store's record for one subgraph id: see
// spec.md §3 "Subgraph record".
type subgraphData struct {
	name    string
	stratum int
	body    SubgraphFn

	preds []HandoffID
	succs []HandoffID

	isScheduled bool

	lastTickRunIn *Tick
	lastLoopNonce loopNonce

	isLazy bool

	loopID    *LoopID
	loopDepth int
}

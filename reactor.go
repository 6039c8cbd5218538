package stratumflow

// Reactor is a cloneable handle for pushing subgraphs into the scheduler's
// event queue from outside the driving loop, including from other
// goroutines. Reactor is a small value type (a channel send-end); copying
// it is the same as the Rust original's Clone — every copy feeds the same
// underlying queue.
//
// Reactor events are always considered external: they are the mechanism
// by which something outside the cooperative scheduler wakes it up. See
// spec.md §4.5.
type Reactor struct {
	send chan<- eventMessage
}

// Schedule enqueues sg to run, waking a blocked RecvEvents/RecvEventsAsync
// call if one is waiting. Safe to call concurrently from many goroutines.
func (r Reactor) Schedule(sg SubgraphID) {
	r.send <- eventMessage{subgraph: sg, isExternal: true}
}

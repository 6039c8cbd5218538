// Package stratumflow implements the tick-and-stratum scheduler at the core
// of a distributed dataflow runtime: a directed graph of subgraphs
// communicating through typed handoffs, with structured support for nested
// loop blocks.
//
// The scheduler is single-threaded and cooperative. All mutation of the
// graph store, context, and handoffs happens on the thread that calls the
// driving methods (RunTick, RunAvailable, RunStratum, ...). Parallelism is
// expressed only through deferred tasks handed to the host runtime and
// through the Reactor, which lets other goroutines enqueue subgraphs for a
// future tick.
//
// # Building a graph
//
// A graph is assembled with a Scheduler, MakeEdge to create handoffs, and
// AddSubgraph/AddSubgraphStratified/AddSubgraphFull to bind subgraph bodies
// to ports. AddLoop creates nested loop blocks whose member subgraphs
// iterate together under the scheduler's loop-nonce bookkeeping.
//
// # Driving a graph
//
// RunTick advances through strata until the current tick ends. RunAvailable
// keeps running ticks until no more immediately-available work remains.
// Run loops forever. The Reactor lets external goroutines wake the
// scheduler by scheduling a subgraph from outside the driving loop.
package stratumflow

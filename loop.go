package stratumflow

// loopData is the per-loop-id bookkeeping described in spec.md §3 "Loop
// record": the iteration counter (nil before the first iteration, then 0,
// 1, 2, ...) and whether the loop has reason to run another iteration.
// The parent link given to AddLoop is not stored; only each loop's depth
// is kept, in Scheduler.loopDepth keyed by LoopID, since multiple
// components (AddSubgraphFull, AddLoop) need it independently of any one
// loopData entry.
type loopData struct {
	iterCount             *int
	allowAnotherIteration bool
}

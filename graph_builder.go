package stratumflow

// MakeEdge allocates a new handoff wrapping h, and returns the typed
// send/recv port pair used to wire it into subgraphs via AddSubgraphFull.
// See spec.md §4.4 "make_edge".
func MakeEdge[H Handoff](s *Scheduler, name string, h H) (SendPort[H], RecvPort[H]) {
	id := s.handoffs.Insert(func(id HandoffID) handoffData {
		return newHandoffData(name, h, id)
	})
	return SendPort[H]{id: id}, RecvPort[H]{id: id}
}

// AddSubgraph registers a subgraph at stratum 0, reading from preds and
// writing to succs, with body invoked as fn. This is the common case;
// see AddSubgraphStratified for an explicit stratum and AddSubgraphFull
// for loop-block membership.
func (s *Scheduler) AddSubgraph(name string, preds []HandoffID, succs []HandoffID, fn SubgraphFn) SubgraphID {
	return s.AddSubgraphStratified(name, 0, preds, succs, fn)
}

// AddSubgraphStratified is AddSubgraph with an explicit stratum number.
func (s *Scheduler) AddSubgraphStratified(name string, stratum int, preds []HandoffID, succs []HandoffID, fn SubgraphFn) SubgraphID {
	return s.AddSubgraphFull(name, stratum, preds, succs, fn, nil, false)
}

// AddSubgraphNM is AddSubgraph for a subgraph with n > 1 input ports and
// m > 1 output ports; preds/succs are declared the same way as the 1:1
// case; the distinction lives entirely in how many ports a well-typed
// SubgraphFn chooses to index into recv/send.
func (s *Scheduler) AddSubgraphNM(name string, preds []HandoffID, succs []HandoffID, fn SubgraphFn) SubgraphID {
	return s.AddSubgraphStratified(name, 0, preds, succs, fn)
}

// AddSubgraphFull is the general form: it additionally accepts an
// enclosing loop id (nil for a top-level subgraph) and an isLazy flag.
// See spec.md §4.4 "add_subgraph_full" and §4.3 step 4's description of
// isLazy's effect on can_start_tick.
func (s *Scheduler) AddSubgraphFull(name string, stratum int, preds []HandoffID, succs []HandoffID, fn SubgraphFn, loopID *LoopID, isLazy bool) SubgraphID {
	for _, h := range preds {
		if s.handoffs.Get(h) == nil {
			panic(ErrUnknownHandoff)
		}
	}
	for _, h := range succs {
		if s.handoffs.Get(h) == nil {
			panic(ErrUnknownHandoff)
		}
	}

	depth := 0
	if loopID != nil {
		d, ok := s.loopDepth[*loopID]
		if !ok {
			panic(ErrForeignLoop)
		}
		depth = d
	}

	sgID := s.subgraphs.Insert(func(id SubgraphID) subgraphData {
		return subgraphData{
			name:      name,
			stratum:   stratum,
			body:      fn,
			preds:     append([]HandoffID(nil), preds...),
			succs:     append([]HandoffID(nil), succs...),
			isLazy:    isLazy,
			loopID:    loopID,
			loopDepth: depth,
		}
	})

	s.ctx.initStratum(stratum)

	for _, hID := range preds {
		hData := s.handoffs.MustGet(hID)
		hData.succs = append(hData.succs, sgID)
	}
	for _, hID := range succs {
		hData := s.handoffs.MustGet(hID)
		if len(hData.preds) > 0 {
			panic(wrapf(ErrMultipleWriters, "handoff %s", hID))
		}
		hData.preds = append(hData.preds, sgID)
	}

	// Every subgraph starts scheduled and on its stratum queue, regardless
	// of whether it has predecessors — the graph.rs original does the
	// same unconditionally in add_subgraph_full.
	s.ScheduleSubgraph(sgID)

	return sgID
}

// AddLoop registers a new loop block, nested inside parent (nil for a
// top-level loop), and returns its id. Depth is parent's depth plus one,
// or one for a top-level loop. See spec.md §4.4 "add_loop".
func (s *Scheduler) AddLoop(parent *LoopID) LoopID {
	depth := 1
	if parent != nil {
		parentDepth, ok := s.loopDepth[*parent]
		if !ok {
			panic(ErrForeignLoop)
		}
		depth = parentDepth + 1
	}
	id := s.loops.Insert(func(LoopID) loopData { return loopData{allowAnotherIteration: true} })
	s.loopDepth[id] = depth
	return id
}

// TeeingHandoffTee attaches a new output branch to an existing teeing
// handoff, returning the new branch's send/recv ports (whose ID() is the
// new branch's handoff id). parent may be the tee's root or any existing branch — both
// resolve to the same root. See spec.md §4.4 "teeing_handoff_tee".
func TeeingHandoffTee[H Teeable](s *Scheduler, parent HandoffID) (SendPort[H], RecvPort[H]) {
	// If we're teeing from a child, find the root.
	treeRoot := s.handoffs.MustGet(parent).predHandoffs[0]
	rootData := s.handoffs.MustGet(treeRoot)

	teeable, ok := rootData.handoff.(Teeable)
	if !ok {
		panic("stratumflow: TeeingHandoffTee called on a non-teeable handoff")
	}
	branch := teeable.Tee()
	branchTyped, ok := branch.(H)
	if !ok {
		panic("stratumflow: teed branch is not the expected handoff type")
	}

	rootName := rootData.name
	newID := s.handoffs.Insert(func(id HandoffID) handoffData {
		return handoffData{
			name:         rootName,
			handoff:      branchTyped,
			predHandoffs: []HandoffID{treeRoot},
			succHandoffs: []HandoffID{id},
		}
	})

	// Insert can grow the backing slice, invalidating any pointer fetched
	// before it ran — re-fetch the live entry before mutating it.
	rootData = s.handoffs.MustGet(treeRoot)

	// Go to the root's successors and insert the new tee output.
	rootData.succHandoffs = append(rootData.succHandoffs, newID)

	// If the root's send side has already been wired to a producer
	// subgraph, extend that subgraph's declared successors too, so
	// RunStratum's successor scan reaches the new branch.
	if len(rootData.preds) > 1 {
		panic("stratumflow: tee send side should have at most one producer")
	}
	if len(rootData.preds) == 1 {
		producer := s.subgraphs.MustGet(rootData.preds[0])
		producer.succs = append(producer.succs, newID)
	}

	return SendPort[H]{id: newID}, RecvPort[H]{id: newID}
}

// TeeingHandoffDrop detaches branch from its tee, so future sends to the
// root stop being delivered to it. See spec.md §4.4 "teeing_handoff_drop".
func (s *Scheduler) TeeingHandoffDrop(branch HandoffID) {
	hData := s.handoffs.MustGet(branch)
	teeable, ok := hData.handoff.(Teeable)
	if !ok {
		panic("stratumflow: TeeingHandoffDrop called on a non-teeable handoff")
	}
	teeable.Drop()

	treeRoot := hData.predHandoffs[0]
	rootData := s.handoffs.MustGet(treeRoot)
	rootData.succHandoffs = removeHandoffID(rootData.succHandoffs, branch)

	if len(rootData.preds) > 1 {
		panic("stratumflow: tee send side should have at most one producer")
	}
	if len(rootData.preds) == 1 {
		producer := s.subgraphs.MustGet(rootData.preds[0])
		producer.succs = removeHandoffID(producer.succs, branch)
	}
}

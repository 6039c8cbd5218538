package stratumflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// taskPool is the host-runtime injection point for Context.RequestTask:
// grounded on divinesense's and nop's use of golang.org/x/sync/errgroup
// for bounded concurrent work with shared cancellation. A single
// cancellable context backs every spawned task, so AbortTasks can cancel
// all outstanding work in one call and JoinTasks awaits it.
type taskPool struct {
	group  *errgroup.Group
	ctx    context.Context
	cancel context.CancelFunc
}

func newTaskPool(parent context.Context) *taskPool {
	ctx, cancel := context.WithCancel(parent)
	group, gctx := errgroup.WithContext(ctx)
	return &taskPool{group: group, ctx: gctx, cancel: cancel}
}

func (p *taskPool) spawn(run func(ctx context.Context) error) {
	p.group.Go(func() error { return run(p.ctx) })
}

func (p *taskPool) abort() { p.cancel() }

func (p *taskPool) join() error { return p.group.Wait() }

// spawnRequestedTasks drains ctx's pending task list into the pool. It is
// called on the first RunStratum per spec.md §4.7; subsequent calls are a
// no-op until new tasks are requested.
func (c *Context) spawnRequestedTasks(pool *taskPool) {
	if len(c.tasks) == 0 {
		return
	}
	for _, t := range c.tasks {
		pool.spawn(t.run)
	}
	c.tasks = c.tasks[:0]
}

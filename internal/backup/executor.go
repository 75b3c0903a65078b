package backup

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultWorkers is the worker pool size used when none is configured.
const DefaultWorkers = 1000

// TaskExecutor runs work units with bounded parallelism. A single executor
// is shared by every batch a Coordinator processes; its size is fixed when it
// is created.
type TaskExecutor struct {
	sem  *semaphore.Weighted
	size int
}

// NewTaskExecutor creates an executor running at most size units at once.
// Non-positive sizes use DefaultWorkers.
func NewTaskExecutor(size int) *TaskExecutor {
	if size <= 0 {
		size = DefaultWorkers
	}
	return &TaskExecutor{
		sem:  semaphore.NewWeighted(int64(size)),
		size: size,
	}
}

// Size returns the maximum number of concurrently running units.
func (e *TaskExecutor) Size() int {
	return e.size
}

// NewGroup starts a set of work units whose completion can be awaited
// together. Groups from different batches share the executor's slots.
func (e *TaskExecutor) NewGroup() *TaskGroup {
	return &TaskGroup{executor: e}
}

// TaskGroup tracks the units scheduled for one batch.
type TaskGroup struct {
	executor *TaskExecutor
	wg       sync.WaitGroup
}

// Go schedules task. It returns immediately; the task starts once a worker
// slot is free and always runs to completion.
func (g *TaskGroup) Go(task func()) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		// Acquire only fails on a cancelled context; units are not cancellable.
		_ = g.executor.sem.Acquire(context.Background(), 1)
		defer g.executor.sem.Release(1)
		task()
	}()
}

// Wait blocks until every scheduled task has finished.
func (g *TaskGroup) Wait() {
	g.wg.Wait()
}

package mutprox

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// BatchError reports the batch whose task failed. A failed batch aborts the
// whole rescaling; no partial result is kept.
type BatchError struct {
	Batch Batch
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("mutprox: batch %s (rows %d..%d) failed: %v", e.Batch, e.Batch.Lo, e.Batch.Last(), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// batchTask computes the partial result of one batch.
type batchTask func(ctx context.Context, b Batch) (*PartialResult, error)

// Future is the pending result of a submitted batch.
type Future struct {
	Batch  Batch
	done   chan struct{}
	result *PartialResult
	err    error
}

// Get blocks until the task has finished.
func (f *Future) Get() (*PartialResult, error) {
	<-f.done
	return f.result, f.err
}

// batchExecutor runs one task per batch on a bounded set of goroutines.
//
// Every submitted task delivers exactly one future to the completion queue,
// whatever the pool size, so the orchestrator can receive len(batches)
// futures and then call Wait.
type batchExecutor struct {
	g         *errgroup.Group
	ctx       context.Context
	completed chan *Future
}

// newBatchExecutor creates an executor with the given number of workers.
// capacity must be at least the number of tasks that will be submitted.
func newBatchExecutor(ctx context.Context, workers, capacity int) *batchExecutor {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	return &batchExecutor{
		g:         g,
		ctx:       gctx,
		completed: make(chan *Future, max(capacity, 1)),
	}
}

// Submit schedules task for b. It blocks while all workers are busy.
func (x *batchExecutor) Submit(b Batch, task batchTask) *Future {
	f := &Future{Batch: b, done: make(chan struct{})}
	x.g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &BatchError{Batch: b, Err: fmt.Errorf("panic: %v", r)}
			}
			f.err = err
			close(f.done)
			x.completed <- f
		}()
		if cerr := x.ctx.Err(); cerr != nil {
			return &BatchError{Batch: b, Err: cerr}
		}
		res, terr := task(x.ctx, b)
		if terr != nil {
			return &BatchError{Batch: b, Err: terr}
		}
		f.result = res
		return nil
	})
	return f
}

// Next blocks until the next submitted task has finished, in completion order.
func (x *batchExecutor) Next() *Future {
	return <-x.completed
}

// Wait blocks until every task has returned and reports the first failure.
func (x *batchExecutor) Wait() error {
	return x.g.Wait()
}

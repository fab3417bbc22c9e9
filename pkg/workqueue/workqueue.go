// Package workqueue provides the bounded parallel task queue the
// commit and activation phases run on. Each multi-item phase enqueues
// all of its tasks and then joins; task errors are collected rather
// than aborting in-flight siblings.
package workqueue

import (
	"sync"

	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
)

// Task is one unit of work. A failing task returns its error; the
// queue stores it for the next Join.
type Task func() error

// WorkQueue executes tasks on a fixed number of workers. The queue is
// reusable: after Join returns, more tasks may be enqueued.
type WorkQueue struct {
	name  string
	tasks chan Task

	mu      sync.Mutex
	cond    *sync.Cond
	pending int
	errs    []error

	closeOnce sync.Once
	done      chan struct{}
}

// NewWorkQueue creates a queue with the given buffer depth and worker
// count. Enqueue blocks while the buffer is full.
func NewWorkQueue(maxItems, parallelism int) *WorkQueue {
	if maxItems <= 0 {
		maxItems = 25000
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	q := &WorkQueue{
		tasks: make(chan Task, maxItems),
		done:  make(chan struct{}),
	}
	q.cond = sync.NewCond(&q.mu)

	for i := 0; i < parallelism; i++ {
		go q.worker()
	}

	return q
}

// SetName names the queue for log output.
func (q *WorkQueue) SetName(name string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.name = name
}

func (q *WorkQueue) worker() {
	for {
		select {
		case task := <-q.tasks:
			err := task()

			q.mu.Lock()
			if err != nil {
				q.errs = append(q.errs, err)
			}
			q.pending--
			if q.pending == 0 {
				q.cond.Broadcast()
			}
			q.mu.Unlock()
		case <-q.done:
			return
		}
	}
}

// Enqueue adds a task. Blocks while the queue buffer is full.
func (q *WorkQueue) Enqueue(task Task) {
	q.mu.Lock()
	q.pending++
	q.mu.Unlock()

	q.tasks <- task
}

// Join blocks until every enqueued task has finished. Tasks enqueued
// by other goroutines while Join waits are waited for as well.
func (q *WorkQueue) Join() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.pending > 0 {
		q.cond.Wait()
	}
}

// HasExceptions reports whether any task has failed since the last
// ClearExceptions.
func (q *WorkQueue) HasExceptions() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.errs) > 0
}

// Exceptions returns a snapshot of the collected task errors.
func (q *WorkQueue) Exceptions() []error {
	q.mu.Lock()
	defer q.mu.Unlock()

	errs := make([]error, len(q.errs))
	copy(errs, q.errs)
	return errs
}

// ClearExceptions discards the collected task errors.
func (q *WorkQueue) ClearExceptions() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.errs = nil
}

// ReportExceptions logs every collected error against the given
// component.
func (q *WorkQueue) ReportExceptions(component string, log *telemetry.Logger) {
	if log == nil {
		log = telemetry.NopLogger()
	}

	for _, err := range q.Exceptions() {
		log.NewComponentLogger(component).WithError(err).Error("task failed")
	}
}

// Close stops the workers. Pending tasks that have not started are
// dropped; Close must not race with Enqueue or Join.
func (q *WorkQueue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

package workqueue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gunnarbeutner/icinga2/pkg/telemetry"
)

func TestEnqueueJoinRunsAllTasks(t *testing.T) {
	q := NewWorkQueue(100, 4)
	defer q.Close()

	var count int64
	for i := 0; i < 50; i++ {
		q.Enqueue(func() error {
			atomic.AddInt64(&count, 1)
			return nil
		})
	}

	q.Join()

	if got := atomic.LoadInt64(&count); got != 50 {
		t.Fatalf("expected 50 tasks to run, got %d", got)
	}
	if q.HasExceptions() {
		t.Error("expected no exceptions")
	}
}

func TestExceptionsAreCollectedNotFatal(t *testing.T) {
	q := NewWorkQueue(100, 4)
	defer q.Close()

	var ran int64
	for i := 0; i < 10; i++ {
		i := i
		q.Enqueue(func() error {
			atomic.AddInt64(&ran, 1)
			if i%2 == 0 {
				return errors.New("boom")
			}
			return nil
		})
	}

	q.Join()

	// Already-enqueued sibling tasks still run after failures.
	if got := atomic.LoadInt64(&ran); got != 10 {
		t.Fatalf("expected all 10 tasks to run, got %d", got)
	}
	if !q.HasExceptions() {
		t.Fatal("expected exceptions")
	}
	if got := len(q.Exceptions()); got != 5 {
		t.Errorf("expected 5 collected errors, got %d", got)
	}

	q.ClearExceptions()
	if q.HasExceptions() {
		t.Error("expected no exceptions after ClearExceptions")
	}
}

func TestQueueIsReusableAcrossJoins(t *testing.T) {
	q := NewWorkQueue(10, 2)
	defer q.Close()

	var first, second int64

	q.Enqueue(func() error { atomic.AddInt64(&first, 1); return nil })
	q.Join()

	q.Enqueue(func() error { atomic.AddInt64(&second, 1); return nil })
	q.Join()

	if first != 1 || second != 1 {
		t.Fatalf("expected both phases to run, got %d/%d", first, second)
	}
}

func TestJoinOnEmptyQueueReturns(t *testing.T) {
	q := NewWorkQueue(10, 2)
	defer q.Close()

	q.Join()
}

func TestParallelismBound(t *testing.T) {
	q := NewWorkQueue(100, 3)
	defer q.Close()

	var mu sync.Mutex
	running, peak := 0, 0

	for i := 0; i < 30; i++ {
		q.Enqueue(func() error {
			mu.Lock()
			running++
			if running > peak {
				peak = running
			}
			mu.Unlock()

			mu.Lock()
			running--
			mu.Unlock()
			return nil
		})
	}

	q.Join()

	if peak > 3 {
		t.Errorf("expected at most 3 concurrent tasks, observed %d", peak)
	}
}

func TestReportExceptionsLogs(t *testing.T) {
	q := NewWorkQueue(10, 1)
	defer q.Close()

	q.Enqueue(func() error { return errors.New("boom") })
	q.Join()

	// Must not panic with a nop logger or a nil one.
	q.ReportExceptions("config", telemetry.NopLogger())
	q.ReportExceptions("config", nil)
}

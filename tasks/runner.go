// Package tasks provides a serialized task runner for engine work that
// must execute on one goroutine in scheduled order.
package tasks

import (
	"container/heap"
	"context"
	"log/slog"
	"sync"
	"time"
)

type task struct {
	runAt time.Time
	seq   uint64
	fn    func()
}

// taskQueue orders by due time, then by posting order for equal times.
type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }

func (q taskQueue) Less(i, j int) bool {
	if q[i].runAt.Equal(q[j].runAt) {
		return q[i].seq < q[j].seq
	}
	return q[i].runAt.Before(q[j].runAt)
}

func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *taskQueue) Push(x any) { *q = append(*q, x.(*task)) }

func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// Runner executes posted tasks one at a time on the goroutine that calls
// Run. Tasks posted for the same instant run in posting order. Posting is
// safe from any goroutine, including from inside a running task.
type Runner struct {
	mu    sync.Mutex
	queue taskQueue
	seq   uint64
	wake  chan struct{}
}

// NewRunner builds an idle runner; call Run to start draining it.
func NewRunner() *Runner {
	return &Runner{wake: make(chan struct{}, 1)}
}

// Post schedules fn to run as soon as possible.
func (r *Runner) Post(fn func()) {
	r.PostAt(time.Now(), fn)
}

// PostAfter schedules fn to run once d has elapsed.
func (r *Runner) PostAfter(d time.Duration, fn func()) {
	r.PostAt(time.Now().Add(d), fn)
}

// PostAt schedules fn to run no earlier than at.
func (r *Runner) PostAt(at time.Time, fn func()) {
	r.mu.Lock()
	r.seq++
	heap.Push(&r.queue, &task{runAt: at, seq: r.seq, fn: fn})
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of tasks not yet run.
func (r *Runner) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Run drains tasks until ctx is done and returns ctx.Err(). A panicking
// task is logged and does not stop the runner.
func (r *Runner) Run(ctx context.Context) error {
	timer := time.NewTimer(0)
	defer timer.Stop()
	if !timer.Stop() {
		<-timer.C
	}

	for {
		r.mu.Lock()
		var fn func()
		var wait time.Duration = -1
		if len(r.queue) > 0 {
			if d := time.Until(r.queue[0].runAt); d <= 0 {
				fn = heap.Pop(&r.queue).(*task).fn
			} else {
				wait = d
			}
		}
		r.mu.Unlock()

		if fn != nil {
			runTask(fn)
			continue
		}

		if wait < 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-r.wake:
			}
			continue
		}

		timer.Reset(wait)
		select {
		case <-ctx.Done():
			if !timer.Stop() {
				<-timer.C
			}
			return ctx.Err()
		case <-r.wake:
			if !timer.Stop() {
				<-timer.C
			}
		case <-timer.C:
		}
	}
}

func runTask(fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("panic in posted task", "panic", rec)
		}
	}()
	fn()
}

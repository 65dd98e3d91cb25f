// Package scheduler runs delayed callbacks one at a time on a single
// goroutine, the way a classic select-based event loop does.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// Scheduler invokes fn no earlier than d from now. Callbacks never run
// concurrently with each other.
type Scheduler interface {
	ScheduleAfter(d time.Duration, fn func())
}

type task struct {
	at  time.Time
	seq uint64 // FIFO among equal deadlines
	fn  func()
}

type taskQueue []*task

func (q taskQueue) Len() int { return len(q) }
func (q taskQueue) Less(i, j int) bool {
	if q[i].at.Equal(q[j].at) {
		return q[i].seq < q[j].seq
	}
	return q[i].at.Before(q[j].at)
}
func (q taskQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *taskQueue) Push(x any)   { *q = append(*q, x.(*task)) }
func (q *taskQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// EventLoop is a single-threaded timer queue. Run drives it until no task is
// pending or the context ends.
type EventLoop struct {
	mu    sync.Mutex
	queue taskQueue
	seq   uint64
	wake  chan struct{}
	now   func() time.Time
}

// New creates an empty event loop.
func New() *EventLoop {
	return &EventLoop{
		wake: make(chan struct{}, 1),
		now:  time.Now,
	}
}

// ScheduleAfter queues fn. Negative delays are treated as zero. Safe to call
// from callbacks and from other goroutines.
func (l *EventLoop) ScheduleAfter(d time.Duration, fn func()) {
	if d < 0 {
		d = 0
	}
	l.mu.Lock()
	l.seq++
	heap.Push(&l.queue, &task{at: l.now().Add(d), seq: l.seq, fn: fn})
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of queued callbacks.
func (l *EventLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.queue.Len()
}

// Run executes due callbacks in deadline order on the calling goroutine. It
// returns nil once the queue drains and ctx.Err() if the context ends first.
func (l *EventLoop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		if l.queue.Len() == 0 {
			l.mu.Unlock()
			return nil
		}
		next := l.queue[0]
		wait := next.at.Sub(l.now())
		if wait <= 0 {
			heap.Pop(&l.queue)
			l.mu.Unlock()
			next.fn()
			continue
		}
		l.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-l.wake:
			// an earlier task may have been queued
			timer.Stop()
		case <-timer.C:
		}
	}
}

// FILE: logship/src/internal/queue/queue.go
package queue

import (
	"context"
	"time"

	"logship/src/internal/core"
)

// Queue is a fixed-capacity FIFO between producers and the single writer.
// Offer may be called concurrently; Poll and TryPoll belong to one consumer.
type Queue struct {
	ch chan core.LogRecord
}

// New creates a queue holding at most capacity records
func New(capacity int) *Queue {
	if capacity < 1 {
		capacity = 1
	}
	return &Queue{ch: make(chan core.LogRecord, capacity)}
}

// Offer enqueues rec, waiting up to maxWait for space. It returns false if
// the queue stayed full or ctx was cancelled. A zero maxWait never blocks.
func (q *Queue) Offer(ctx context.Context, rec core.LogRecord, maxWait time.Duration) bool {
	select {
	case q.ch <- rec:
		return true
	default:
	}

	if maxWait <= 0 {
		return false
	}

	timer := time.NewTimer(maxWait)
	defer timer.Stop()

	select {
	case q.ch <- rec:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Poll waits up to timeout for the next record. ok is false on timeout or
// when ctx is done.
func (q *Queue) Poll(ctx context.Context, timeout time.Duration) (rec core.LogRecord, ok bool) {
	select {
	case rec = <-q.ch:
		return rec, true
	default:
	}

	if timeout <= 0 {
		return rec, false
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case rec = <-q.ch:
		return rec, true
	case <-timer.C:
		return rec, false
	case <-ctx.Done():
		return rec, false
	}
}

// TryPoll returns the next record without waiting
func (q *Queue) TryPoll() (rec core.LogRecord, ok bool) {
	select {
	case rec = <-q.ch:
		return rec, true
	default:
		return rec, false
	}
}

func (q *Queue) Len() int { return len(q.ch) }

func (q *Queue) Cap() int { return cap(q.ch) }

package output

import (
	"time"

	"firehose/internal/constants"
)

// Record is one serialized line waiting to be written downstream. Synthetic
// records are generated by the relay rather than received from upstream.
type Record struct {
	EventType string
	Data      []byte
	Synthetic bool
}

type entry struct {
	Record
	enqueued time.Time
}

// Queue is a FIFO of serialized records waiting for the rate limiter.
// A capacity of 0 leaves it unbounded.
type Queue struct {
	items      []entry
	head       int
	capacity   int
	dropOldest bool
	overflowed uint64
}

func NewQueue(capacity int, policy string) *Queue {
	return &Queue{
		capacity:   capacity,
		dropOldest: policy != constants.OverflowDropNewest,
	}
}

// Push appends rec. When the queue is full the configured policy discards
// either the oldest queued record or rec itself; dropped reports whether
// anything was lost.
func (q *Queue) Push(rec Record, now time.Time) (dropped bool) {
	if q.capacity > 0 && q.Len() >= q.capacity {
		q.overflowed++
		if !q.dropOldest {
			return true
		}
		q.pop()
		dropped = true
	}
	q.items = append(q.items, entry{Record: rec, enqueued: now})
	return dropped
}

func (q *Queue) pop() (entry, bool) {
	if q.Len() == 0 {
		return entry{}, false
	}
	e := q.items[q.head]
	q.items[q.head] = entry{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	} else if q.head > 1024 && q.head*2 > len(q.items) {
		q.items = append(q.items[:0:0], q.items[q.head:]...)
		q.head = 0
	}
	return e, true
}

func (q *Queue) Len() int {
	return len(q.items) - q.head
}

// Overflowed counts records discarded because the queue was full.
func (q *Queue) Overflowed() uint64 {
	return q.overflowed
}

package output

import (
	"time"

	"golang.org/x/time/rate"

	"firehose/pkg/metrics"
)

// Limiter releases queued records no faster than its ceiling. Drain is called
// on every scheduler tick and releases at most one record per call.
type Limiter struct {
	queue   *Queue
	limiter *rate.Limiter
}

func NewLimiter(queue *Queue, maxPerSecond float64) *Limiter {
	return &Limiter{
		queue:   queue,
		limiter: rate.NewLimiter(rate.Limit(maxPerSecond), 1),
	}
}

// Drain pops the head of the queue if the ceiling allows a release at now.
// Tokens are only spent when something is waiting.
func (l *Limiter) Drain(now time.Time) (Record, bool) {
	if l.queue.Len() == 0 {
		return Record{}, false
	}
	if !l.limiter.AllowN(now, 1) {
		return Record{}, false
	}
	e, _ := l.queue.pop()
	metrics.ObserveQueueWait(now.Sub(e.enqueued))
	return e.Record, true
}

func (l *Limiter) Queue() *Queue {
	return l.queue
}

package relay

import (
	"time"
)

// schedule owns every periodic task of a session. stop must run on all exit
// paths; the session defers it right after creation.
type schedule struct {
	drain     *time.Ticker
	keepAlive *time.Ticker
	stats     *time.Ticker
}

// newSchedule starts the tickers. A zero interval leaves that task disabled.
func newSchedule(drainEvery, keepAliveEvery, statsEvery time.Duration) *schedule {
	return &schedule{
		drain:     startTicker(drainEvery),
		keepAlive: startTicker(keepAliveEvery),
		stats:     startTicker(statsEvery),
	}
}

func startTicker(d time.Duration) *time.Ticker {
	if d <= 0 {
		return nil
	}
	return time.NewTicker(d)
}

// tick returns the ticker channel, or nil so a select never fires on it.
func tick(t *time.Ticker) <-chan time.Time {
	if t == nil {
		return nil
	}
	return t.C
}

func (s *schedule) drainC() <-chan time.Time     { return tick(s.drain) }
func (s *schedule) keepAliveC() <-chan time.Time { return tick(s.keepAlive) }
func (s *schedule) statsC() <-chan time.Time     { return tick(s.stats) }

func (s *schedule) stop() {
	for _, t := range []*time.Ticker{s.drain, s.keepAlive, s.stats} {
		if t != nil {
			t.Stop()
		}
	}
}

// keepAliveCheckEvery polls at a quarter of the interval so an idle client
// gets a keep-alive within 1.25 intervals even after an organic one reset it.
func keepAliveCheckEvery(interval time.Duration) time.Duration {
	if interval <= 0 {
		return 0
	}
	return interval / 4
}

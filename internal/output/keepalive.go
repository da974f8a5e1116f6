package output

import (
	"time"

	"firehose/internal/config"
	"firehose/pkg/models"
)

// KeepAlive tracks when the client last saw a keep-alive record, synthetic or
// forwarded from upstream.
type KeepAlive struct {
	enabled      bool
	interval     time.Duration
	includeStats bool
	last         time.Time
}

func NewKeepAlive(cfg config.KeepAliveConfig, now time.Time) *KeepAlive {
	return &KeepAlive{
		enabled:      cfg.Enabled && cfg.Interval > 0,
		interval:     cfg.Interval,
		includeStats: cfg.IncludeStats,
		last:         now,
	}
}

func (k *KeepAlive) Enabled() bool {
	return k.enabled
}

func (k *KeepAlive) Due(now time.Time) bool {
	return k.enabled && now.Sub(k.last) >= k.interval
}

// Observe resets the timer after an organic keep-alive was forwarded.
func (k *KeepAlive) Observe(now time.Time) {
	k.last = now
}

// Build serializes a synthetic keep-alive and resets the timer.
func (k *KeepAlive) Build(now time.Time, stats models.StatsSnapshot) ([]byte, error) {
	b := models.NewKeepAliveBuilder().WithTimestamp(now)
	if k.includeStats {
		b = b.WithStats(stats)
	}
	data, err := b.Build()
	if err != nil {
		return nil, err
	}
	k.last = now
	return data, nil
}

package models

import (
	"encoding/json"
	"time"
)

type KeepAliveBuilder struct {
	timestamp time.Time
	stats     *StatsSnapshot
}

func NewKeepAliveBuilder() *KeepAliveBuilder {
	return &KeepAliveBuilder{}
}

func (b *KeepAliveBuilder) WithTimestamp(timestamp time.Time) *KeepAliveBuilder {
	b.timestamp = timestamp
	return b
}

func (b *KeepAliveBuilder) WithStats(stats StatsSnapshot) *KeepAliveBuilder {
	b.stats = &stats
	return b
}

type keepAliveRecord struct {
	EventType       string         `json:"eventType"`
	Timestamp       string         `json:"timestamp"`
	RecordTimestamp int64          `json:"recordTimestamp"`
	Synthetic       bool           `json:"synthetic"`
	Stats           *StatsSnapshot `json:"stats,omitempty"`
}

// Build serializes the keep-alive record without a trailing newline.
func (b *KeepAliveBuilder) Build() ([]byte, error) {
	if b.timestamp.IsZero() {
		b.timestamp = time.Now()
	}
	ts := b.timestamp.UTC()
	return json.Marshal(keepAliveRecord{
		EventType:       EventTypeKeepAlive,
		Timestamp:       ts.Format("2006-01-02T15:04:05.000Z07:00"),
		RecordTimestamp: ts.UnixMilli(),
		Synthetic:       true,
		Stats:           b.stats,
	})
}

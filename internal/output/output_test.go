package output

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firehose/internal/config"
	"firehose/internal/constants"
	"firehose/pkg/models"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue(0, constants.OverflowDropOldest)
	now := time.Now()
	for i := 0; i < 5000; i++ {
		q.Push(Record{Data: []byte(fmt.Sprint(i))}, now)
	}
	for i := 0; i < 5000; i++ {
		e, ok := q.pop()
		require.True(t, ok)
		require.Equal(t, fmt.Sprint(i), string(e.Data))
	}
	_, ok := q.pop()
	assert.False(t, ok)
	assert.Equal(t, 0, q.Len())
}

func TestQueue_Overflow(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		want   []string
	}{
		{name: "drop oldest", policy: constants.OverflowDropOldest, want: []string{"c", "d", "e"}},
		{name: "drop newest", policy: constants.OverflowDropNewest, want: []string{"a", "b", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(3, tt.policy)
			now := time.Now()
			var dropped int
			for _, s := range []string{"a", "b", "c", "d", "e"} {
				if q.Push(Record{Data: []byte(s)}, now) {
					dropped++
				}
			}
			assert.Equal(t, 2, dropped)
			assert.Equal(t, uint64(2), q.Overflowed())
			assert.Equal(t, 3, q.Len())

			var got []string
			for q.Len() > 0 {
				e, _ := q.pop()
				got = append(got, string(e.Data))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLimiter_Spacing(t *testing.T) {
	tests := []struct {
		name string
		rate float64
		k    int
		tick time.Duration
	}{
		{name: "10 per second, 50ms tick", rate: 10, k: 20, tick: 50 * time.Millisecond},
		{name: "3 per second, 50ms tick", rate: 3, k: 7, tick: 50 * time.Millisecond},
		{name: "100 per second, 1ms tick", rate: 100, k: 50, tick: time.Millisecond},
		{name: "tick coarser than ceiling", rate: 50, k: 10, tick: 50 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(0, constants.OverflowDropOldest)
			l := NewLimiter(q, tt.rate)
			t0 := time.Now()
			for i := 0; i < tt.k; i++ {
				q.Push(Record{Data: []byte(fmt.Sprint(i))}, t0)
			}

			var released []time.Time
			for now := t0; len(released) < tt.k; now = now.Add(tt.tick) {
				rec, ok := l.Drain(now)
				if ok {
					require.Equal(t, fmt.Sprint(len(released)), string(rec.Data), "FIFO order")
					released = append(released, now)
				}
				_, again := l.Drain(now)
				require.False(t, again, "at most one record per tick")
			}

			minGap := time.Duration(float64(tt.k-1) * float64(time.Second) / tt.rate)
			assert.GreaterOrEqual(t, released[tt.k-1].Sub(released[0]), minGap)
		})
	}
}

func TestLimiter_IdleDoesNotBank(t *testing.T) {
	q := NewQueue(0, constants.OverflowDropOldest)
	l := NewLimiter(q, 10)
	t0 := time.Now()

	for i := 0; i < 100; i++ {
		_, ok := l.Drain(t0.Add(time.Duration(i) * 50 * time.Millisecond))
		require.False(t, ok)
	}

	later := t0.Add(10 * time.Second)
	q.Push(Record{Data: []byte("a")}, later)
	q.Push(Record{Data: []byte("b")}, later)

	_, ok := l.Drain(later)
	assert.True(t, ok)
	_, ok = l.Drain(later.Add(50 * time.Millisecond))
	assert.False(t, ok, "burst of one")
	_, ok = l.Drain(later.Add(100 * time.Millisecond))
	assert.True(t, ok)
}

func TestKeepAlive(t *testing.T) {
	t0 := time.Now()
	k := NewKeepAlive(config.KeepAliveConfig{Enabled: true, Interval: 15 * time.Second, IncludeStats: true}, t0)

	assert.False(t, k.Due(t0.Add(14*time.Second)))
	assert.True(t, k.Due(t0.Add(15*time.Second)))

	k.Observe(t0.Add(10 * time.Second))
	assert.False(t, k.Due(t0.Add(15*time.Second)), "organic keep-alive resets the timer")

	at := t0.Add(25 * time.Second)
	require.True(t, k.Due(at))
	data, err := k.Build(at, models.StatsSnapshot{Received: 4, Forwarded: 2, ForwardRatePercent: 50})
	require.NoError(t, err)
	assert.False(t, k.Due(at.Add(time.Second)))

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &rec))
	assert.Equal(t, "KEEP_ALIVE", rec["eventType"])
	assert.Equal(t, true, rec["synthetic"])
	assert.Equal(t, at.UTC().Format("2006-01-02T15:04:05.000Z07:00"), rec["timestamp"])
	stats, ok := rec["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(4), stats["received"])
}

func TestKeepAlive_Disabled(t *testing.T) {
	t0 := time.Now()
	k := NewKeepAlive(config.KeepAliveConfig{Enabled: false, Interval: time.Second}, t0)
	assert.False(t, k.Enabled())
	assert.False(t, k.Due(t0.Add(time.Hour)))

	k = NewKeepAlive(config.KeepAliveConfig{Enabled: true, Interval: time.Second}, t0)
	data, err := k.Build(t0, models.StatsSnapshot{Received: 1})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "stats")
}

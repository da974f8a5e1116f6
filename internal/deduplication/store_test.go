package deduplication

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firehose/pkg/models"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name  string
		a, b  models.Coordinate
		want  float64
		delta float64
	}{
		{name: "identity", a: models.Coordinate{Latitude: 51.5, Longitude: -0.12}, b: models.Coordinate{Latitude: 51.5, Longitude: -0.12}, want: 0, delta: 1e-9},
		{name: "one degree latitude at equator", a: models.Coordinate{}, b: models.Coordinate{Latitude: 1}, want: 111195, delta: 1},
		{name: "one degree longitude at equator", a: models.Coordinate{}, b: models.Coordinate{Longitude: 1}, want: 111195, delta: 1},
		{name: "antipodes", a: models.Coordinate{}, b: models.Coordinate{Longitude: 180}, want: 20015087, delta: 1},
		{name: "small move", a: models.Coordinate{Latitude: 40, Longitude: -74}, b: models.Coordinate{Latitude: 40.0001, Longitude: -74}, want: 11.12, delta: 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Haversine(tt.a, tt.b), tt.delta)
		})
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := models.Coordinate{Latitude: 37.7749, Longitude: -122.4194}
	b := models.Coordinate{Latitude: 34.0522, Longitude: -118.2437}
	assert.InDelta(t, Haversine(a, b), Haversine(b, a), 1e-6)
}

func TestStore_RecordAndGet(t *testing.T) {
	s := NewStore()
	now := time.Now()
	pos := models.Coordinate{Latitude: 1, Longitude: 2}

	_, ok := s.Get("AA:BB")
	assert.False(t, ok)

	s.Record("AA:BB", now, pos)
	rec, ok := s.Get("aa:bb")
	require.True(t, ok, "keys are case-insensitive")
	assert.Equal(t, now, rec.LastForwarded)
	assert.Equal(t, pos, rec.Position)
	assert.Equal(t, 1, s.Len())

	later := now.Add(time.Second)
	s.Record("aa:bb", later, models.Coordinate{Latitude: 3, Longitude: 4})
	rec, _ = s.Get("AA:BB")
	assert.Equal(t, later, rec.LastForwarded)
	assert.Equal(t, 1, s.Len())
}

func TestStore_IsDuplicateInWindow(t *testing.T) {
	s := NewStore()
	t0 := time.Now()
	s.Record("aa", t0, models.Coordinate{})

	assert.True(t, s.IsDuplicateInWindow("aa", t0.Add(4*time.Second), 5*time.Second))
	assert.False(t, s.IsDuplicateInWindow("aa", t0.Add(5*time.Second), 5*time.Second))
	assert.False(t, s.IsDuplicateInWindow("aa", t0, 0), "zero window disables the check")
	assert.False(t, s.IsDuplicateInWindow("bb", t0, 5*time.Second), "unknown device")
}

func TestStore_MovedLessThan(t *testing.T) {
	s := NewStore()
	s.Record("aa", time.Now(), models.Coordinate{Latitude: 40, Longitude: -74})

	assert.True(t, s.MovedLessThan("aa", models.Coordinate{Latitude: 40.00001, Longitude: -74}, 10))
	assert.False(t, s.MovedLessThan("aa", models.Coordinate{Latitude: 40.001, Longitude: -74}, 10))
	assert.False(t, s.MovedLessThan("aa", models.Coordinate{Latitude: 40, Longitude: -74}, 0))
	assert.False(t, s.MovedLessThan("bb", models.Coordinate{}, 10))
}

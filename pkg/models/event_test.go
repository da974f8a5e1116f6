package models

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, line string) Event {
	t.Helper()
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &fields))
	return Event{Fields: fields, Raw: []byte(line)}
}

func TestEventAccessors(t *testing.T) {
	evt := decode(t, `{"eventType":"IOT_TELEMETRY","iotTelemetry":{"deviceInfo":{"deviceMacAddress":"FC:AA:BB:CC:DD:EE"},"detectedPosition":{"latitude":37.0,"longitude":-122.0}}}`)

	assert.True(t, evt.IsTelemetry())
	mac, ok := evt.MACAddress()
	assert.True(t, ok)
	assert.Equal(t, "fc:aa:bb:cc:dd:ee", mac)

	pos, ok := evt.Position()
	assert.True(t, ok)
	assert.Equal(t, Coordinate{Latitude: 37, Longitude: -122}, pos)
}

func TestEventPositionPresence(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		wantOK bool
	}{
		{"missing position", `{"eventType":"IOT_TELEMETRY","iotTelemetry":{}}`, false},
		{"missing longitude", `{"eventType":"IOT_TELEMETRY","iotTelemetry":{"detectedPosition":{"latitude":1}}}`, false},
		{"string latitude", `{"eventType":"IOT_TELEMETRY","iotTelemetry":{"detectedPosition":{"latitude":"1","longitude":2}}}`, false},
		{"null latitude", `{"eventType":"IOT_TELEMETRY","iotTelemetry":{"detectedPosition":{"latitude":null,"longitude":2}}}`, false},
		{"zero is present", `{"eventType":"IOT_TELEMETRY","iotTelemetry":{"detectedPosition":{"latitude":0,"longitude":0}}}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := decode(t, tt.line).Position()
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestEventWithoutTelemetry(t *testing.T) {
	evt := decode(t, `{"eventType":"DEVICE_ENTRY"}`)
	assert.False(t, evt.IsTelemetry())
	_, ok := evt.MACAddress()
	assert.False(t, ok)
	assert.Equal(t, "", Event{}.EventType())
}

func TestCoordinate(t *testing.T) {
	assert.True(t, Coordinate{Latitude: 90, Longitude: -180}.Valid())
	assert.False(t, Coordinate{Latitude: 91, Longitude: 0}.Valid())
	assert.True(t, Coordinate{Latitude: 0, Longitude: 10}.HasZeroComponent())
	assert.False(t, Coordinate{Latitude: 1, Longitude: 10}.HasZeroComponent())
	_, ok := finite(math.Inf(1))
	assert.False(t, ok)
}

func TestKeepAliveBuilder(t *testing.T) {
	ts := time.Date(2026, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	raw, err := NewKeepAliveBuilder().
		WithTimestamp(ts).
		WithStats(StatsSnapshot{Received: 3, Forwarded: 1}).
		Build()
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, "KEEP_ALIVE", got["eventType"])
	assert.Equal(t, "2026-01-02T03:04:05.006Z", got["timestamp"])
	assert.Equal(t, float64(ts.UnixMilli()), got["recordTimestamp"])
	assert.Equal(t, true, got["synthetic"])
	stats := got["stats"].(map[string]interface{})
	assert.Equal(t, float64(3), stats["received"])

	raw, err = NewKeepAliveBuilder().WithTimestamp(ts).Build()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "stats")
}

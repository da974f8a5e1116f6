package models

import (
	"math"
	"strings"
)

// Event is one decoded firehose record. Fields holds the full decoded object;
// Raw holds the original bytes, which are what gets forwarded downstream.
type Event struct {
	Fields map[string]interface{}
	Raw    []byte
}

func (e Event) EventType() string {
	s, _ := e.Fields["eventType"].(string)
	return s
}

func (e Event) IsTelemetry() bool {
	return e.EventType() == EventTypeTelemetry
}

func (e Event) telemetry() map[string]interface{} {
	m, _ := e.Fields["iotTelemetry"].(map[string]interface{})
	return m
}

// MACAddress returns the lower-cased device MAC of a telemetry event.
func (e Event) MACAddress() (string, bool) {
	info, _ := e.telemetry()["deviceInfo"].(map[string]interface{})
	mac, _ := info["deviceMacAddress"].(string)
	mac = strings.ToLower(strings.TrimSpace(mac))
	return mac, mac != ""
}

// Position reports the detected position of a telemetry event. ok is false
// when either coordinate is absent or not a finite number.
func (e Event) Position() (Coordinate, bool) {
	pos, _ := e.telemetry()["detectedPosition"].(map[string]interface{})
	lat, latOK := finite(pos["latitude"])
	lon, lonOK := finite(pos["longitude"])
	if !latOK || !lonOK {
		return Coordinate{}, false
	}
	return Coordinate{Latitude: lat, Longitude: lon}, true
}

func finite(v interface{}) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

const (
	EventTypeTelemetry = "IOT_TELEMETRY"
	EventTypeKeepAlive = "KEEP_ALIVE"
)

type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether the coordinate lies within WGS84 bounds.
func (c Coordinate) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) HasZeroComponent() bool {
	return c.Latitude == 0 || c.Longitude == 0
}

// StatsSnapshot is the counter view attached to synthetic keep-alives and stats logs.
type StatsSnapshot struct {
	Received           uint64            `json:"received"`
	Forwarded          uint64            `json:"forwarded"`
	Malformed          uint64            `json:"malformed"`
	Dropped            map[string]uint64 `json:"dropped,omitempty"`
	Queued             int               `json:"queued"`
	Devices            int               `json:"devices"`
	ForwardRatePercent float64           `json:"forwardRatePercent"`
}

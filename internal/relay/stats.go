package relay

import (
	"sort"

	"firehose/pkg/models"
)

// Stats are the counters of one session. Only the session loop touches them.
type Stats struct {
	Received  uint64
	Forwarded uint64
	Malformed uint64
	Dropped   map[string]uint64
	ByType    map[string]uint64
	ByDevice  map[string]uint64
}

func newStats() *Stats {
	return &Stats{
		Dropped:  make(map[string]uint64),
		ByType:   make(map[string]uint64),
		ByDevice: make(map[string]uint64),
	}
}

func (s *Stats) receive(eventType string) {
	s.Received++
	s.ByType[eventType]++
}

func (s *Stats) drop(reason string) {
	s.Dropped[reason]++
}

// ForwardRate is the forwarded share of received events in percent.
func (s *Stats) ForwardRate() float64 {
	if s.Received == 0 {
		return 0
	}
	return float64(s.Forwarded) / float64(s.Received) * 100
}

func (s *Stats) Snapshot(queued, devices int) models.StatsSnapshot {
	dropped := make(map[string]uint64, len(s.Dropped))
	for k, v := range s.Dropped {
		dropped[k] = v
	}
	return models.StatsSnapshot{
		Received:           s.Received,
		Forwarded:          s.Forwarded,
		Malformed:          s.Malformed,
		Dropped:            dropped,
		Queued:             queued,
		Devices:            devices,
		ForwardRatePercent: s.ForwardRate(),
	}
}

type DeviceCount struct {
	MAC    string `json:"mac"`
	Events uint64 `json:"events"`
}

// TopDevices returns the n devices with the most accepted events.
func (s *Stats) TopDevices(n int) []DeviceCount {
	devices := make([]DeviceCount, 0, len(s.ByDevice))
	for mac, count := range s.ByDevice {
		devices = append(devices, DeviceCount{MAC: mac, Events: count})
	}
	sort.Slice(devices, func(i, j int) bool {
		if devices[i].Events != devices[j].Events {
			return devices[i].Events > devices[j].Events
		}
		return devices[i].MAC < devices[j].MAC
	})
	if len(devices) > n {
		devices = devices[:n]
	}
	return devices
}

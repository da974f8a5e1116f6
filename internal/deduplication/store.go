package deduplication

import (
	"strings"
	"time"

	"firehose/pkg/models"
)

// Store keeps one Record per device MAC for the lifetime of a session.
// It is owned by a single goroutine and is not safe for concurrent use.
type Store struct {
	records map[string]Record
}

func NewStore() *Store {
	return &Store{records: make(map[string]Record)}
}

func key(mac string) string {
	return strings.ToLower(mac)
}

func (s *Store) Get(mac string) (Record, bool) {
	rec, ok := s.records[key(mac)]
	return rec, ok
}

// Record stores the accepted sighting, creating the entry on first use.
// Entries are never removed.
func (s *Store) Record(mac string, now time.Time, pos models.Coordinate) {
	s.records[key(mac)] = Record{LastForwarded: now, Position: pos}
}

func (s *Store) Len() int {
	return len(s.records)
}

// IsDuplicateInWindow reports whether mac was forwarded less than window before now.
func (s *Store) IsDuplicateInWindow(mac string, now time.Time, window time.Duration) bool {
	if window <= 0 {
		return false
	}
	rec, ok := s.Get(mac)
	if !ok {
		return false
	}
	return now.Sub(rec.LastForwarded) < window
}

// MovedLessThan reports whether pos lies closer than minMeters to the last
// accepted position of mac.
func (s *Store) MovedLessThan(mac string, pos models.Coordinate, minMeters float64) bool {
	if minMeters <= 0 {
		return false
	}
	rec, ok := s.Get(mac)
	if !ok {
		return false
	}
	return Haversine(rec.Position, pos) < minMeters
}

package deduplication

import (
	"time"

	"firehose/pkg/models"
)

// Record is the last accepted sighting of one device.
type Record struct {
	LastForwarded time.Time
	Position      models.Coordinate
}

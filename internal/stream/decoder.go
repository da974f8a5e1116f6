package stream

import (
	"encoding/json"
	"errors"
	"strings"

	"firehose/pkg/models"
)

var ErrMalformed = errors.New("malformed event record")

// IsBlank reports lines that are skipped without attempting to decode.
func IsBlank(line string) bool {
	return strings.TrimSpace(line) == ""
}

// Decode parses one line into an Event. Only JSON objects are events.
func Decode(line string) (models.Event, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return models.Event{}, errors.Join(ErrMalformed, err)
	}
	if fields == nil {
		return models.Event{}, ErrMalformed
	}
	return models.Event{Fields: fields, Raw: []byte(strings.TrimSpace(line))}, nil
}

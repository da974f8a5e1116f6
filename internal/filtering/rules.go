package filtering

import (
	"fmt"
	"strings"
	"time"

	"firehose/internal/config"
	"firehose/pkg/cel"
)

// Rules is the immutable, process-wide part of filtering. It is built once at
// startup and shared by every session.
type Rules struct {
	eventTypes       map[string]struct{}
	macPrefixes      []string
	dedupWindow      time.Duration
	minDistance      float64
	rejectZero       bool
	forwardKeepAlive bool
	expression       *cel.Filter
}

// NewRules compiles cfg. forwardKeepAlive decides whether upstream KEEP_ALIVE
// records reach the client.
func NewRules(cfg config.FilterConfig, forwardKeepAlive bool) (*Rules, error) {
	r := &Rules{
		dedupWindow:      cfg.DedupWindow,
		minDistance:      cfg.MinDistanceChangeMeters,
		rejectZero:       cfg.RejectZeroCoordinates,
		forwardKeepAlive: forwardKeepAlive,
	}

	if len(cfg.EventTypes) > 0 {
		r.eventTypes = make(map[string]struct{}, len(cfg.EventTypes))
		for _, t := range cfg.EventTypes {
			if t = strings.TrimSpace(t); t != "" {
				r.eventTypes[t] = struct{}{}
			}
		}
	}

	for _, p := range cfg.MACPrefixes {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			r.macPrefixes = append(r.macPrefixes, p)
		}
	}

	if expr := strings.TrimSpace(cfg.Expression); expr != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return nil, err
		}
		filter, err := evaluator.CompileFilter(expr)
		if err != nil {
			return nil, fmt.Errorf("filter.expression: %w", err)
		}
		r.expression = filter
	}

	return r, nil
}

func (r *Rules) allowsType(eventType string) bool {
	if len(r.eventTypes) == 0 {
		return true
	}
	_, ok := r.eventTypes[eventType]
	return ok
}

func (r *Rules) allowsMAC(mac string) bool {
	if len(r.macPrefixes) == 0 {
		return true
	}
	for _, p := range r.macPrefixes {
		if strings.HasPrefix(mac, p) {
			return true
		}
	}
	return false
}

// Summary lists the active configuration for the startup banner.
func (r *Rules) Summary() map[string]interface{} {
	types := make([]string, 0, len(r.eventTypes))
	for t := range r.eventTypes {
		types = append(types, t)
	}
	summary := map[string]interface{}{
		"event_types":        types,
		"mac_prefixes":       r.macPrefixes,
		"dedup_window":       r.dedupWindow.String(),
		"min_distance_m":     r.minDistance,
		"reject_zero_coords": r.rejectZero,
		"forward_keep_alive": r.forwardKeepAlive,
	}
	if r.expression != nil {
		summary["expression"] = r.expression.Expression()
	}
	return summary
}

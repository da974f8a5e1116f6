package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"firehose/internal/constants"
	"firehose/pkg/cel"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateUpstream(cfg.Upstream); err != nil {
		errors = append(errors, err)
	}

	if err := validateRelay(cfg.Relay); err != nil {
		errors = append(errors, err)
	}

	if err := validateFilter(cfg.Filter); err != nil {
		errors = append(errors, err)
	}

	if err := validateOutput(cfg.Output); err != nil {
		errors = append(errors, err)
	}

	if err := validateKeepAlive(cfg.KeepAlive); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadHeaderTimeout < 0 {
		return &ValidationError{
			Field:   "server.read_header_timeout",
			Message: "read header timeout must be non-negative",
		}
	}

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.RPS <= 0 {
			return &ValidationError{
				Field:   "server.rate_limit.rps",
				Message: "rps must be positive",
			}
		}
		if cfg.RateLimit.Burst < 1 {
			return &ValidationError{
				Field:   "server.rate_limit.burst",
				Message: "burst must be at least 1",
			}
		}
		if cfg.RateLimit.CleanupInterval <= 0 {
			return &ValidationError{
				Field:   "server.rate_limit.cleanup_interval",
				Message: "cleanup interval must be positive",
			}
		}
	}

	return nil
}

func validateUpstream(cfg UpstreamConfig) error {
	if cfg.URL == "" {
		return &ValidationError{
			Field:   "upstream.url",
			Message: "upstream URL is required",
		}
	}

	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{
			Field:   "upstream.url",
			Message: fmt.Sprintf("upstream URL must be an absolute http(s) URL, got %q", cfg.URL),
		}
	}

	if cfg.MaxIdleConns < 0 {
		return &ValidationError{
			Field:   "upstream.max_idle_conns",
			Message: "max_idle_conns must be non-negative",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "upstream.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.MaxInterval > 0 && cfg.Retry.InitialInterval > 0 && cfg.Retry.MaxInterval < cfg.Retry.InitialInterval {
		return &ValidationError{
			Field:   "upstream.retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Retry.MaxAttempts > 1 && cfg.Retry.Multiplier <= 0 {
		return &ValidationError{
			Field:   "upstream.retry.multiplier",
			Message: "multiplier must be positive",
		}
	}

	if cfg.CircuitBreaker.FailureRatio < 0 || cfg.CircuitBreaker.FailureRatio > 1 {
		return &ValidationError{
			Field:   "upstream.circuit_breaker.failure_ratio",
			Message: "failure_ratio must be between 0 and 1",
		}
	}

	return nil
}

func validateRelay(cfg RelayConfig) error {
	switch strings.ToLower(cfg.Mode) {
	case constants.ModeFiltered, constants.ModePassthrough:
	default:
		return &ValidationError{
			Field:   "relay.mode",
			Message: fmt.Sprintf("unknown relay mode: %s (supported: filtered, passthrough)", cfg.Mode),
		}
	}

	if cfg.ReadBufferSize < 1 {
		return &ValidationError{
			Field:   "relay.read_buffer_size",
			Message: "read buffer size must be positive",
		}
	}

	if cfg.StatsInterval < 0 {
		return &ValidationError{
			Field:   "relay.stats_interval",
			Message: "stats interval must be non-negative",
		}
	}

	return nil
}

func validateFilter(cfg FilterConfig) error {
	if cfg.DedupWindow < 0 {
		return &ValidationError{
			Field:   "filter.dedup_window",
			Message: "dedup window must be non-negative",
		}
	}

	if cfg.MinDistanceChangeMeters < 0 || math.IsNaN(cfg.MinDistanceChangeMeters) || math.IsInf(cfg.MinDistanceChangeMeters, 0) {
		return &ValidationError{
			Field:   "filter.min_distance_change_meters",
			Message: "minimum distance change must be a finite non-negative number",
		}
	}

	for i, prefix := range cfg.MACPrefixes {
		if strings.TrimSpace(prefix) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("filter.mac_prefixes[%d]", i),
				Message: "MAC prefix cannot be empty",
			}
		}
	}

	for i, eventType := range cfg.EventTypes {
		if strings.TrimSpace(eventType) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("filter.event_types[%d]", i),
				Message: "event type cannot be empty",
			}
		}
	}

	if expr := strings.TrimSpace(cfg.Expression); expr != "" {
		evaluator, err := cel.NewEvaluator()
		if err != nil {
			return &ValidationError{Field: "filter.expression", Message: err.Error()}
		}
		if err := evaluator.ValidateFilterExpression(expr); err != nil {
			return &ValidationError{Field: "filter.expression", Message: err.Error()}
		}
	}

	return nil
}

func validateOutput(cfg OutputConfig) error {
	if cfg.MaxEventsPerSecond <= 0 || math.IsInf(cfg.MaxEventsPerSecond, 0) || math.IsNaN(cfg.MaxEventsPerSecond) {
		return &ValidationError{
			Field:   "output.max_events_per_second",
			Message: "max events per second must be a positive number",
		}
	}

	if cfg.TickInterval <= 0 {
		return &ValidationError{
			Field:   "output.tick_interval",
			Message: "tick interval must be positive",
		}
	}

	// At most one record leaves per tick.
	if ceiling := float64(time.Second) / float64(cfg.TickInterval); cfg.MaxEventsPerSecond > ceiling {
		return &ValidationError{
			Field: "output.max_events_per_second",
			Message: fmt.Sprintf("max events per second %g exceeds %g, the most a %s tick interval can deliver",
				cfg.MaxEventsPerSecond, ceiling, cfg.TickInterval),
		}
	}

	if cfg.QueueCapacity < 0 {
		return &ValidationError{
			Field:   "output.queue_capacity",
			Message: "queue capacity must be non-negative (0 means unbounded)",
		}
	}

	switch strings.ToLower(cfg.OverflowPolicy) {
	case constants.OverflowDropOldest, constants.OverflowDropNewest:
	default:
		return &ValidationError{
			Field:   "output.overflow_policy",
			Message: fmt.Sprintf("invalid overflow policy: %s (valid: drop_oldest, drop_newest)", cfg.OverflowPolicy),
		}
	}

	return nil
}

func validateKeepAlive(cfg KeepAliveConfig) error {
	if cfg.Enabled && cfg.Interval <= 0 {
		return &ValidationError{
			Field:   "keep_alive.interval",
			Message: "keep-alive interval must be positive when keep-alive is enabled",
		}
	}
	return nil
}

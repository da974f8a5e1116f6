package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"firehose/internal/constants"
)

// LoadConfig reads the optional YAML file, applies defaults and environment
// overrides, and validates the result. An empty configFile runs on defaults.
func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", constants.DefaultHost)
	viper.SetDefault("server.port", constants.DefaultPort)
	viper.SetDefault("server.read_header_timeout", constants.ReadHeaderTimeout)
	viper.SetDefault("server.shutdown_timeout", constants.ShutdownTimeout)
	viper.SetDefault("server.rate_limit.enabled", false)
	viper.SetDefault("server.rate_limit.rps", 1.0)
	viper.SetDefault("server.rate_limit.burst", 5)
	viper.SetDefault("server.rate_limit.cleanup_interval", "5m")
	viper.SetDefault("server.rate_limit.max_age", "10m")

	viper.SetDefault("upstream.url", constants.DefaultUpstreamURL)
	viper.SetDefault("upstream.api_key", "")
	viper.SetDefault("upstream.connect_timeout", constants.ConnectTimeout)
	viper.SetDefault("upstream.response_header_timeout", constants.ResponseHeaderTimeout)
	viper.SetDefault("upstream.idle_conn_timeout", constants.IdleConnTimeout)
	viper.SetDefault("upstream.max_idle_conns", 10)
	viper.SetDefault("upstream.retry.max_attempts", 3)
	viper.SetDefault("upstream.retry.initial_interval", "500ms")
	viper.SetDefault("upstream.retry.max_interval", "5s")
	viper.SetDefault("upstream.retry.multiplier", 2.0)
	viper.SetDefault("upstream.retry.max_elapsed_time", "30s")
	viper.SetDefault("upstream.circuit_breaker.enabled", true)
	viper.SetDefault("upstream.circuit_breaker.max_requests", 1)
	viper.SetDefault("upstream.circuit_breaker.interval", "60s")
	viper.SetDefault("upstream.circuit_breaker.timeout", "30s")
	viper.SetDefault("upstream.circuit_breaker.failure_ratio", 0.5)
	viper.SetDefault("upstream.circuit_breaker.min_requests", 3)

	viper.SetDefault("relay.mode", constants.ModeFiltered)
	viper.SetDefault("relay.read_buffer_size", constants.DefaultReadBufferSize)
	viper.SetDefault("relay.stats_interval", constants.DefaultStatsInterval)

	viper.SetDefault("filter.event_types", []string{})
	viper.SetDefault("filter.mac_prefixes", []string{})
	viper.SetDefault("filter.dedup_window", "0s")
	viper.SetDefault("filter.min_distance_change_meters", 0.0)
	viper.SetDefault("filter.reject_zero_coordinates", false)
	viper.SetDefault("filter.expression", "")

	viper.SetDefault("output.max_events_per_second", constants.DefaultMaxEventsPerSec)
	viper.SetDefault("output.tick_interval", constants.DefaultTickInterval)
	viper.SetDefault("output.queue_capacity", constants.DefaultQueueCapacity)
	viper.SetDefault("output.overflow_policy", constants.OverflowDropOldest)

	viper.SetDefault("keep_alive.enabled", true)
	viper.SetDefault("keep_alive.interval", constants.DefaultKeepAlive)
	viper.SetDefault("keep_alive.include_stats", true)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.service_name", constants.ServiceName)
	viper.SetDefault("tracing.otlp.endpoint", "localhost:4317")
	viper.SetDefault("tracing.otlp.insecure", true)
	viper.SetDefault("tracing.sampler.type", "always_on")
	viper.SetDefault("tracing.sampler.param", 1.0)
}

func bindEnvVariables() {
	viper.BindEnv("server.host", "SERVER_HOST")
	viper.BindEnv("server.port", "SERVER_PORT")

	viper.BindEnv("upstream.url", "UPSTREAM_URL")
	viper.BindEnv("upstream.api_key", "UPSTREAM_API_KEY")

	viper.BindEnv("relay.mode", "RELAY_MODE")

	viper.BindEnv("filter.event_types", "FILTER_EVENT_TYPES")
	viper.BindEnv("filter.mac_prefixes", "FILTER_MAC_PREFIXES")
	viper.BindEnv("filter.dedup_window", "FILTER_DEDUP_WINDOW")
	viper.BindEnv("filter.min_distance_change_meters", "FILTER_MIN_DISTANCE_CHANGE_METERS")

	viper.BindEnv("output.max_events_per_second", "OUTPUT_MAX_EVENTS_PER_SECOND")

	viper.BindEnv("keep_alive.enabled", "KEEP_ALIVE_ENABLED")
	viper.BindEnv("keep_alive.interval", "KEEP_ALIVE_INTERVAL")

	viper.BindEnv("logging.level", "LOGGING_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
}

func applyEnvOverrides(cfg *Config) {
	cfg.Filter.EventTypes = splitList(cfg.Filter.EventTypes, viper.GetString("FILTER_EVENT_TYPES"))
	cfg.Filter.MACPrefixes = splitList(cfg.Filter.MACPrefixes, viper.GetString("FILTER_MAC_PREFIXES"))
}

// splitList replaces current with the comma-separated env value when one is set.
func splitList(current []string, env string) []string {
	if env == "" {
		return current
	}
	parts := strings.Split(env, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

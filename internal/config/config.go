package config

import (
	"time"
)

type Config struct {
	Server    ServerConfig
	Upstream  UpstreamConfig
	Relay     RelayConfig
	Filter    FilterConfig
	Output    OutputConfig
	KeepAlive KeepAliveConfig `mapstructure:"keep_alive"`
	Logging   LoggingConfig
	Tracing   TracingConfig
}

type ServerConfig struct {
	Host              string          `mapstructure:"host"`
	Port              int             `mapstructure:"port"`
	ReadHeaderTimeout time.Duration   `mapstructure:"read_header_timeout"`
	ShutdownTimeout   time.Duration   `mapstructure:"shutdown_timeout"`
	RateLimit         RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig limits how often one client address may open new relay sessions.
type RateLimitConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPS             float64       `mapstructure:"rps"`
	Burst           int           `mapstructure:"burst"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	MaxAge          time.Duration `mapstructure:"max_age"`
}

type UpstreamConfig struct {
	URL                   string               `mapstructure:"url"`
	APIKey                string               `mapstructure:"api_key"`
	ConnectTimeout        time.Duration        `mapstructure:"connect_timeout"`
	ResponseHeaderTimeout time.Duration        `mapstructure:"response_header_timeout"`
	IdleConnTimeout       time.Duration        `mapstructure:"idle_conn_timeout"`
	MaxIdleConns          int                  `mapstructure:"max_idle_conns"`
	Retry                 RetryConfig          `mapstructure:"retry"`
	CircuitBreaker        CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type RetryConfig struct {
	MaxAttempts     int           `mapstructure:"max_attempts"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type RelayConfig struct {
	Mode           string        `mapstructure:"mode"` // "filtered" or "passthrough"
	ReadBufferSize int           `mapstructure:"read_buffer_size"`
	StatsInterval  time.Duration `mapstructure:"stats_interval"`
}

// FilterConfig is fixed for the lifetime of the process. Empty allowlists allow everything.
type FilterConfig struct {
	EventTypes              []string      `mapstructure:"event_types"`
	MACPrefixes             []string      `mapstructure:"mac_prefixes"`
	DedupWindow             time.Duration `mapstructure:"dedup_window"`
	MinDistanceChangeMeters float64       `mapstructure:"min_distance_change_meters"`
	RejectZeroCoordinates   bool          `mapstructure:"reject_zero_coordinates"`
	Expression              string        `mapstructure:"expression"`
}

type OutputConfig struct {
	MaxEventsPerSecond float64       `mapstructure:"max_events_per_second"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	QueueCapacity      int           `mapstructure:"queue_capacity"`
	OverflowPolicy     string        `mapstructure:"overflow_policy"` // "drop_oldest" or "drop_newest"
}

type KeepAliveConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Interval     time.Duration `mapstructure:"interval"`
	IncludeStats bool          `mapstructure:"include_stats"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}

package constants

import "time"

const (
	ServiceName = "relay-service"
)

const (
	DefaultPort            = 8081
	DefaultHost            = "localhost"
	DefaultUpstreamURL     = "https://partner.qa-dnaspaces.io/api/partners/v1/firehose/events"
	DefaultReadBufferSize  = 1024
	DefaultStatsInterval   = 30 * time.Second
	DefaultTickInterval    = 50 * time.Millisecond
	DefaultMaxEventsPerSec = 10.0
	DefaultQueueCapacity   = 1000
	DefaultKeepAlive       = 15 * time.Second
	DefaultErrorBodyLimit  = 4096
)

const (
	ShutdownTimeout       = 5 * time.Second
	ReadHeaderTimeout     = 10 * time.Second
	ConnectTimeout        = 10 * time.Second
	ResponseHeaderTimeout = 30 * time.Second
	IdleConnTimeout       = 90 * time.Second
)

const (
	HeaderAPIKey          = "X-API-Key"
	HeaderAccelBuffering  = "X-Accel-Buffering"
	HeaderRequestID       = "X-Request-ID"
	ContentTypeJSON       = "application/json"
	CORSAllowOrigin       = "*"
	CORSAllowMethods      = "GET, OPTIONS"
	CORSAllowHeaders      = "Content-Type"
	FirehosePath          = "/firehose"
	HealthPath            = "/health"
	MetricsPath           = "/metrics"
	UpstreamBreakerName   = "upstream-firehose"
	APIKeyDisplayPrefix   = 8
	StatsTopDevicesLogged = 5
)

const (
	ModeFiltered    = "filtered"
	ModePassthrough = "passthrough"
)

const (
	OverflowDropOldest = "drop_oldest"
	OverflowDropNewest = "drop_newest"
)

const (
	HTTPStatusOKMin = 200
	HTTPStatusOKMax = 300
)

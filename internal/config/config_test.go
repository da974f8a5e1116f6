package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relay.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, 8081, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "filtered", cfg.Relay.Mode)
	assert.Equal(t, 50*time.Millisecond, cfg.Output.TickInterval)
	assert.Equal(t, "drop_oldest", cfg.Output.OverflowPolicy)
	assert.True(t, cfg.KeepAlive.Enabled)
	assert.Empty(t, cfg.Filter.EventTypes)
}

func TestLoadConfig_File(t *testing.T) {
	path := writeConfigFile(t, `
server:
  port: 9090
upstream:
  url: https://firehose.example.com/events
  api_key: secret
filter:
  event_types: [IOT_TELEMETRY, KEEP_ALIVE]
  mac_prefixes: [fc]
  dedup_window: 1s
  min_distance_change_meters: 0.5
output:
  max_events_per_second: 20
  queue_capacity: 50
  overflow_policy: drop_newest
keep_alive:
  interval: 5s
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Upstream.APIKey)
	assert.Equal(t, []string{"IOT_TELEMETRY", "KEEP_ALIVE"}, cfg.Filter.EventTypes)
	assert.Equal(t, []string{"fc"}, cfg.Filter.MACPrefixes)
	assert.Equal(t, time.Second, cfg.Filter.DedupWindow)
	assert.InDelta(t, 0.5, cfg.Filter.MinDistanceChangeMeters, 1e-9)
	assert.InDelta(t, 20.0, cfg.Output.MaxEventsPerSecond, 1e-9)
	assert.Equal(t, 50, cfg.Output.QueueCapacity)
	assert.Equal(t, "drop_newest", cfg.Output.OverflowPolicy)
	assert.Equal(t, 5*time.Second, cfg.KeepAlive.Interval)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("UPSTREAM_API_KEY", "from-env")
	t.Setenv("FILTER_MAC_PREFIXES", "fc, aa ,")
	t.Setenv("SERVER_PORT", "7000")

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Upstream.APIKey)
	assert.Equal(t, []string{"fc", "aa"}, cfg.Filter.MACPrefixes)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func validConfig() *Config {
	return &Config{
		Server:   ServerConfig{Host: "localhost", Port: 8081},
		Upstream: UpstreamConfig{URL: "https://firehose.example.com/events", Retry: RetryConfig{MaxAttempts: 1}},
		Relay:    RelayConfig{Mode: "filtered", ReadBufferSize: 1024},
		Output: OutputConfig{
			MaxEventsPerSecond: 10,
			TickInterval:       50 * time.Millisecond,
			OverflowPolicy:     "drop_oldest",
		},
		KeepAlive: KeepAliveConfig{Enabled: true, Interval: time.Second},
	}
}

func TestValidateStatic(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(cfg *Config)
		wantError bool
	}{
		{
			name:      "valid config",
			mutate:    func(cfg *Config) {},
			wantError: false,
		},
		{
			name:      "port out of range",
			mutate:    func(cfg *Config) { cfg.Server.Port = 70000 },
			wantError: true,
		},
		{
			name:      "relative upstream url",
			mutate:    func(cfg *Config) { cfg.Upstream.URL = "/firehose" },
			wantError: true,
		},
		{
			name:      "unknown relay mode",
			mutate:    func(cfg *Config) { cfg.Relay.Mode = "broadcast" },
			wantError: true,
		},
		{
			name:      "zero rate ceiling",
			mutate:    func(cfg *Config) { cfg.Output.MaxEventsPerSecond = 0 },
			wantError: true,
		},
		{
			name:      "rate ceiling above tick capacity",
			mutate:    func(cfg *Config) { cfg.Output.MaxEventsPerSecond = 21 },
			wantError: true,
		},
		{
			name:      "rate ceiling equal to tick capacity",
			mutate:    func(cfg *Config) { cfg.Output.MaxEventsPerSecond = 20 },
			wantError: false,
		},
		{
			name:      "valid filter expression",
			mutate:    func(cfg *Config) { cfg.Filter.Expression = `eventType == "IOT_TELEMETRY"` },
			wantError: false,
		},
		{
			name:      "non-bool filter expression",
			mutate:    func(cfg *Config) { cfg.Filter.Expression = `event.iotTelemetry` },
			wantError: true,
		},
		{
			name:      "unparseable filter expression",
			mutate:    func(cfg *Config) { cfg.Filter.Expression = `eventType ==` },
			wantError: true,
		},
		{
			name:      "negative dedup window",
			mutate:    func(cfg *Config) { cfg.Filter.DedupWindow = -time.Second },
			wantError: true,
		},
		{
			name:      "negative distance",
			mutate:    func(cfg *Config) { cfg.Filter.MinDistanceChangeMeters = -1 },
			wantError: true,
		},
		{
			name:      "empty mac prefix",
			mutate:    func(cfg *Config) { cfg.Filter.MACPrefixes = []string{"fc", " "} },
			wantError: true,
		},
		{
			name:      "unknown overflow policy",
			mutate:    func(cfg *Config) { cfg.Output.OverflowPolicy = "block" },
			wantError: true,
		},
		{
			name:      "unbounded queue allowed",
			mutate:    func(cfg *Config) { cfg.Output.QueueCapacity = 0 },
			wantError: false,
		},
		{
			name:      "keep-alive enabled without interval",
			mutate:    func(cfg *Config) { cfg.KeepAlive.Interval = 0 },
			wantError: true,
		},
		{
			name:      "keep-alive disabled without interval",
			mutate:    func(cfg *Config) { cfg.KeepAlive = KeepAliveConfig{} },
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

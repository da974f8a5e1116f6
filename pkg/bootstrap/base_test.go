package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firehose/internal/config"
	"firehose/internal/logger"
)

func TestBase_Init(t *testing.T) {
	cfg := &config.Config{
		Upstream:  config.UpstreamConfig{URL: "https://example.invalid/firehose"},
		Filter:    config.FilterConfig{EventTypes: []string{"IOT_TELEMETRY"}},
		KeepAlive: config.KeepAliveConfig{Enabled: true},
	}
	b := NewBase(cfg, logger.NopLogger())

	b.InitUpstream()
	assert.NotNil(t, b.Upstream)

	require.NoError(t, b.InitRules())
	assert.Equal(t, true, b.Rules.Summary()["forward_keep_alive"])
}

func TestBase_InitRules_InvalidExpression(t *testing.T) {
	cfg := &config.Config{Filter: config.FilterConfig{Expression: "event."}}
	b := NewBase(cfg, logger.NopLogger())
	assert.Error(t, b.InitRules())
}

func TestBase_Shutdown(t *testing.T) {
	b := NewBase(&config.Config{}, logger.NopLogger())

	assert.NoError(t, b.Shutdown(context.Background(), nil))

	err := b.Shutdown(context.Background(), func(ctx context.Context) []error {
		return []error{errors.New("server close failed")}
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server close failed")
}

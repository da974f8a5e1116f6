package bootstrap

import (
	"context"
	"fmt"

	"firehose/internal/config"
	"firehose/internal/filtering"
	"firehose/internal/logger"
	"firehose/internal/upstream"
)

// Base holds what every relay process needs before it can accept clients.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Upstream *upstream.Client
	Rules    *filtering.Rules
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

func (b *Base) InitUpstream() {
	b.Upstream = upstream.NewClient(b.Config.Upstream, b.Logger)
}

// InitRules compiles the filter configuration once; sessions share the result.
func (b *Base) InitRules() error {
	rules, err := filtering.NewRules(b.Config.Filter, b.Config.KeepAlive.Enabled)
	if err != nil {
		return fmt.Errorf("failed to build filter rules: %w", err)
	}
	b.Rules = rules
	return nil
}

func (b *Base) Shutdown(ctx context.Context, additionalShutdown func(ctx context.Context) []error) error {
	b.Logger.Info("Shutting down application...")

	var errs []error

	if additionalShutdown != nil {
		errs = append(errs, additionalShutdown(ctx)...)
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}

	b.Logger.Info("Application exited successfully")
	return nil
}

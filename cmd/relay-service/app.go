package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"firehose/internal/config"
	"firehose/internal/constants"
	"firehose/internal/logger"
	"firehose/internal/relay"
	"firehose/pkg/bootstrap"
	"firehose/pkg/health"
	"firehose/pkg/metrics"
	"firehose/pkg/middleware"
	"firehose/pkg/ratelimit"
	"firehose/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	router         *gin.Engine
	server         *http.Server
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceName)
	}
	return &App{
		Base: bootstrap.NewBase(cfg, log),
	}
}

// Initialize wires everything that does not need a listener. ctx bounds
// background helpers such as the rate limiter janitor.
func (a *App) Initialize(ctx context.Context) error {
	if err := a.InitRules(); err != nil {
		return err
	}
	a.InitUpstream()

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterRelayMetrics()

	a.initRouter(ctx)
	a.initServer(ctx)
	a.logBanner(ctx)

	return nil
}

func (a *App) initRouter(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName))
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.LoggerMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())

	healthRegistry := health.NewCheckerRegistry()
	if breaker := a.Upstream.Breaker(); breaker != nil {
		healthRegistry.Register(health.NewBreakerChecker(breaker))
	}

	router.GET(constants.HealthPath, func(c *gin.Context) {
		h := healthRegistry.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET(constants.MetricsPath, gin.WrapH(promhttp.Handler()))

	streams := router.Group("")
	if rl := a.Config.Server.RateLimit; rl.Enabled {
		rateLimitConfig := ratelimit.RateLimitConfig{
			RPS:             rl.RPS,
			Burst:           rl.Burst,
			CleanupInterval: rl.CleanupInterval,
			MaxAge:          rl.MaxAge,
		}
		streams.Use(ratelimit.RateLimitMiddleware(ctx, rateLimitConfig))
		a.Logger.InfowCtx(ctx, "Session rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}
	relay.NewHandler(a.Config, a.Upstream, a.Rules, a.Logger).RegisterRoutes(streams)

	router.NoRoute(middleware.NotFound)

	a.router = router
}

// initServer derives every request context from ctx, so a shutdown signal
// cancels in-flight sessions and their upstream subscriptions.
func (a *App) initServer(ctx context.Context) {
	a.server = &http.Server{
		Addr:              net.JoinHostPort(a.Config.Server.Host, strconv.Itoa(a.Config.Server.Port)),
		Handler:           a.router,
		ReadHeaderTimeout: a.Config.Server.ReadHeaderTimeout,
		// WriteTimeout stays zero: firehose responses are unbounded streams.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}
}

func (a *App) logBanner(ctx context.Context) {
	key := a.Config.Upstream.APIKey
	if len(key) > constants.APIKeyDisplayPrefix {
		key = key[:constants.APIKeyDisplayPrefix] + "..."
	}
	if key == "" {
		a.Logger.WarnwCtx(ctx, "No upstream API key configured, set UPSTREAM_API_KEY")
	}

	a.Logger.InfowCtx(ctx, "Relay configured",
		"endpoint", "http://"+a.server.Addr+constants.FirehosePath,
		"upstream", a.Config.Upstream.URL,
		"api_key", key,
		"mode", a.Config.Relay.Mode,
		"max_events_per_second", a.Config.Output.MaxEventsPerSecond,
		"keep_alive", a.Config.KeepAlive.Enabled,
		"filter", a.Rules.Summary(),
	)
}

// Run serves until ctx is done, then stops accepting connections and cancels
// in-flight sessions within the shutdown timeout.
func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.Logger.WarnwCtx(ctx, "Graceful shutdown timed out, closing connections", "error", err)
			return a.server.Close()
		}
		return nil
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

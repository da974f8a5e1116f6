package upstream

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"firehose/internal/config"
	"firehose/internal/constants"
	"firehose/internal/logger"
	"firehose/pkg/circuitbreaker"
	apperrors "firehose/pkg/errors"
	"firehose/pkg/metrics"
	"firehose/pkg/retry"
	"firehose/pkg/tracing"
)

// Client opens firehose subscriptions. It is shared by all sessions so
// connections to the upstream host are pooled.
type Client struct {
	url     string
	apiKey  string
	http    *http.Client
	policy  retry.Policy
	breaker *circuitbreaker.Wrapper
	logger  logger.Logger
}

func NewClient(cfg config.UpstreamConfig, log logger.Logger) *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout,
	}

	c := &Client{
		url:    cfg.URL,
		apiKey: cfg.APIKey,
		// No overall timeout: a subscription lives as long as the client stays.
		http: &http.Client{Transport: tracing.Transport(transport)},
		policy: retry.Policy{
			MaxAttempts:     cfg.Retry.MaxAttempts,
			InitialInterval: cfg.Retry.InitialInterval,
			MaxInterval:     cfg.Retry.MaxInterval,
			Multiplier:      cfg.Retry.Multiplier,
			MaxElapsedTime:  cfg.Retry.MaxElapsedTime,
		},
		logger: log,
	}

	if cfg.CircuitBreaker.Enabled {
		c.breaker = newBreaker(cfg.CircuitBreaker, log)
	}

	return c
}

func newBreaker(cfg config.CircuitBreakerConfig, log logger.Logger) *circuitbreaker.Wrapper {
	cbCfg := circuitbreaker.DefaultConfig(constants.UpstreamBreakerName)
	cbCfg.MaxRequests = cfg.MaxRequests
	cbCfg.Interval = cfg.Interval
	cbCfg.Timeout = cfg.Timeout
	cbCfg.ReadyToTrip = func(counts gobreaker.Counts) bool {
		if counts.Requests < cfg.MinRequests {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
	}
	cbCfg.IsSuccessful = countsAsSuccess
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warnw("Upstream circuit breaker state changed",
			"breaker", name,
			"from", from.String(),
			"to", to.String(),
		)
	}
	return circuitbreaker.NewWrapper(cbCfg)
}

// countsAsSuccess keeps client cancellations and upstream 4xx answers from
// tripping the breaker; only transport failures and 5xx do.
func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Code == apperrors.ErrUpstreamRejected.Code {
		return appErr.Status < http.StatusInternalServerError
	}
	return false
}

// Breaker is nil when the circuit breaker is disabled.
func (c *Client) Breaker() *circuitbreaker.Wrapper {
	return c.breaker
}

// Open subscribes to the firehose. On success the caller owns resp.Body; the
// subscription ends when ctx is cancelled or the body is closed.
func (c *Client) Open(ctx context.Context) (*http.Response, error) {
	var resp *http.Response
	err := retry.RetryWithCallback(ctx, c.policy, func() error {
		r, err := c.connect(ctx)
		if err != nil {
			return err
		}
		resp = r
		return nil
	}, func(attempt int, err error, nextDelay time.Duration) {
		metrics.IncRetryAttempt("upstream_connect")
		c.logger.WarnwCtx(ctx, "Upstream connect failed, retrying",
			"attempt", attempt,
			"next_delay", nextDelay.String(),
			"error", err,
		)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) connect(ctx context.Context) (*http.Response, error) {
	if c.breaker == nil {
		return c.do(ctx)
	}

	result, err := c.breaker.ExecuteWithContext(ctx, func() (interface{}, error) {
		return c.do(ctx)
	})
	if err != nil {
		if circuitbreaker.IsRejection(err) {
			return nil, apperrors.ErrCircuitOpen.WithCause(err)
		}
		return nil, err
	}
	return result.(*http.Response), nil
}

func (c *Client) do(ctx context.Context) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, retry.NewFatalError(apperrors.ErrInternal.WithCause(err))
	}
	req.Header.Set(constants.HeaderAPIKey, c.apiKey)
	req.Header.Set("Accept", constants.ContentTypeJSON)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.ObserveUpstreamConnect("error", time.Since(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, retry.NewFatalError(ctxErr)
		}
		return nil, apperrors.ErrUpstreamUnavailable.WithCause(err)
	}
	metrics.ObserveUpstreamConnect(strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode < constants.HTTPStatusOKMin || resp.StatusCode >= constants.HTTPStatusOKMax {
		return nil, rejected(resp)
	}
	return resp, nil
}

func rejected(resp *http.Response) error {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, constants.DefaultErrorBodyLimit))

	err := apperrors.ErrUpstreamRejected.
		WithStatus(resp.StatusCode).
		WithDetail("upstream_status", resp.StatusCode)
	if len(body) > 0 {
		err = err.WithDetail("upstream_body", string(body))
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return err.AsRetryable()
	}
	return err
}

package relay

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"firehose/internal/config"
	"firehose/internal/constants"
	"firehose/internal/filtering"
	"firehose/internal/logger"
	"firehose/pkg/errors"
	"firehose/pkg/logging"
	"firehose/pkg/metrics"
	"firehose/pkg/tracing"
)

// Handler starts one Session per GET /firehose request.
type Handler struct {
	cfg      *config.Config
	upstream Upstream
	rules    *filtering.Rules
	logger   logger.Logger
}

func NewHandler(cfg *config.Config, upstream Upstream, rules *filtering.Rules, log logger.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		upstream: upstream,
		rules:    rules,
		logger:   log,
	}
}

func (h *Handler) RegisterRoutes(router gin.IRoutes) {
	router.GET(constants.FirehosePath, h.Stream)
}

func (h *Handler) Stream(c *gin.Context) {
	sessionID := uuid.NewString()
	ctx := logging.WithSessionID(c.Request.Context(), sessionID)
	ctx = logging.WithClientAddr(ctx, c.ClientIP())

	ctx, span := tracing.GetTracer(constants.ServiceName).Start(ctx, "relay.session")
	defer span.End()
	span.SetAttributes(
		attribute.String("relay.session_id", sessionID),
		attribute.String("relay.mode", h.cfg.Relay.Mode),
		attribute.String("relay.client_addr", logging.GetClientAddr(ctx)),
	)

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	h.logger.InfowCtx(ctx, "Relay session opened")

	session := NewSession(sessionID, h.cfg, h.upstream, h.rules, c.Writer, h.logger)
	err := session.Run(ctx)
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if session.HeadersWritten() {
		h.logger.InfowCtx(ctx, "Relay stream ended", "error", err)
		return
	}

	h.logger.WarnwCtx(ctx, "Relay session failed before streaming", "error", err)
	c.JSON(errors.ToHTTPStatus(err), errors.ToErrorResponse(err))
}

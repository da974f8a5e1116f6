package filtering

import (
	"context"
	"time"

	"firehose/internal/deduplication"
	"firehose/internal/logger"
	"firehose/pkg/models"
)

// Chain applies Rules to the events of one session. Stages run in order and
// stop at the first rejection; the dedup store is written only for events that
// clear every stage.
type Chain struct {
	rules  *Rules
	store  *deduplication.Store
	logger logger.Logger
}

func NewChain(rules *Rules, store *deduplication.Store, log logger.Logger) *Chain {
	return &Chain{rules: rules, store: store, logger: log}
}

func (c *Chain) Evaluate(ctx context.Context, evt models.Event, now time.Time) Decision {
	eventType := evt.EventType()

	if !c.rules.allowsType(eventType) {
		return reject(ReasonEventType)
	}

	if eventType == models.EventTypeKeepAlive {
		if c.rules.forwardKeepAlive {
			return forward()
		}
		return reject(ReasonKeepAlive)
	}

	if !evt.IsTelemetry() {
		return forward()
	}

	mac, ok := evt.MACAddress()
	if !ok || !c.rules.allowsMAC(mac) {
		return reject(ReasonMACPrefix)
	}

	pos, ok := evt.Position()
	if !ok || !pos.Valid() || (c.rules.rejectZero && pos.HasZeroComponent()) {
		return reject(ReasonPosition)
	}

	if c.rules.expression != nil {
		matched, err := c.rules.expression.Match(ctx, evt)
		if err != nil {
			c.logger.DebugwCtx(ctx, "Expression evaluation failed, dropping event",
				"mac", mac,
				"error", err,
			)
			return reject(ReasonExpression)
		}
		if !matched {
			return reject(ReasonExpression)
		}
	}

	if c.store.IsDuplicateInWindow(mac, now, c.rules.dedupWindow) {
		return reject(ReasonDedupWindow)
	}

	if c.store.MovedLessThan(mac, pos, c.rules.minDistance) {
		return reject(ReasonDedupDistance)
	}

	c.store.Record(mac, now, pos)
	return forward()
}

// Devices is the number of distinct devices accepted so far.
func (c *Chain) Devices() int {
	return c.store.Len()
}

package relay

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"firehose/internal/config"
	"firehose/internal/constants"
	"firehose/internal/deduplication"
	"firehose/internal/filtering"
	"firehose/internal/logger"
	"firehose/internal/output"
	"firehose/internal/stream"
	apperrors "firehose/pkg/errors"
	"firehose/pkg/metrics"
	"firehose/pkg/models"
)

const dropQueueOverflow = "queue_overflow"

// Upstream opens one firehose subscription per call.
type Upstream interface {
	Open(ctx context.Context) (*http.Response, error)
}

// Session relays one upstream subscription to one downstream client. Run
// splits the work between a reader goroutine doing blocking upstream reads and
// a loop goroutine that owns all session state and every downstream write.
type Session struct {
	id       string
	cfg      *config.Config
	upstream Upstream
	logger   logger.Logger

	w       http.ResponseWriter
	flusher http.Flusher

	state       atomic.Int32
	wroteHeader bool
	passthrough bool

	splitter  *stream.Splitter
	chain     *filtering.Chain
	queue     *output.Queue
	limiter   *output.Limiter
	keepAlive *output.KeepAlive
	stats     *Stats
}

func NewSession(id string, cfg *config.Config, upstream Upstream, rules *filtering.Rules, w http.ResponseWriter, log logger.Logger) *Session {
	queue := output.NewQueue(cfg.Output.QueueCapacity, cfg.Output.OverflowPolicy)
	return &Session{
		id:          id,
		cfg:         cfg,
		upstream:    upstream,
		logger:      log,
		w:           w,
		passthrough: cfg.Relay.Mode == constants.ModePassthrough,
		splitter:    stream.NewSplitter(),
		chain:       filtering.NewChain(rules, deduplication.NewStore(), log),
		queue:       queue,
		limiter:     output.NewLimiter(queue, cfg.Output.MaxEventsPerSecond),
		keepAlive:   output.NewKeepAlive(cfg.KeepAlive, time.Now()),
		stats:       newStats(),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// HeadersWritten reports whether the streaming response has started. Once it
// has, errors can only end the stream.
func (s *Session) HeadersWritten() bool {
	return s.wroteHeader
}

func (s *Session) Stats() *Stats {
	return s.stats
}

// Run blocks until the upstream ends, the client goes away or ctx is done.
// A returned error with HeadersWritten false has not been reported to the
// client yet.
func (s *Session) Run(ctx context.Context) error {
	start := time.Now()
	s.setState(StateConnecting)
	defer s.setState(StateClosed)

	flusher, ok := s.w.(http.Flusher)
	if !ok {
		return apperrors.ErrStreamingUnsupported
	}
	s.flusher = flusher

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	resp, err := s.upstream.Open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			s.finish(ctx, outcomeClientGone, start)
			return nil
		}
		s.finish(ctx, outcomeRejected, start)
		return err
	}
	defer resp.Body.Close()

	s.writeHeader(resp.StatusCode)
	s.setState(StateStreaming)
	s.logger.InfowCtx(ctx, "Relay session streaming",
		"upstream_status", resp.StatusCode,
		"mode", s.cfg.Relay.Mode,
	)

	err = s.stream(ctx, cancel, resp.Body)
	s.finish(ctx, s.outcome(ctx, err), start)
	return err
}

func (s *Session) writeHeader(status int) {
	h := s.w.Header()
	h.Set("Content-Type", constants.ContentTypeJSON)
	h.Set("Access-Control-Allow-Origin", constants.CORSAllowOrigin)
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set(constants.HeaderAccelBuffering, "no")
	s.w.WriteHeader(status)
	s.flusher.Flush()
	s.wroteHeader = true
}

func (s *Session) stream(ctx context.Context, cancel context.CancelFunc, body io.Reader) error {
	g, gctx := errgroup.WithContext(ctx)
	chunks := make(chan []byte)

	g.Go(func() error {
		defer close(chunks)
		return s.read(gctx, body, chunks)
	})

	g.Go(func() error {
		// Leaving the loop for any reason aborts the upstream request, which
		// unblocks the reader.
		defer cancel()
		return s.loop(gctx, chunks)
	})

	return g.Wait()
}

func (s *Session) read(ctx context.Context, body io.Reader, chunks chan<- []byte) error {
	buf := make([]byte, s.cfg.Relay.ReadBufferSize)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			select {
			case chunks <- chunk:
			case <-ctx.Done():
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return apperrors.ErrUpstreamUnavailable.WithCause(err)
		}
	}
}

func (s *Session) loop(ctx context.Context, chunks <-chan []byte) error {
	var keepAliveEvery time.Duration
	if !s.passthrough && s.keepAlive.Enabled() {
		keepAliveEvery = keepAliveCheckEvery(s.cfg.KeepAlive.Interval)
	}
	var drainEvery time.Duration
	if !s.passthrough {
		drainEvery = s.cfg.Output.TickInterval
	}

	sched := newSchedule(drainEvery, keepAliveEvery, s.cfg.Relay.StatsInterval)
	defer sched.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			if err := s.ingest(ctx, chunk, time.Now()); err != nil {
				return err
			}
		case now := <-sched.drainC():
			if err := s.drain(now); err != nil {
				return err
			}
		case now := <-sched.keepAliveC():
			s.emitKeepAlive(ctx, now)
		case <-sched.statsC():
			s.logStats(ctx, "Relay session stats")
		}
	}
}

func (s *Session) ingest(ctx context.Context, chunk []byte, now time.Time) error {
	metrics.AddBytes("upstream", len(chunk))

	if s.passthrough {
		n := uint64(stream.CountLines(chunk))
		s.stats.Received += n
		if err := s.write(chunk); err != nil {
			return err
		}
		s.stats.Forwarded += n
		return nil
	}

	for _, line := range s.splitter.Feed(chunk) {
		if stream.IsBlank(line) {
			continue
		}

		evt, err := stream.Decode(line)
		if err != nil {
			s.stats.Malformed++
			metrics.IncMalformedLines()
			s.logger.DebugwCtx(ctx, "Dropping malformed record", "error", err, "length", len(line))
			continue
		}

		eventType := evt.EventType()
		s.stats.receive(eventType)
		metrics.IncEventsReceived(eventType)

		decision := s.chain.Evaluate(ctx, evt, now)
		if !decision.Forward {
			s.stats.drop(decision.Reason)
			metrics.IncEventsDropped(decision.Reason)
			continue
		}

		if eventType == models.EventTypeKeepAlive {
			s.keepAlive.Observe(now)
		}
		if mac, ok := evt.MACAddress(); ok && evt.IsTelemetry() {
			s.stats.ByDevice[mac]++
		}
		s.enqueue(output.Record{EventType: eventType, Data: evt.Raw}, now)
	}
	return nil
}

func (s *Session) enqueue(rec output.Record, now time.Time) {
	if s.queue.Push(rec, now) {
		s.stats.drop(dropQueueOverflow)
		metrics.IncEventsDropped(dropQueueOverflow)
	}
	metrics.ObserveQueueDepth(s.queue.Len())
}

func (s *Session) drain(now time.Time) error {
	rec, ok := s.limiter.Drain(now)
	if !ok {
		return nil
	}
	if err := s.write(append(rec.Data, '\n')); err != nil {
		return err
	}
	if !rec.Synthetic {
		s.stats.Forwarded++
		metrics.IncEventsForwarded(rec.EventType)
	}
	return nil
}

func (s *Session) emitKeepAlive(ctx context.Context, now time.Time) {
	if !s.keepAlive.Due(now) {
		return
	}
	data, err := s.keepAlive.Build(now, s.snapshot())
	if err != nil {
		s.logger.WarnwCtx(ctx, "Failed to build keep-alive", "error", err)
		return
	}
	s.enqueue(output.Record{EventType: models.EventTypeKeepAlive, Data: data, Synthetic: true}, now)
}

// write sends p to the client. A failure means the client is gone.
func (s *Session) write(p []byte) error {
	if _, err := s.w.Write(p); err != nil {
		return errClientGone{err: err}
	}
	s.flusher.Flush()
	metrics.AddBytes("downstream", len(p))
	return nil
}

type errClientGone struct {
	err error
}

func (e errClientGone) Error() string {
	return "downstream write failed: " + e.err.Error()
}

func (e errClientGone) Unwrap() error {
	return e.err
}

func (s *Session) snapshot() models.StatsSnapshot {
	return s.stats.Snapshot(s.queue.Len(), s.chain.Devices())
}

func (s *Session) outcome(ctx context.Context, err error) string {
	var gone errClientGone
	switch {
	case errors.As(err, &gone):
		return outcomeClientGone
	case err != nil:
		return outcomeUpstreamError
	case ctx.Err() != nil:
		return outcomeClientGone
	default:
		return outcomeCompleted
	}
}

func (s *Session) finish(ctx context.Context, outcome string, start time.Time) {
	duration := time.Since(start)
	metrics.ObserveSession(outcome, duration)

	if pending := s.splitter.Pending(); pending > 0 {
		s.logger.DebugwCtx(ctx, "Discarding incomplete trailing record", "length", pending)
	}
	if queued := s.queue.Len(); queued > 0 {
		s.logger.DebugwCtx(ctx, "Discarding queued records", "count", queued)
	}

	s.logStats(ctx, "Relay session closed",
		"outcome", outcome,
		"duration", duration.String(),
	)
}

func (s *Session) logStats(ctx context.Context, msg string, extra ...interface{}) {
	snap := s.snapshot()
	fields := []interface{}{
		"received", snap.Received,
		"forwarded", snap.Forwarded,
		"malformed", snap.Malformed,
		"dropped", snap.Dropped,
		"queued", snap.Queued,
		"devices", snap.Devices,
		"forward_rate", strconv.FormatFloat(snap.ForwardRatePercent, 'f', 1, 64) + "%",
	}
	if !s.passthrough {
		fields = append(fields, "top_devices", s.stats.TopDevices(constants.StatsTopDevicesLogged))
	}
	s.logger.InfowCtx(ctx, msg, append(fields, extra...)...)
}

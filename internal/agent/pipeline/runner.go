// Package pipeline implements the per-pipeline runner: the tick loop that
// polls a source, batches by size or time, runs it through a processor,
// and sends it to a destination with unbounded retry and exponential
// backoff.
package pipeline

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/destination"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/processor"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/source"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

const (
	sendBackoffBase = 500 * time.Millisecond
	sendBackoffCap  = 10 * time.Second
	sendJitterMax   = 250 * time.Millisecond

	metricsInterval = 5 * time.Second
)

// Config is the fixed, per-pipeline configuration a Runner is built from.
// It never changes across the runner's lifetime — a revision change means
// a new Runner replaces this one entirely, it never mutates in place.
type Config struct {
	AgentID         string
	Region          string
	TenantID        string
	PipelineID      string
	Name            string
	Revision        int64
	BatchMaxEvents  int
	BatchMaxSeconds float64
}

// Runner owns one source, one processor, one destination, and drives the
// tick contract against them. Not safe for concurrent Tick calls — the
// reconciler either ticks all runners from one goroutine or gives each its
// own, but never calls Tick on the same runner from two goroutines at once.
type Runner struct {
	cfg    Config
	src    source.Source
	proc   processor.Processor
	dst    destination.Destination
	logger *zap.Logger

	buffer          []model.Event
	lastFlushMono   time.Time
	inflight        []model.Event
	sendAttempt     int
	nextSendMono    time.Time
	lastMetricsEmit time.Time

	received     int64
	sentEvents   int64
	sentBatches  int64
	sendFailures int64
	lastOkWall   time.Time
	lastErr      string
}

// New constructs a Runner from a pipeline DTO. Building the source and
// destination may fail (e.g. the file destination's parent directory,
// syslog_udp's bind) —
// that failure is the caller's cue to log and leave the pipeline absent
// until the next reconcile replaces it with a corrected spec.
func New(cfg Config, spec model.PipelineSpec, logger *zap.Logger) (*Runner, error) {
	named := logger.With(zap.String("pipeline_id", cfg.PipelineID), zap.String("pipeline", cfg.Name))

	src, err := source.New(spec.Source, named)
	if err != nil {
		return nil, err
	}
	proc, err := processor.New(spec.Processor, named)
	if err != nil {
		src.Close()
		return nil, err
	}
	dst, err := destination.New(spec.Destination, named)
	if err != nil {
		src.Close()
		return nil, err
	}

	now := time.Now()
	return &Runner{
		cfg:             cfg,
		src:             src,
		proc:            proc,
		dst:             dst,
		logger:          named,
		lastFlushMono:   now,
		lastMetricsEmit: now,
	}, nil
}

// Close releases the runner's source (file handle, UDP socket, HTTP
// listener). Called only after the reconciler has already dropped the
// runner from its map — no tick can observe a closed source.
func (r *Runner) Close() error {
	return r.src.Close()
}

// Revision returns the pipeline version this runner was built from, so the
// reconciler can detect a spec change and decide to restart.
func (r *Runner) Revision() int64 { return r.cfg.Revision }

// Tick runs one scheduling slice of the contract:
//  1. Inflight retry wait: if a batch is already inflight and its backoff
//     hasn't elapsed, do nothing this tick.
//  2. Inflight send attempt: if a batch is inflight and due, attempt it.
//  3. Otherwise poll the source and append to the buffer.
//  4. Flush if the buffer is due by size or by time.
func (r *Runner) Tick(ctx context.Context) {
	now := time.Now()

	// --- 1/2. Inflight retry wait / send attempt ---
	if len(r.inflight) > 0 {
		if now.Before(r.nextSendMono) {
			return
		}
		r.attemptSend(ctx)
		return
	}

	// --- 3. Poll and buffer ---
	pulled, err := r.src.Poll(ctx, r.cfg.BatchMaxEvents)
	if err != nil {
		r.lastErr = err.Error()
		r.logger.Error("source poll failed", zap.Error(err))
		return
	}
	if len(pulled) > 0 {
		r.buffer = append(r.buffer, pulled...)
		r.received += int64(len(pulled))
	}

	// --- 4. Flush if due ---
	if len(r.buffer) == 0 {
		r.maybeEmitMetrics(now)
		return
	}
	sizeDue := len(r.buffer) >= r.cfg.BatchMaxEvents
	timeDue := now.Sub(r.lastFlushMono).Seconds() >= r.cfg.BatchMaxSeconds
	if !sizeDue && !timeDue {
		r.maybeEmitMetrics(now)
		return
	}

	r.inflight = r.buffer
	r.buffer = nil
	r.lastFlushMono = now
	r.sendAttempt = 0
	r.attemptSend(ctx)
	r.maybeEmitMetrics(now)
}

// stampMeta merges routing metadata into every event's meta map just
// before the processed batch is sent, per the tick contract.
func (r *Runner) stampMeta(events []model.Event) {
	for i := range events {
		if events[i].Meta == nil {
			events[i].Meta = map[string]any{}
		}
		events[i].Meta["agent_id"] = r.cfg.AgentID
		events[i].Meta["region"] = r.cfg.Region
		if r.cfg.TenantID != "" {
			events[i].Meta["tenant_id"] = r.cfg.TenantID
		}
		events[i].Meta["pipeline"] = r.cfg.Name
		events[i].Meta["pipeline_id"] = r.cfg.PipelineID
	}
}

// attemptSend runs the inflight batch through the processor and, on
// success, the destination. r.inflight always holds the pre-processor
// batch, never a processed one — a processor failure (including the
// indexer's IndexerInvalidRequest/IndexerEmptyResponse) is just as fatal
// to this attempt as a destination failure, and both fall back to the
// same inflight-plus-backoff retry: the batch is kept inflight forever on
// either kind of failure, never dropped. Retries are unbounded at the
// runner level, by design — an operator has to disable or replace the
// pipeline to stop them.
func (r *Runner) attemptSend(ctx context.Context) {
	processed, err := r.proc.Process(ctx, r.inflight)
	if err != nil {
		r.recordSendFailure(err)
		return
	}

	r.stampMeta(processed)
	if err := r.dst.Send(ctx, processed); err != nil {
		r.recordSendFailure(err)
		return
	}

	r.sentBatches++
	r.sentEvents += int64(len(r.inflight))
	r.inflight = nil
	r.sendAttempt = 0
	r.lastOkWall = time.Now()
	r.lastErr = ""
}

// recordSendFailure schedules the next retry and keeps the batch inflight.
// Called for either a processor failure or a destination failure — from
// the batch's point of view the two are indistinguishable retry causes.
func (r *Runner) recordSendFailure(err error) {
	r.sendFailures++
	r.lastErr = err.Error()
	r.sendAttempt++
	r.nextSendMono = time.Now().Add(sendBackoff(r.sendAttempt))
	r.logger.Warn("pipeline send attempt failed, backing off",
		zap.Int("attempt", r.sendAttempt),
		zap.Error(err),
	)
}

// sendBackoff implements delay(attempt) = min(cap, base*2^(attempt-1)) +
// jitter, attempt 1-based, jitter uniform in [0, 250ms).
func sendBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	base := sendBackoffBase * time.Duration(1<<uint(attempt-1))
	if base > sendBackoffCap {
		base = sendBackoffCap
	}
	jitter := time.Duration(rand.Int63n(int64(sendJitterMax)))
	return base + jitter
}

// maybeEmitMetrics logs the one-line metrics record the contract specifies
// every metricsInterval, without affecting the tick's own progress.
func (r *Runner) maybeEmitMetrics(now time.Time) {
	if now.Sub(r.lastMetricsEmit) < metricsInterval {
		return
	}
	r.lastMetricsEmit = now

	secondsUntilNextSend := 0.0
	if len(r.inflight) > 0 {
		if d := time.Until(r.nextSendMono); d > 0 {
			secondsUntilNextSend = d.Seconds()
		}
	}
	secondsSinceLastOK := -1.0
	if !r.lastOkWall.IsZero() {
		secondsSinceLastOK = now.Sub(r.lastOkWall).Seconds()
	}

	r.logger.Info("pipeline metrics",
		zap.String("pipeline_id", r.cfg.PipelineID),
		zap.String("name", r.cfg.Name),
		zap.Int64("received", r.received),
		zap.Int64("sent_events", r.sentEvents),
		zap.Int64("sent_batches", r.sentBatches),
		zap.Int64("failures", r.sendFailures),
		zap.Int("buffer_depth", len(r.buffer)),
		zap.Int("inflight_depth", len(r.inflight)),
		zap.Int("retry_attempt", r.sendAttempt),
		zap.Float64("seconds_until_next_send", secondsUntilNextSend),
		zap.Float64("seconds_since_last_success", secondsSinceLastOK),
		zap.String("last_error", r.lastErr),
	)
}

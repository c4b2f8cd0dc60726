package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline/processor"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

// sequencingSource emits its preloaded events one at a time across
// successive Poll calls, letting a test observe cross-tick batching
// behavior deterministically.
type sequencingSource struct {
	pending []model.Event
}

func (s *sequencingSource) Poll(ctx context.Context, maxEvents int) ([]model.Event, error) {
	if len(s.pending) == 0 {
		return nil, nil
	}
	n := maxEvents
	if n > len(s.pending) {
		n = len(s.pending)
	}
	out := s.pending[:n]
	s.pending = s.pending[n:]
	return out, nil
}

func (s *sequencingSource) Close() error { return nil }

// recordingDestination captures every batch it's handed, optionally
// failing the first N sends before succeeding — used to exercise the
// runner's retry/backoff path.
type recordingDestination struct {
	failuresRemaining int
	sends             [][]model.Event
}

func (d *recordingDestination) Send(ctx context.Context, batch []model.Event) error {
	if d.failuresRemaining > 0 {
		d.failuresRemaining--
		return errors.New("simulated destination failure")
	}
	cp := append([]model.Event{}, batch...)
	d.sends = append(d.sends, cp)
	return nil
}

type identityProcessor struct{}

func (identityProcessor) Process(ctx context.Context, batch []model.Event) ([]model.Event, error) {
	return batch, nil
}

// failingThenSucceedingProcessor fails the first N calls, then passes the
// batch through unchanged — used to exercise the runner's retry/backoff
// path on a processor failure instead of a destination failure.
type failingThenSucceedingProcessor struct {
	failuresRemaining int
	calls             int
}

func (p *failingThenSucceedingProcessor) Process(ctx context.Context, batch []model.Event) ([]model.Event, error) {
	p.calls++
	if p.failuresRemaining > 0 {
		p.failuresRemaining--
		return nil, errors.New("simulated processor failure")
	}
	return batch, nil
}

func newTestRunner(cfg Config, src *sequencingSource, dst *recordingDestination) *Runner {
	return newTestRunnerWithProcessor(cfg, src, identityProcessor{}, dst)
}

func newTestRunnerWithProcessor(cfg Config, src *sequencingSource, proc processor.Processor, dst *recordingDestination) *Runner {
	now := time.Now()
	return &Runner{
		cfg:             cfg,
		src:             src,
		proc:            proc,
		dst:             dst,
		logger:          zap.NewNop(),
		lastFlushMono:   now,
		lastMetricsEmit: now,
	}
}

func TestTickFlushesImmediatelyWhenBatchSizeOne(t *testing.T) {
	src := &sequencingSource{pending: []model.Event{{Raw: "one"}, {Raw: "two"}}}
	dst := &recordingDestination{}
	r := newTestRunner(Config{BatchMaxEvents: 1, BatchMaxSeconds: 3600}, src, dst)

	r.Tick(context.Background())
	if len(dst.sends) != 1 || len(dst.sends[0]) != 1 {
		t.Fatalf("expected one batch of one event after first tick, got %v", dst.sends)
	}

	r.Tick(context.Background())
	if len(dst.sends) != 2 || len(dst.sends[1]) != 1 {
		t.Fatalf("expected a second batch of one event, got %v", dst.sends)
	}
}

func TestTickFlushesOnTimeWhenBelowSizeThreshold(t *testing.T) {
	src := &sequencingSource{pending: []model.Event{{Raw: "only"}}}
	dst := &recordingDestination{}
	r := newTestRunner(Config{BatchMaxEvents: 1000, BatchMaxSeconds: 0.05}, src, dst)

	r.Tick(context.Background())
	if len(dst.sends) != 0 {
		t.Fatalf("expected no flush before the time threshold elapses, got %v", dst.sends)
	}

	time.Sleep(60 * time.Millisecond)
	r.Tick(context.Background())
	if len(dst.sends) != 1 {
		t.Fatalf("expected a time-based flush, got %v", dst.sends)
	}
}

func TestEventsDeliveredInSourceOrder(t *testing.T) {
	src := &sequencingSource{pending: []model.Event{{Raw: "a"}, {Raw: "b"}, {Raw: "c"}}}
	dst := &recordingDestination{}
	r := newTestRunner(Config{BatchMaxEvents: 3, BatchMaxSeconds: 3600}, src, dst)

	r.Tick(context.Background())
	if len(dst.sends) != 1 || len(dst.sends[0]) != 3 {
		t.Fatalf("expected one batch of three events, got %v", dst.sends)
	}
	got := []string{dst.sends[0][0].Raw, dst.sends[0][1].Raw, dst.sends[0][2].Raw}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected source order %v, got %v", want, got)
		}
	}
}

func TestDestinationFailureKeepsBatchInflightAndRetries(t *testing.T) {
	src := &sequencingSource{pending: []model.Event{{Raw: "x"}}}
	dst := &recordingDestination{failuresRemaining: 2}
	r := newTestRunner(Config{BatchMaxEvents: 1, BatchMaxSeconds: 3600}, src, dst)

	r.Tick(context.Background())
	if len(r.inflight) != 1 {
		t.Fatalf("expected batch to remain inflight after a failed send, got %d", len(r.inflight))
	}
	if r.sendFailures != 1 || r.sendAttempt != 1 {
		t.Fatalf("expected one recorded failure and attempt, got failures=%d attempt=%d", r.sendFailures, r.sendAttempt)
	}

	// Force the backoff window open so the next tick retries immediately.
	r.nextSendMono = time.Now().Add(-time.Millisecond)
	r.Tick(context.Background())
	if r.sendFailures != 2 || len(r.inflight) != 1 {
		t.Fatalf("expected second failure still inflight, got failures=%d inflight=%d", r.sendFailures, len(r.inflight))
	}

	r.nextSendMono = time.Now().Add(-time.Millisecond)
	r.Tick(context.Background())
	if r.sendFailures != 2 || len(r.inflight) != 0 || r.sentEvents != 1 {
		t.Fatalf("expected eventual success to clear inflight, got failures=%d inflight=%d sent=%d",
			r.sendFailures, len(r.inflight), r.sentEvents)
	}
}

func TestSendBackoffIsMonotonicUntilCapped(t *testing.T) {
	var prev time.Duration
	for attempt := 1; attempt <= 6; attempt++ {
		// Compute the jitter-free floor directly from the base and cap, since
		// jitter alone could make a single sendBackoff sample noisy.
		floor := sendBackoffBase * time.Duration(1<<uint(attempt-1))
		if floor > sendBackoffCap {
			floor = sendBackoffCap
		}
		if attempt > 1 && floor < prev {
			t.Fatalf("expected non-decreasing backoff floor, attempt %d floor %v < previous %v", attempt, floor, prev)
		}
		prev = floor
	}
	if prev != sendBackoffCap {
		t.Fatalf("expected backoff to have reached the cap by attempt 6, got %v", prev)
	}

	d := sendBackoff(10)
	if d < sendBackoffCap || d >= sendBackoffCap+sendJitterMax {
		t.Fatalf("expected capped backoff plus jitter, got %v", d)
	}
}

func TestStampMetaMergesRoutingFields(t *testing.T) {
	r := newTestRunner(Config{
		AgentID:    "agent-1",
		Region:     "us-east",
		TenantID:   "tenant-9",
		Name:       "demo",
		PipelineID: "p1",
	}, &sequencingSource{}, &recordingDestination{})

	events := []model.Event{{Raw: "hello"}}
	r.stampMeta(events)

	if events[0].Meta["agent_id"] != "agent-1" || events[0].Meta["region"] != "us-east" {
		t.Fatalf("expected agent_id/region stamped, got %v", events[0].Meta)
	}
	if events[0].Meta["tenant_id"] != "tenant-9" {
		t.Fatalf("expected tenant_id stamped when configured, got %v", events[0].Meta)
	}
	if events[0].Meta["pipeline"] != "demo" || events[0].Meta["pipeline_id"] != "p1" {
		t.Fatalf("expected pipeline/pipeline_id stamped, got %v", events[0].Meta)
	}
}

func TestProcessorFailureKeepsBatchInflightAndRetries(t *testing.T) {
	src := &sequencingSource{pending: []model.Event{{Raw: "x"}}}
	dst := &recordingDestination{}
	proc := &failingThenSucceedingProcessor{failuresRemaining: 2}
	r := newTestRunnerWithProcessor(Config{BatchMaxEvents: 1, BatchMaxSeconds: 3600}, src, proc, dst)

	r.Tick(context.Background())
	if len(r.inflight) != 1 {
		t.Fatalf("expected batch to remain inflight after a failed processor call, got %d", len(r.inflight))
	}
	if r.sendFailures != 1 || r.sendAttempt != 1 {
		t.Fatalf("expected one recorded failure and attempt, got failures=%d attempt=%d", r.sendFailures, r.sendAttempt)
	}
	if len(dst.sends) != 0 {
		t.Fatalf("expected the destination to never be called while the processor is failing, got %v", dst.sends)
	}

	r.nextSendMono = time.Now().Add(-time.Millisecond)
	r.Tick(context.Background())
	if r.sendFailures != 2 || len(r.inflight) != 1 {
		t.Fatalf("expected second processor failure still inflight, got failures=%d inflight=%d", r.sendFailures, len(r.inflight))
	}

	r.nextSendMono = time.Now().Add(-time.Millisecond)
	r.Tick(context.Background())
	if r.sendFailures != 2 || len(r.inflight) != 0 || r.sentEvents != 1 {
		t.Fatalf("expected eventual processor success to clear inflight, got failures=%d inflight=%d sent=%d",
			r.sendFailures, len(r.inflight), r.sentEvents)
	}
	if len(dst.sends) != 1 || len(dst.sends[0]) != 1 {
		t.Fatalf("expected exactly one batch reaching the destination once processing succeeds, got %v", dst.sends)
	}
	if proc.calls != 3 {
		t.Fatalf("expected the processor to be retried on every send attempt, got %d calls", proc.calls)
	}
}

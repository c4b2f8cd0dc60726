// Package reconciler drives the agent's single control loop: heartbeat on
// a fixed cadence, pull assignments on a configurable cadence, reconcile
// the running pipeline set against the latest pull, and tick every runner
// once per loop iteration.
package reconciler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/client"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/agent/pipeline"
	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/common/model"
)

const schedulerCadence = 50 * time.Millisecond

// Config configures one Reconciler instance for the agent's lifetime.
type Config struct {
	AgentID           string
	Region            string
	TenantID          string
	AdminPort         *int
	Capabilities      []string
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
}

// Reconciler owns the runner map and the heartbeat/pull/tick loop. One
// instance per agent process.
type Reconciler struct {
	cfg    Config
	client *client.Client
	logger *zap.Logger

	mu              sync.Mutex
	runners         map[string]*pipeline.Runner
	lastAppliedETag string

	lastHeartbeat time.Time
	lastPull      time.Time
}

// New creates a Reconciler. It does not register the agent itself — the
// caller does that once before starting Run, so a failed initial register
// can be retried or logged at startup rather than buried in the loop.
func New(cfg Config, c *client.Client, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		cfg:     cfg,
		client:  c,
		logger:  logger.Named("reconciler"),
		runners: make(map[string]*pipeline.Runner),
	}
}

// Run blocks until ctx is cancelled, driving the loop described in the
// agent reconciler contract. Every failure along the way is logged and the
// loop continues — only ctx cancellation stops it.
func (r *Reconciler) Run(ctx context.Context) {
	r.logger.Info("reconciler started",
		zap.String("agent_id", r.cfg.AgentID),
		zap.String("region", r.cfg.Region),
	)
	defer r.stopAll()

	ticker := time.NewTicker(schedulerCadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case now := <-ticker.C:
			r.step(ctx, now)
		}
	}
}

// step runs one scheduling tick: heartbeat-if-due, pull-if-due, tick every
// running pipeline once.
func (r *Reconciler) step(ctx context.Context, now time.Time) {
	if now.Sub(r.lastHeartbeat) >= r.cfg.HeartbeatInterval {
		r.lastHeartbeat = now
		r.heartbeat(ctx)
	}

	if now.Sub(r.lastPull) >= r.cfg.PollInterval {
		r.lastPull = now
		r.pullAndReconcile(ctx)
	}

	r.tickAll(ctx)
}

func (r *Reconciler) heartbeat(ctx context.Context) {
	err := r.client.Heartbeat(ctx, r.cfg.AgentID, r.cfg.Region, r.cfg.AdminPort, r.cfg.Capabilities)
	if err == nil {
		return
	}
	if errors.Is(err, client.ErrNotFound) {
		r.logger.Warn("heartbeat found agent unregistered, will re-register on next pull")
		return
	}
	r.logger.Warn("heartbeat failed, will retry next cycle", zap.Error(err))
}

func (r *Reconciler) pullAndReconcile(ctx context.Context) {
	resp, err := r.client.GetAssignments(ctx, r.cfg.AgentID, r.cfg.Region)
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			r.logger.Warn("assignments pull found agent unregistered, re-registering")
			if regErr := r.client.Register(ctx, r.cfg.AgentID, r.cfg.Region, r.cfg.AdminPort, r.cfg.Capabilities); regErr != nil {
				r.logger.Warn("re-register failed, will retry next cycle", zap.Error(regErr))
			}
			return
		}
		r.logger.Warn("assignments pull failed, will retry next cycle", zap.Error(err))
		return
	}
	r.reconcile(resp)
}

// reconcile brings the running runner set into agreement with resp. A
// no-op fast path skips all of this when the ETag hasn't moved.
func (r *Reconciler) reconcile(resp model.AssignmentsResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if resp.ETag == r.lastAppliedETag && r.lastAppliedETag != "" {
		return
	}

	desired := make(map[string]model.PipelineSpec, len(resp.Assignments))
	for _, a := range resp.Assignments {
		if a.Pipeline.Enabled {
			desired[a.Pipeline.PipelineID] = a.Pipeline
		}
	}

	for id, runner := range r.runners {
		if _, ok := desired[id]; !ok {
			r.logger.Info("stopping runner, no longer assigned or disabled", zap.String("pipeline_id", id))
			runner.Close()
			delete(r.runners, id)
		}
	}

	for id, spec := range desired {
		existing, running := r.runners[id]
		if running && existing.Revision() == spec.Revision {
			continue
		}
		if running {
			r.logger.Info("restarting runner on revision change",
				zap.String("pipeline_id", id),
				zap.Int64("old_revision", existing.Revision()),
				zap.Int64("new_revision", spec.Revision),
			)
			existing.Close()
			delete(r.runners, id)
		}

		runnerCfg := pipeline.Config{
			AgentID:         r.cfg.AgentID,
			Region:          r.cfg.Region,
			TenantID:        r.cfg.TenantID,
			PipelineID:      spec.PipelineID,
			Name:            spec.Name,
			Revision:        spec.Revision,
			BatchMaxEvents:  spec.BatchMaxEvents,
			BatchMaxSeconds: spec.BatchMaxSeconds,
		}
		newRunner, err := pipeline.New(runnerCfg, spec, r.logger)
		if err != nil {
			r.logger.Error("failed to start runner, will retry when the assignments ETag changes",
				zap.String("pipeline_id", id), zap.Error(err))
			continue
		}
		r.runners[id] = newRunner
		r.logger.Info("runner started", zap.String("pipeline_id", id), zap.String("name", spec.Name))
	}

	r.lastAppliedETag = resp.ETag
}

// tickAll snapshots the runner list under the lock, then ticks each one
// outside the lock so a slow tick never blocks a concurrent reconcile.
func (r *Reconciler) tickAll(ctx context.Context) {
	r.mu.Lock()
	snapshot := make([]*pipeline.Runner, 0, len(r.runners))
	for _, runner := range r.runners {
		snapshot = append(snapshot, runner)
	}
	r.mu.Unlock()

	for _, runner := range snapshot {
		runner.Tick(ctx)
	}
}

func (r *Reconciler) stopAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, runner := range r.runners {
		runner.Close()
		delete(r.runners, id)
	}
}

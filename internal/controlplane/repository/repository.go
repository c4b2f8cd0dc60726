// Package repository implements the control plane's persistence layer on
// top of GORM, following the teacher's one-struct-per-aggregate
// repository pattern: each repository wraps a *gorm.DB, wraps every error
// with an operation-scoped prefix, and maps gorm.ErrRecordNotFound to the
// package-level ErrNotFound so handlers can use errors.Is.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/db"
)

// ListOptions contains pagination options for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// AgentRepository persists Agent records.
type AgentRepository interface {
	// Upsert creates the agent if it does not exist, or updates region,
	// tenant_id, admin_port, capabilities, and last_seen_at if it does.
	// Used by register, which is not required to fail on an unknown agent.
	Upsert(ctx context.Context, agent *db.Agent) error
	// Touch updates region, admin_port, capabilities (only when non-empty),
	// and last_seen_at, leaving tenant_id as stored, and fails with
	// ErrNotFound if the agent does not already exist. Used by heartbeat and
	// get_assignments, both of which require the agent to be registered.
	Touch(ctx context.Context, agentID, region string, adminPort *int, capabilities string) (*db.Agent, error)
	GetByID(ctx context.Context, agentID string) (*db.Agent, error)
	List(ctx context.Context, opts ListOptions) ([]db.Agent, int64, error)
}

// PipelineRepository persists Pipeline records.
type PipelineRepository interface {
	Create(ctx context.Context, pipeline *db.Pipeline) error
	// Update overwrites name, enabled, and spec, and unconditionally
	// increments version — even if the spec is byte-identical to what is
	// already stored, per the spec's "version increments on every
	// update" invariant.
	Update(ctx context.Context, id uuid.UUID, name string, enabled bool, spec string) (*db.Pipeline, error)
	GetByID(ctx context.Context, id uuid.UUID) (*db.Pipeline, error)
	List(ctx context.Context, opts ListOptions) ([]db.Pipeline, int64, error)
}

// AssignmentRepository persists Assignment records.
type AssignmentRepository interface {
	// GetOrCreate looks up an existing (agentID, region, pipelineID)
	// triple and returns it if found; otherwise creates and returns a new
	// assignment. This is how create_assignment stays idempotent on the
	// triple without racing a unique-index violation.
	GetOrCreate(ctx context.Context, agentID, region string, pipelineID uuid.UUID) (*db.Assignment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ListForAgentRegionWithPipelines returns every assignment for
	// (agentID, region) ordered by creation time ascending, each paired
	// with its bound pipeline. This ordering is exactly the basis the
	// ETag is computed over.
	ListForAgentRegionWithPipelines(ctx context.Context, agentID, region string) ([]AssignmentWithPipeline, error)
}

// AssignmentWithPipeline pairs an assignment row with the pipeline it
// binds. The listing loads each bound pipeline with its own query, one per
// assignment.
type AssignmentWithPipeline struct {
	Assignment db.Assignment
	Pipeline   db.Pipeline
}

// Clock is a time-source function type. The repositories in this package
// do not take one; they stamp last_seen_at / created_at with time.Now.
type Clock func() time.Time

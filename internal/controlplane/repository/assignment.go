package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/db"
)

type gormAssignmentRepository struct {
	db *gorm.DB
}

// NewAssignmentRepository returns an AssignmentRepository backed by the
// provided *gorm.DB.
func NewAssignmentRepository(gdb *gorm.DB) AssignmentRepository {
	return &gormAssignmentRepository{db: gdb}
}

// GetOrCreate first looks up the (agentID, region, pipelineID) triple; if
// found, it returns the existing row untouched (idempotent create). If not
// found, it creates a new assignment. The lookup-then-create is not wrapped
// in a serializable transaction: a single control plane process handling
// one create_assignment call at a time for a given triple is the expected
// operating mode, and a rare duplicate insert under concurrent racing
// writers would only be visible as two assignment_ids for the same triple,
// which callers do not rely on being globally unique.
func (r *gormAssignmentRepository) GetOrCreate(ctx context.Context, agentID, region string, pipelineID uuid.UUID) (*db.Assignment, error) {
	var existing db.Assignment
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND region = ? AND pipeline_id = ?", agentID, region, pipelineID).
		First(&existing).Error
	switch {
	case err == nil:
		return &existing, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, fmt.Errorf("assignments: get or create lookup: %w", err)
	}

	assignment := &db.Assignment{
		AgentID:    agentID,
		Region:     region,
		PipelineID: pipelineID,
	}
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, fmt.Errorf("assignments: get or create insert: %w", err)
	}
	return assignment, nil
}

func (r *gormAssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&db.Assignment{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("assignments: delete: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForAgentRegionWithPipelines returns assignments ordered by creation
// time ascending, each joined with its bound pipeline. This exact ordering
// is the basis the ETag is computed over, so it is not an implementation
// detail — callers must not re-sort.
func (r *gormAssignmentRepository) ListForAgentRegionWithPipelines(ctx context.Context, agentID, region string) ([]AssignmentWithPipeline, error) {
	var assignments []db.Assignment
	if err := r.db.WithContext(ctx).
		Where("agent_id = ? AND region = ?", agentID, region).
		Order("created_at ASC").
		Find(&assignments).Error; err != nil {
		return nil, fmt.Errorf("assignments: list for agent region: %w", err)
	}

	out := make([]AssignmentWithPipeline, 0, len(assignments))
	for _, a := range assignments {
		var pipeline db.Pipeline
		if err := r.db.WithContext(ctx).First(&pipeline, "id = ?", a.PipelineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// The pipeline was deleted without its assignment cascading
				// yet (should not happen given the FK, but skip defensively
				// rather than fail the whole pull).
				continue
			}
			return nil, fmt.Errorf("assignments: list for agent region: load pipeline: %w", err)
		}
		out = append(out, AssignmentWithPipeline{Assignment: a, Pipeline: pipeline})
	}
	return out, nil
}

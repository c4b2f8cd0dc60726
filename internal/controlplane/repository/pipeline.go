package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/db"
)

type gormPipelineRepository struct {
	db *gorm.DB
}

// NewPipelineRepository returns a PipelineRepository backed by the
// provided *gorm.DB.
func NewPipelineRepository(gdb *gorm.DB) PipelineRepository {
	return &gormPipelineRepository{db: gdb}
}

func (r *gormPipelineRepository) Create(ctx context.Context, pipeline *db.Pipeline) error {
	if pipeline.Version == 0 {
		pipeline.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(pipeline).Error; err != nil {
		return fmt.Errorf("pipelines: create: %w", err)
	}
	return nil
}

// Update unconditionally bumps version, matching "version increments on
// every update (even if spec unchanged)".
func (r *gormPipelineRepository) Update(ctx context.Context, id uuid.UUID, name string, enabled bool, spec string) (*db.Pipeline, error) {
	var pipeline db.Pipeline
	err := r.db.WithContext(ctx).First(&pipeline, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pipelines: update lookup: %w", err)
	}

	pipeline.Name = name
	pipeline.Enabled = enabled
	pipeline.Spec = spec
	pipeline.Version++
	pipeline.UpdatedAt = time.Now().UTC()

	if err := r.db.WithContext(ctx).Save(&pipeline).Error; err != nil {
		return nil, fmt.Errorf("pipelines: update save: %w", err)
	}
	return &pipeline, nil
}

func (r *gormPipelineRepository) GetByID(ctx context.Context, id uuid.UUID) (*db.Pipeline, error) {
	var pipeline db.Pipeline
	err := r.db.WithContext(ctx).First(&pipeline, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("pipelines: get by id: %w", err)
	}
	return &pipeline, nil
}

func (r *gormPipelineRepository) List(ctx context.Context, opts ListOptions) ([]db.Pipeline, int64, error) {
	var pipelines []db.Pipeline
	var total int64

	if err := r.db.WithContext(ctx).Model(&db.Pipeline{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("pipelines: list count: %w", err)
	}

	q := r.db.WithContext(ctx).Order("created_at ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit).Offset(opts.Offset)
	}
	if err := q.Find(&pipelines).Error; err != nil {
		return nil, 0, fmt.Errorf("pipelines: list: %w", err)
	}

	return pipelines, total, nil
}

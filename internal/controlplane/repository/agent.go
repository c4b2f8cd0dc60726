package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/theeghanprojecthub/Observix-Pro-Max/internal/controlplane/db"
)

type gormAgentRepository struct {
	db *gorm.DB
}

// NewAgentRepository returns an AgentRepository backed by the provided *gorm.DB.
func NewAgentRepository(gdb *gorm.DB) AgentRepository {
	return &gormAgentRepository{db: gdb}
}

// Upsert implements the register contract: create-or-update, never fails
// on an unknown agent.
func (r *gormAgentRepository) Upsert(ctx context.Context, agent *db.Agent) error {
	now := time.Now().UTC()

	var existing db.Agent
	err := r.db.WithContext(ctx).First(&existing, "id = ?", agent.ID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		agent.CreatedAt = now
		agent.LastSeenAt = now
		if err := r.db.WithContext(ctx).Create(agent).Error; err != nil {
			return fmt.Errorf("agents: upsert create: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("agents: upsert lookup: %w", err)
	}

	existing.Region = agent.Region
	existing.TenantID = agent.TenantID
	existing.AdminPort = agent.AdminPort
	existing.Capabilities = agent.Capabilities
	existing.LastSeenAt = now
	if err := r.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return fmt.Errorf("agents: upsert update: %w", err)
	}
	*agent = existing
	return nil
}

// Touch implements heartbeat / get_assignments: fails with ErrNotFound if
// the agent was never registered.
func (r *gormAgentRepository) Touch(ctx context.Context, agentID, region string, adminPort *int, capabilities string) (*db.Agent, error) {
	var agent db.Agent
	err := r.db.WithContext(ctx).First(&agent, "id = ?", agentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("agents: touch lookup: %w", err)
	}

	agent.Region = region
	agent.AdminPort = adminPort
	if capabilities != "" {
		agent.Capabilities = capabilities
	}
	agent.LastSeenAt = time.Now().UTC()

	if err := r.db.WithContext(ctx).Save(&agent).Error; err != nil {
		return nil, fmt.Errorf("agents: touch save: %w", err)
	}
	return &agent, nil
}

func (r *gormAgentRepository) GetByID(ctx context.Context, agentID string) (*db.Agent, error) {
	var agent db.Agent
	err := r.db.WithContext(ctx).First(&agent, "id = ?", agentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("agents: get by id: %w", err)
	}
	return &agent, nil
}

func (r *gormAgentRepository) List(ctx context.Context, opts ListOptions) ([]db.Agent, int64, error) {
	var agents []db.Agent
	var total int64

	if err := r.db.WithContext(ctx).Model(&db.Agent{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("agents: list count: %w", err)
	}

	q := r.db.WithContext(ctx).Order("created_at ASC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit).Offset(opts.Offset)
	}
	if err := q.Find(&agents).Error; err != nil {
		return nil, 0, fmt.Errorf("agents: list: %w", err)
	}

	return agents, total, nil
}

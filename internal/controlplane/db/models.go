// Package db holds the GORM models and connection/migration plumbing for
// the control plane's SQL store.
package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// base is embedded by every server-generated-ID model. ID uses UUIDv7
// (time-ordered) so records sort chronologically without a separate
// created_at index lookup.
type base struct {
	ID        uuid.UUID `gorm:"type:text;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate generates a UUIDv7 if the ID has not already been set.
func (b *base) BeforeCreate(tx *gorm.DB) error {
	if b.ID == (uuid.UUID{}) {
		id, err := uuid.NewV7()
		if err != nil {
			return err
		}
		b.ID = id
	}
	return nil
}

// Agent is client-identified rather than server-generated: the caller
// supplies agent_id at register time, so Agent does not embed base.
// LastSeenAt is bumped by register, heartbeat, and get_assignments (all
// three "touch" the agent per the assignment service contract).
type Agent struct {
	ID           string `gorm:"type:text;primaryKey"`
	Region       string `gorm:"not null"`
	TenantID     string `gorm:"default:''"`
	AdminPort    *int
	Capabilities string    `gorm:"type:text;not null;default:'[]'"` // JSON array of strings
	CreatedAt    time.Time `gorm:"not null"`
	LastSeenAt   time.Time `gorm:"not null"`
}

// Pipeline is a named, versioned source->processor->destination spec.
// Spec holds the *cleaned* blob only — pipeline_id/name/enabled/version are
// control-plane metadata columns, stripped from Spec on write and re-joined
// into the DTO on read.
type Pipeline struct {
	base
	Name    string `gorm:"not null"`
	Enabled bool   `gorm:"not null;default:true"`
	Version int64  `gorm:"not null;default:1"`
	Spec    string `gorm:"type:text;not null"` // JSON: source/processor/destination/batch_*
}

// Assignment binds one Pipeline to one (agent_id, region) pair. The
// (agent_id, region, pipeline_id) triple is unique at the application
// layer (enforced in the repository, not a DB constraint, so that
// "re-creating an existing triple" can cheaply look up and return the
// existing row instead of racing a unique-index violation).
type Assignment struct {
	base
	AgentID    string    `gorm:"type:text;not null;index:idx_assignments_agent_region"`
	Region     string    `gorm:"not null;index:idx_assignments_agent_region"`
	PipelineID uuid.UUID `gorm:"type:text;not null;index"`
}

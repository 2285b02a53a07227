package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	StrategyStatusDraft     = "draft"
	StrategyStatusPending   = "pending"
	StrategyStatusApproved  = "approved"
	StrategyStatusRejected  = "rejected"
	StrategyStatusCompleted = "completed"
)

// Strategy is a tenant-owned growth plan. The runner only ever touches
// CompletionPercentage; Status belongs to the approval workflow.
type Strategy struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`

	Title       string `gorm:"type:varchar(200);not null"`
	Description string `gorm:"type:text"`
	Status      string `gorm:"type:varchar(20);not null;default:'draft';index"`

	CompletionPercentage *int           `gorm:"default:0"`
	Metadata             datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Strategy) TableName() string {
	return "strategies"
}

// Executable reports whether the runner may start an execution for this status.
func (s Strategy) Executable() bool {
	return s.Status == StrategyStatusApproved || s.Status == StrategyStatusPending
}

// Completion returns the stored completion percentage, treating null as 0.
func (s Strategy) Completion() int {
	if s.CompletionPercentage == nil {
		return 0
	}
	return *s.CompletionPercentage
}

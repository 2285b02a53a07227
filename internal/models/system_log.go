package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	SystemLogModuleStrategy = "strategy"

	EventStrategyExecutionStarted = "strategy_execution_started"
	EventStrategyExecuted         = "strategy_executed"
	EventStrategyExecutionFailed  = "strategy_execution_failed"
)

// SystemLog is a fire-and-forget audit event.
type SystemLog struct {
	ID       uint64         `gorm:"primaryKey;autoIncrement"`
	TenantID uuid.UUID      `gorm:"type:uuid;not null;index"`
	Module   string         `gorm:"type:varchar(40);not null;index"`
	Event    string         `gorm:"type:varchar(80);not null;index"`
	Context  datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
}

func (SystemLog) TableName() string {
	return "system_logs"
}

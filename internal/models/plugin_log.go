package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	PluginLogStatusSuccess = "success"
	PluginLogStatusFailure = "failure"
)

// PluginLog is append-only: one row per plugin considered in an execution.
type PluginLog struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	PluginID    uuid.UUID `gorm:"type:uuid;not null;index"`
	StrategyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	TenantID    uuid.UUID `gorm:"type:uuid;not null;index"`
	ExecutionID uuid.UUID `gorm:"type:uuid;not null;index"`

	Status        string          `gorm:"type:varchar(20);not null"`
	Input         datatypes.JSON  `gorm:"type:jsonb"`
	Output        datatypes.JSON  `gorm:"type:jsonb"`
	Error         *string         `gorm:"type:text"`
	ExecutionTime decimal.Decimal `gorm:"type:numeric(12,3);not null;default:0"`
	XPEarned      int             `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PluginLog) TableName() string {
	return "plugin_logs"
}

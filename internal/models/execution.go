package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

const (
	ExecutionStatusPending = "pending"
	ExecutionStatusSuccess = "success"
	ExecutionStatusPartial = "partial"
	ExecutionStatusFailure = "failure"

	ExecutionTypeStrategy = "strategy"
)

// Execution is the durable audit record of one strategy run. It is inserted
// as pending and receives exactly one terminal update.
type Execution struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey"`
	TenantID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	StrategyID uuid.UUID  `gorm:"type:uuid;not null;index"`
	ExecutedBy *uuid.UUID `gorm:"type:uuid"`

	Type   string `gorm:"type:varchar(20);not null;default:'strategy'"`
	Status string `gorm:"type:varchar(20);not null;default:'pending';index"`

	Input         datatypes.JSON  `gorm:"type:jsonb"`
	Output        datatypes.JSON  `gorm:"type:jsonb"`
	ExecutionTime decimal.Decimal `gorm:"type:numeric(12,3);not null;default:0"`
	XPEarned      int             `gorm:"not null;default:0"`
	Error         *string         `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Execution) TableName() string {
	return "executions"
}

func (e Execution) Terminal() bool {
	return e.Status != ExecutionStatusPending
}

// Seconds converts a duration to the numeric(12,3) seconds stored in
// execution_time columns.
func Seconds(d time.Duration) decimal.Decimal {
	if d < 0 {
		d = 0
	}
	return decimal.NewFromFloat(d.Seconds()).Round(3)
}

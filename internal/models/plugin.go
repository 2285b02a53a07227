package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	PluginStatusActive   = "active"
	PluginStatusInactive = "inactive"
)

// Plugin is a unit of work a strategy execution fans out to.
//
// Metadata may carry:
//
//	order        int      ascending run order, missing sorts last
//	dependencies []string plugin ids that must succeed earlier in the same run
//	category     string   runner registry key
//	xp_reward    int      XP awarded by the simulated runner
type Plugin struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;index"`

	Name     string         `gorm:"type:varchar(120);not null"`
	Status   string         `gorm:"type:varchar(20);not null;default:'inactive';index"`
	Metadata datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Plugin) TableName() string {
	return "plugins"
}

type PluginMetadata struct {
	Order        *int     `json:"order,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
	Category     string   `json:"category,omitempty"`
	XPReward     *int     `json:"xp_reward,omitempty"`
}

// ParsedMetadata decodes the known metadata keys. Malformed metadata yields
// the zero value so a bad row never blocks a run.
func (p Plugin) ParsedMetadata() PluginMetadata {
	var md PluginMetadata
	if len(p.Metadata) == 0 {
		return md
	}
	_ = json.Unmarshal(p.Metadata, &md)
	return md
}

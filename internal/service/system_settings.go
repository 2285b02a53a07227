package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gorm.io/datatypes"

	"growthops/internal/models"
	"growthops/internal/repository"
)

const (
	FeatureStrategyExecution = "feature.strategy_execution"
	FeatureExecutionReaper   = "feature.execution_reaper"
	FeaturePaaSLogForward    = "feature.paas_log_forward"
)

// FeatureSwitch is a built-in boolean setting and its seeded value.
type FeatureSwitch struct {
	Key         string
	Default     bool
	Description string
}

var featureSwitches = []FeatureSwitch{
	{FeatureStrategyExecution, true, "POST /executeStrategy accepts requests"},
	{FeatureExecutionReaper, true, "cron job fails executions stuck in pending"},
	{FeaturePaaSLogForward, true, "system events are forwarded to the PaaS log API"},
}

func FeatureSwitches() []FeatureSwitch {
	out := make([]FeatureSwitch, len(featureSwitches))
	copy(out, featureSwitches)
	return out
}

// DefaultFeatureSwitches maps each built-in switch key to its seeded value.
func DefaultFeatureSwitches() map[string]bool {
	out := make(map[string]bool, len(featureSwitches))
	for _, sw := range featureSwitches {
		out[sw.Key] = sw.Default
	}
	return out
}

// SystemSettingsService reads and writes feature switches. A nil service
// reports every switch at its fallback.
type SystemSettingsService struct {
	Repo repository.SettingsRepository
}

// EnsureDefaultSwitches inserts built-in switches that have no row yet.
// Stored values win so an operator's choice survives restarts.
func (s *SystemSettingsService) EnsureDefaultSwitches(ctx context.Context) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	for _, sw := range featureSwitches {
		existing, err := s.Repo.GetSystemSettingByKey(ctx, sw.Key)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if err := s.write(ctx, sw.Key, sw.Default, sw.Description); err != nil {
			return err
		}
	}
	return nil
}

// IsEnabled returns the stored boolean for key. Missing, unreadable or
// non-boolean values yield fallback.
func (s *SystemSettingsService) IsEnabled(ctx context.Context, key string, fallback bool) bool {
	if s == nil || s.Repo == nil {
		return fallback
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fallback
	}
	item, err := s.Repo.GetSystemSettingByKey(ctx, key)
	if err != nil || item == nil {
		return fallback
	}
	var enabled bool
	if json.Unmarshal(item.Value, &enabled) != nil {
		return fallback
	}
	return enabled
}

func (s *SystemSettingsService) SetEnabled(ctx context.Context, key string, enabled bool) error {
	if s == nil || s.Repo == nil {
		return nil
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	desc := "feature switch"
	for _, sw := range featureSwitches {
		if sw.Key == key {
			desc = sw.Description
		}
	}
	return s.write(ctx, key, enabled, desc)
}

func (s *SystemSettingsService) write(ctx context.Context, key string, enabled bool, desc string) error {
	raw, _ := json.Marshal(enabled)
	now := time.Now().UTC()
	return s.Repo.UpsertSystemSetting(ctx, &models.SystemSetting{
		Key:         key,
		Value:       datatypes.JSON(raw),
		Description: desc,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

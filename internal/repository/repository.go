package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"growthops/internal/models"
)

// StrategyRepository is the tenant-scoped read/progress surface the runner needs.
type StrategyRepository interface {
	// GetStrategy returns nil, nil when no row matches both id and tenant.
	GetStrategy(ctx context.Context, tenantID, strategyID uuid.UUID) (*models.Strategy, error)
	ListStrategies(ctx context.Context, params ListStrategiesParams) ([]models.Strategy, error)
	// IncrementStrategyCompletion adds delta in a single statement, clamps to
	// [0,100] and returns the stored value.
	IncrementStrategyCompletion(ctx context.Context, tenantID, strategyID uuid.UUID, delta int) (int, error)
}

type PluginRepository interface {
	// ListActivePlugins returns active plugins for the tenant ordered by
	// metadata.order ascending (missing last) and capped at limit.
	ListActivePlugins(ctx context.Context, tenantID uuid.UUID, limit int) ([]models.Plugin, error)
	ListPlugins(ctx context.Context, params ListPluginsParams) ([]models.Plugin, error)
}

type ExecutionRepository interface {
	// CreateExecution is idempotent on the execution id.
	CreateExecution(ctx context.Context, item *models.Execution) error
	FinalizeExecution(ctx context.Context, id uuid.UUID, update ExecutionUpdate) error
	GetExecution(ctx context.Context, tenantID, id uuid.UUID) (*models.Execution, error)
	ListExecutions(ctx context.Context, params ListExecutionsParams) ([]models.Execution, error)
	CountExecutions(ctx context.Context, params ListExecutionsParams) (int64, error)
	ListStalePendingExecutions(ctx context.Context, before time.Time, limit int) ([]models.Execution, error)

	InsertPluginLog(ctx context.Context, item *models.PluginLog) error
	ListPluginLogsByExecution(ctx context.Context, tenantID, executionID uuid.UUID) ([]models.PluginLog, error)
}

type SystemLogRepository interface {
	InsertSystemLog(ctx context.Context, item *models.SystemLog) error
	ListSystemLogs(ctx context.Context, params ListSystemLogsParams) ([]models.SystemLog, error)
}

type SettingsRepository interface {
	UpsertSystemSetting(ctx context.Context, item *models.SystemSetting) error
	GetSystemSettingByKey(ctx context.Context, key string) (*models.SystemSetting, error)
	ListSystemSettings(ctx context.Context, params ListSystemSettingsParams) ([]models.SystemSetting, error)
	CountSystemSettings(ctx context.Context, params ListSystemSettingsParams) (int64, error)
}

// Repository is the unified store used by the runner, handlers and jobs.
type Repository interface {
	StrategyRepository
	PluginRepository
	ExecutionRepository
	SystemLogRepository
	SettingsRepository
}

// ExecutionUpdate is the terminal write applied to an execution row.
type ExecutionUpdate struct {
	Status        string
	Output        []byte
	ExecutionTime time.Duration
	XPEarned      int
	Error         *string
}

type ListStrategiesParams struct {
	TenantID uuid.UUID
	Status   *string
	Limit    int
	Offset   int
}

type ListPluginsParams struct {
	TenantID uuid.UUID
	Status   *string
	Limit    int
	Offset   int
}

type ListExecutionsParams struct {
	TenantID   uuid.UUID
	StrategyID *uuid.UUID
	Status     *string
	Limit      int
	Offset     int
	OrderBy    string
	Asc        *bool
}

type ListSystemLogsParams struct {
	TenantID uuid.UUID
	Module   *string
	Event    *string
	Since    *time.Time
	Limit    int
	Offset   int
}

type ListSystemSettingsParams struct {
	Limit   int
	Offset  int
	Prefix  *string
	OrderBy string
	Asc     *bool
}

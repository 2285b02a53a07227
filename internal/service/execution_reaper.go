package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"growthops/internal/models"
	"growthops/internal/observability"
	"growthops/internal/repository"
)

const abandonedError = "execution abandoned"

// ExecutionReaper fails executions stuck in pending, which happens when a
// process dies between the pending insert and the terminal write.
type ExecutionReaper struct {
	Repo     repository.Repository
	Settings *SystemSettingsService
	Metrics  *observability.Metrics
	Logger   *zap.Logger

	StaleAfter time.Duration
	BatchSize  int

	now func() time.Time
}

// Run reaps one batch and returns how many rows were closed.
func (r *ExecutionReaper) Run(ctx context.Context) (int, error) {
	if r == nil || r.Repo == nil {
		return 0, nil
	}
	if !r.Settings.IsEnabled(ctx, FeatureExecutionReaper, true) {
		return 0, nil
	}
	staleAfter := r.StaleAfter
	if staleAfter <= 0 {
		staleAfter = 15 * time.Minute
	}
	batch := r.BatchSize
	if batch <= 0 {
		batch = 200
	}
	now := time.Now().UTC()
	if r.now != nil {
		now = r.now()
	}

	items, err := r.Repo.ListStalePendingExecutions(ctx, now.Add(-staleAfter), batch)
	if err != nil {
		return 0, err
	}

	reaped := 0
	for _, item := range items {
		msg := abandonedError
		err := r.Repo.FinalizeExecution(ctx, item.ID, repository.ExecutionUpdate{
			Status:        models.ExecutionStatusFailure,
			ExecutionTime: now.Sub(item.CreatedAt),
			Error:         &msg,
		})
		if errors.Is(err, repository.ErrNotFound) {
			// Finished between list and update.
			continue
		}
		if err != nil {
			r.logger().Warn("reap execution failed", zap.String("execution_id", item.ID.String()), zap.Error(err))
			continue
		}
		reaped++

		raw, _ := json.Marshal(map[string]any{
			"strategy_id":  item.StrategyID.String(),
			"execution_id": item.ID.String(),
			"error":        msg,
			"reaped":       true,
		})
		if err := r.Repo.InsertSystemLog(ctx, &models.SystemLog{
			TenantID: item.TenantID,
			Module:   models.SystemLogModuleStrategy,
			Event:    models.EventStrategyExecutionFailed,
			Context:  datatypes.JSON(raw),
		}); err != nil {
			r.logger().Warn("reap event write failed", zap.String("execution_id", item.ID.String()), zap.Error(err))
		}
	}

	r.Metrics.Reaped(reaped)
	if reaped > 0 {
		r.logger().Info("stale executions reaped", zap.Int("count", reaped), zap.Int("candidates", len(items)))
	}
	return reaped, nil
}

func (r *ExecutionReaper) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

package runner

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"growthops/internal/events"
	"growthops/internal/models"
	"growthops/internal/paas"
	"growthops/internal/service"
)

// Switches reports runtime feature switches.
type Switches interface {
	IsEnabled(ctx context.Context, key string, fallback bool) bool
}

// emit records a system event. Every sink is best effort: failures are
// logged and never returned.
func (r *Runner) emit(ctx context.Context, ev events.Event, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		raw = []byte("{}")
	}

	if r.Repo != nil {
		item := &models.SystemLog{
			TenantID: ev.TenantID,
			Module:   models.SystemLogModuleStrategy,
			Event:    ev.Type,
			Context:  datatypes.JSON(raw),
		}
		if err := r.Repo.InsertSystemLog(ctx, item); err != nil {
			r.logger().Warn("system event write failed",
				zap.String("event", ev.Type),
				zap.String("execution_id", ev.ExecutionID.String()),
				zap.Error(err),
			)
		}
	}

	r.Hub.Publish(ev)
	r.forward(ctx, ev, details)
}

func (r *Runner) forward(ctx context.Context, ev events.Event, details map[string]any) {
	if r.PaaS == nil {
		return
	}
	if r.Switches != nil && !r.Switches.IsEnabled(ctx, service.FeaturePaaSLogForward, true) {
		return
	}
	level := paas.LevelFromStatus(ev.Status)
	if ev.Type == models.EventStrategyExecutionFailed {
		level = "error"
	}
	fwd := make(map[string]any, len(details)+1)
	for k, v := range details {
		fwd[k] = v
	}
	fwd["tenant_id"] = ev.TenantID.String()

	client := r.PaaS
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		paas.LogBestEffortCtx(paas.WithClient(context.Background(), client), ev.Type, level, fwd)
	}()
}

func baseDetails(strategyID, executionID uuid.UUID) map[string]any {
	return map[string]any{
		"strategy_id":  strategyID.String(),
		"execution_id": executionID.String(),
	}
}

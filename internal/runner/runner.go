// Package runner executes a tenant's strategy: it loads the strategy, runs
// its active plugins in order with dependency gating, aggregates the outcome
// and records the audit trail. Only request, lookup and state errors reach
// the caller; every write after that is best effort.
package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"growthops/internal/config"
	"growthops/internal/events"
	"growthops/internal/lock"
	"growthops/internal/models"
	"growthops/internal/observability"
	"growthops/internal/paas"
	"growthops/internal/repository"
	"growthops/internal/retry"
)

// Result is the response body of a completed execution.
type Result struct {
	Success           bool      `json:"success"`
	ExecutionID       uuid.UUID `json:"execution_id"`
	StrategyID        uuid.UUID `json:"strategy_id"`
	Status            string    `json:"status"`
	PluginsExecuted   int       `json:"plugins_executed"`
	SuccessfulPlugins int       `json:"successful_plugins"`
	ExecutionTime     float64   `json:"execution_time"`
	XPEarned          int       `json:"xp_earned"`

	Plugins []PluginOutcome `json:"-"`
	// Completion is the stored percentage after the increment, nil when no
	// increment was applied.
	Completion *int `json:"-"`
}

// PluginOutcome is one entry of the execution output.
type PluginOutcome struct {
	PluginID      uuid.UUID      `json:"plugin_id"`
	PluginName    string         `json:"plugin_name"`
	Success       bool           `json:"success"`
	Skipped       bool           `json:"skipped,omitempty"`
	Output        map[string]any `json:"output,omitempty"`
	Error         string         `json:"error,omitempty"`
	XPEarned      int            `json:"xp_earned"`
	ExecutionTime float64        `json:"execution_time"`
}

type Runner struct {
	Repo     repository.Repository
	Registry *Registry
	Locker   lock.Locker
	Hub      *events.Hub
	PaaS     *paas.Client
	Switches Switches
	Metrics  *observability.Metrics
	Logger   *zap.Logger
	Config   config.RunnerConfig

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() uuid.UUID

	wg sync.WaitGroup
}

func New(repo repository.Repository, logger *zap.Logger, cfg config.RunnerConfig) *Runner {
	cfg = withDefaults(cfg)
	return &Runner{
		Repo:     repo,
		Logger:   logger,
		Config:   cfg,
		Registry: NewRegistry(SimulatedRunner{DefaultXP: cfg.DefaultXP}),
	}
}

func withDefaults(cfg config.RunnerConfig) config.RunnerConfig {
	if cfg.PluginLimit <= 0 {
		cfg.PluginLimit = 10
	}
	if cfg.WriteMaxAttempts <= 0 {
		cfg.WriteMaxAttempts = 3
	}
	if cfg.WriteBaseDelay <= 0 {
		cfg.WriteBaseDelay = 500 * time.Millisecond
	}
	if cfg.SuccessIncrement == 0 {
		cfg.SuccessIncrement = 25
	}
	if cfg.PartialIncrement == 0 {
		cfg.PartialIncrement = 10
	}
	if cfg.DefaultXP == 0 {
		cfg.DefaultXP = 10
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return cfg
}

// Wait blocks until background log forwarding has drained.
func (r *Runner) Wait() {
	r.wg.Wait()
}

type execution struct {
	id    uuid.UUID
	req   ExecutionRequest
	start time.Time
	log   *zap.Logger

	// terminal is set once the terminal row is written; result once the
	// response is built from it.
	terminal bool
	result   *Result
}

// Execute runs one strategy to completion. Errors are *ValidationError,
// ErrExecutionInProgress, or an *ExecutionError wrapping
// ErrStrategyNotFound, *InvalidStateError or an unexpected cause.
func (r *Runner) Execute(ctx context.Context, req ExecutionRequest) (res *Result, err error) {
	if err := req.Validate(); err != nil {
		r.Metrics.Rejected("validation")
		return nil, err
	}
	if req.Options == nil {
		req.Options = map[string]any{}
	}
	cfg := withDefaults(r.Config)

	// Once started an execution runs to the end even if the caller leaves.
	ctx = context.WithoutCancel(ctx)
	ctx, span := otel.Tracer(observability.TracerName).Start(ctx, "runner.Execute", trace.WithAttributes(
		attribute.String("tenant_id", req.TenantID.String()),
		attribute.String("strategy_id", req.StrategyID.String()),
	))
	defer span.End()

	if r.Locker != nil {
		release, ok, lerr := r.Locker.Acquire(ctx, lock.StrategyKey(req.TenantID, req.StrategyID), cfg.LockTTL)
		switch {
		case lerr != nil:
			r.logger().Warn("strategy lock unavailable, running unlocked",
				zap.String("strategy_id", req.StrategyID.String()), zap.Error(lerr))
		case !ok:
			r.Metrics.Rejected("in_progress")
			span.SetStatus(codes.Error, ErrExecutionInProgress.Error())
			return nil, ErrExecutionInProgress
		default:
			defer release()
		}
	}

	run := &execution{id: r.id(), req: req, start: r.clock()}
	run.log = r.logger().With(
		zap.String("execution_id", run.id.String()),
		zap.String("strategy_id", req.StrategyID.String()),
		zap.String("tenant_id", req.TenantID.String()),
	)
	span.SetAttributes(attribute.String("execution_id", run.id.String()))

	defer func() {
		if p := recover(); p != nil {
			run.log.Error("strategy execution panicked", zap.Any("panic", p), zap.Stack("stack"))
			if run.result != nil {
				res, err = run.result, nil
				return
			}
			res, err = nil, r.abort(ctx, run, panicError{value: p})
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	started := baseDetails(req.StrategyID, run.id)
	started["options"] = req.Options
	if req.UserID != nil {
		started["user_id"] = req.UserID.String()
	}
	r.emit(ctx, events.Event{
		Type:        models.EventStrategyExecutionStarted,
		TenantID:    req.TenantID,
		StrategyID:  req.StrategyID,
		ExecutionID: run.id,
		Status:      models.ExecutionStatusPending,
	}, started)

	strategy, err := r.loadStrategy(ctx, req)
	if err != nil {
		err = r.abort(ctx, run, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	r.recordPending(ctx, run)
	plugins := r.fetchPlugins(ctx, run, cfg.PluginLimit)
	outcomes, successful, xp := r.runPlugins(ctx, run, plugins)
	status := Aggregate(len(outcomes), successful)

	elapsed := r.clock().Sub(run.start)
	output, _ := json.Marshal(map[string]any{"plugins": outcomes})
	r.writeTerminal(ctx, run, repository.ExecutionUpdate{
		Status:        status,
		Output:        output,
		ExecutionTime: elapsed,
		XPEarned:      xp,
	})

	res = &Result{
		Success:           true,
		ExecutionID:       run.id,
		StrategyID:        req.StrategyID,
		Status:            status,
		PluginsExecuted:   len(outcomes),
		SuccessfulPlugins: successful,
		ExecutionTime:     seconds(elapsed),
		XPEarned:          xp,
		Plugins:           outcomes,
	}
	run.result = res
	res.Completion = r.updateProgress(ctx, run, strategy, status, cfg)

	done := baseDetails(req.StrategyID, run.id)
	done["status"] = status
	done["plugins_executed"] = res.PluginsExecuted
	done["successful_plugins"] = successful
	done["xp_earned"] = xp
	done["execution_time"] = res.ExecutionTime
	r.emit(ctx, events.Event{
		Type:              models.EventStrategyExecuted,
		TenantID:          req.TenantID,
		StrategyID:        req.StrategyID,
		ExecutionID:       run.id,
		Status:            status,
		PluginsExecuted:   res.PluginsExecuted,
		SuccessfulPlugins: successful,
		XPEarned:          xp,
		ExecutionTime:     res.ExecutionTime,
	}, done)

	r.Metrics.ObserveExecution(status, elapsed, xp)
	span.SetAttributes(attribute.String("status", status), attribute.Int("xp_earned", xp))
	run.log.Info("strategy executed",
		zap.String("status", status),
		zap.Int("plugins_executed", res.PluginsExecuted),
		zap.Int("successful_plugins", successful),
		zap.Int("xp_earned", xp),
		zap.Duration("elapsed", elapsed),
	)
	return res, nil
}

func (r *Runner) loadStrategy(ctx context.Context, req ExecutionRequest) (*models.Strategy, error) {
	if r.Repo == nil {
		return nil, errors.New("repository is not configured")
	}
	s, err := r.Repo.GetStrategy(ctx, req.TenantID, req.StrategyID)
	if err != nil {
		return nil, fmt.Errorf("load strategy: %w", err)
	}
	if s == nil {
		return nil, ErrStrategyNotFound
	}
	if !s.Executable() {
		return nil, &InvalidStateError{Status: s.Status}
	}
	return s, nil
}

// abort closes out an execution that never reached aggregation.
func (r *Runner) abort(ctx context.Context, run *execution, cause error) error {
	elapsed := r.clock().Sub(run.start)
	msg := cause.Error()
	if !run.terminal {
		r.writeTerminal(ctx, run, repository.ExecutionUpdate{
			Status:        models.ExecutionStatusFailure,
			ExecutionTime: elapsed,
			Error:         &msg,
		})
	}

	details := baseDetails(run.req.StrategyID, run.id)
	details["error"] = msg
	details["execution_time"] = seconds(elapsed)
	r.emit(ctx, events.Event{
		Type:          models.EventStrategyExecutionFailed,
		TenantID:      run.req.TenantID,
		StrategyID:    run.req.StrategyID,
		ExecutionID:   run.id,
		Status:        models.ExecutionStatusFailure,
		ExecutionTime: seconds(elapsed),
		Error:         msg,
	}, details)

	r.Metrics.ObserveExecution(models.ExecutionStatusFailure, elapsed, 0)
	r.Metrics.Rejected(abortReason(cause))
	run.log.Warn("strategy execution aborted", zap.Error(cause))

	return &ExecutionError{
		ExecutionID: run.id,
		StrategyID:  run.req.StrategyID,
		Elapsed:     elapsed,
		Err:         cause,
	}
}

func abortReason(err error) string {
	var invalid *InvalidStateError
	switch {
	case errors.Is(err, ErrStrategyNotFound):
		return "not_found"
	case errors.As(err, &invalid):
		return "invalid_state"
	default:
		return "unexpected"
	}
}

func (r *Runner) recordPending(ctx context.Context, run *execution) {
	item := run.row(models.ExecutionStatusPending)
	r.write(ctx, run, "create", func(ctx context.Context) error {
		return r.Repo.CreateExecution(ctx, item)
	})
}

// writeTerminal applies the single terminal write. When the pending row is
// missing it inserts the terminal row instead.
func (r *Runner) writeTerminal(ctx context.Context, run *execution, update repository.ExecutionUpdate) {
	r.write(ctx, run, "finalize", func(ctx context.Context) error {
		err := r.Repo.FinalizeExecution(ctx, run.id, update)
		if errors.Is(err, repository.ErrNotFound) {
			item := run.row(update.Status)
			if len(update.Output) > 0 {
				item.Output = datatypes.JSON(update.Output)
			}
			item.ExecutionTime = models.Seconds(update.ExecutionTime)
			item.XPEarned = update.XPEarned
			item.Error = update.Error
			return r.Repo.CreateExecution(ctx, item)
		}
		return err
	})
	run.terminal = true
}

func (r *Runner) write(ctx context.Context, run *execution, op string, fn func(context.Context) error) bool {
	if r.Repo == nil {
		return false
	}
	cfg := withDefaults(r.Config)
	err := retry.Do(ctx, retry.Policy{
		MaxAttempts: cfg.WriteMaxAttempts,
		BaseDelay:   cfg.WriteBaseDelay,
		Sleep:       r.sleep,
		OnRetry: func(attempt int, err error) {
			r.Metrics.WriteRetry(op)
			run.log.Warn("execution write failed, retrying",
				zap.String("op", op), zap.Int("attempt", attempt), zap.Error(err))
		},
	}, fn)
	if err != nil {
		r.Metrics.WriteFailure(op)
		run.log.Warn("execution write abandoned", zap.String("op", op), zap.Error(err))
		return false
	}
	return true
}

func (e *execution) row(status string) *models.Execution {
	input, _ := json.Marshal(e.req.Options)
	return &models.Execution{
		ID:         e.id,
		TenantID:   e.req.TenantID,
		StrategyID: e.req.StrategyID,
		ExecutedBy: e.req.UserID,
		Type:       models.ExecutionTypeStrategy,
		Status:     status,
		Input:      datatypes.JSON(input),
	}
}

// fetchPlugins swallows query errors: no plugins is a valid outcome.
func (r *Runner) fetchPlugins(ctx context.Context, run *execution, limit int) []models.Plugin {
	plugins, err := r.Repo.ListActivePlugins(ctx, run.req.TenantID, limit)
	if err != nil {
		run.log.Warn("plugin fetch failed, running with none", zap.Error(err))
		return nil
	}
	return plugins
}

// runPlugins runs plugins sequentially in fetch order. A plugin whose
// dependencies have not succeeded earlier in this run is skipped.
func (r *Runner) runPlugins(ctx context.Context, run *execution, plugins []models.Plugin) ([]PluginOutcome, int, int) {
	outcomes := make([]PluginOutcome, 0, len(plugins))
	completed := map[string]bool{}
	successful, xp := 0, 0

	for _, p := range plugins {
		var out PluginOutcome
		if missing := unsatisfied(p.ParsedMetadata().Dependencies, completed); len(missing) > 0 {
			out = PluginOutcome{
				PluginID:   p.ID,
				PluginName: p.Name,
				Skipped:    true,
				Error:      "Unsatisfied dependencies: " + strings.Join(missing, ", "),
			}
			r.Metrics.PluginRun("skipped")
		} else {
			out = r.invoke(ctx, run, p)
			if out.Success {
				r.Metrics.PluginRun("success")
			} else {
				r.Metrics.PluginRun("failure")
			}
		}

		r.logPlugin(ctx, run, p, out)

		if out.Success {
			completed[normalizeID(p.ID.String())] = true
			successful++
			xp += out.XPEarned
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, successful, xp
}

func unsatisfied(deps []string, completed map[string]bool) []string {
	var missing []string
	for _, d := range deps {
		id := normalizeID(d)
		if id == "" || completed[id] {
			continue
		}
		missing = append(missing, strings.TrimSpace(d))
	}
	return missing
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// invoke runs one plugin's logic and converts errors and panics into a
// failed outcome.
func (r *Runner) invoke(ctx context.Context, run *execution, p models.Plugin) (out PluginOutcome) {
	ctx, span := otel.Tracer(observability.TracerName).Start(ctx, "runner.plugin", trace.WithAttributes(
		attribute.String("plugin_id", p.ID.String()),
		attribute.String("plugin_name", p.Name),
	))
	defer span.End()

	start := r.clock()
	out = PluginOutcome{PluginID: p.ID, PluginName: p.Name}
	defer func() {
		if rec := recover(); rec != nil {
			out.Success = false
			out.Output = nil
			out.XPEarned = 0
			out.Error = panicError{value: rec}.Error()
			out.ExecutionTime = seconds(r.clock().Sub(start))
			run.log.Error("plugin panicked", zap.String("plugin_id", p.ID.String()), zap.Any("panic", rec))
		}
		if !out.Success {
			span.SetStatus(codes.Error, out.Error)
		}
	}()

	pr := r.Registry.Resolve(p)
	if pr == nil {
		out.Error = "no runner registered for plugin"
		return out
	}

	res, err := pr.Execute(ctx, p, run.req.Options)
	d := res.Duration
	if d <= 0 {
		d = r.clock().Sub(start)
	}
	out.ExecutionTime = seconds(d)

	switch {
	case err != nil:
		out.Error = err.Error()
	case !res.Success:
		out.Error = res.Error
		if out.Error == "" {
			out.Error = "plugin reported failure"
		}
	default:
		out.Success = true
		out.Output = res.Output
		out.XPEarned = max(res.XPEarned, 0)
	}
	if !out.Success {
		run.log.Info("plugin failed", zap.String("plugin_id", p.ID.String()), zap.String("error", out.Error))
	}
	return out
}

// logPlugin writes one plugin log row; failures never stop the loop.
func (r *Runner) logPlugin(ctx context.Context, run *execution, p models.Plugin, out PluginOutcome) {
	input, _ := json.Marshal(run.req.Options)
	item := &models.PluginLog{
		PluginID:      p.ID,
		StrategyID:    run.req.StrategyID,
		TenantID:      run.req.TenantID,
		ExecutionID:   run.id,
		Status:        models.PluginLogStatusFailure,
		Input:         datatypes.JSON(input),
		ExecutionTime: models.Seconds(time.Duration(out.ExecutionTime * float64(time.Second))),
		XPEarned:      out.XPEarned,
	}
	if out.Success {
		item.Status = models.PluginLogStatusSuccess
		if out.Output != nil {
			raw, _ := json.Marshal(out.Output)
			item.Output = datatypes.JSON(raw)
		}
	} else {
		msg := out.Error
		item.Error = &msg
	}
	if err := r.Repo.InsertPluginLog(ctx, item); err != nil {
		r.Metrics.WriteFailure("plugin_log")
		run.log.Warn("plugin log write failed", zap.String("plugin_id", p.ID.String()), zap.Error(err))
	}
}

// updateProgress applies the completion increment for success and partial
// runs. The store clamps atomically; a failure is logged and ignored.
func (r *Runner) updateProgress(ctx context.Context, run *execution, strategy *models.Strategy, status string, cfg config.RunnerConfig) *int {
	delta := ProgressIncrement(status, cfg.SuccessIncrement, cfg.PartialIncrement)
	if delta == 0 {
		return nil
	}
	v, err := r.Repo.IncrementStrategyCompletion(ctx, run.req.TenantID, run.req.StrategyID, delta)
	if err != nil {
		r.Metrics.ProgressUpdate("error")
		run.log.Warn("strategy progress update failed",
			zap.Int("previous", strategy.Completion()), zap.Int("delta", delta), zap.Error(err))
		return nil
	}
	r.Metrics.ProgressUpdate("ok")
	v = ClampPercentage(v)
	return &v
}

func (r *Runner) clock() time.Time {
	if r.now != nil {
		return r.now()
	}
	return time.Now()
}

func (r *Runner) id() uuid.UUID {
	if r.newID != nil {
		return r.newID()
	}
	return uuid.New()
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return zap.NewNop()
}

func seconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return math.Round(d.Seconds()*1000) / 1000
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"growthops/internal/auth"
	"growthops/internal/runner"
	"growthops/internal/service"
)

const maxExecuteBody = 1 << 20

// ExecuteHandler is the strategy execution entry point. Its responses use
// the flat {success, ...} shape rather than the API envelope.
type ExecuteHandler struct {
	Runner   *runner.Runner
	Settings *service.SystemSettingsService
	Logger   *zap.Logger
}

func (h *ExecuteHandler) Register(r *gin.Engine) {
	r.POST("/executeStrategy", h.execute)
}

type executeFailure struct {
	Success         bool       `json:"success"`
	Error           string     `json:"error"`
	Details         any        `json:"details,omitempty"`
	ExecutionID     *uuid.UUID `json:"execution_id,omitempty"`
	StrategyID      *uuid.UUID `json:"strategy_id,omitempty"`
	ExecutionTime   *float64   `json:"execution_time,omitempty"`
	RequestDuration *float64   `json:"request_duration,omitempty"`
}

// @Summary Execute a strategy
// @Description Runs every active plugin of the strategy and records the execution.
// @Tags strategies
// @Accept json
// @Produce json
// @Param body body object true "strategy_id, tenant_id, user_id?, options?"
// @Success 200 {object} runner.Result
// @Failure 400 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Failure 409 {object} map[string]any
// @Failure 500 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /executeStrategy [post]
func (h *ExecuteHandler) execute(c *gin.Context) {
	start := time.Now()
	if h.Runner == nil {
		c.JSON(http.StatusInternalServerError, executeFailure{Error: "runner unavailable"})
		return
	}
	if !h.Settings.IsEnabled(c.Request.Context(), service.FeatureStrategyExecution, true) {
		c.JSON(http.StatusServiceUnavailable, executeFailure{Error: "strategy execution is disabled"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxExecuteBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, executeFailure{Error: "Invalid input", Details: []string{"body: unreadable"}})
		return
	}
	req, err := runner.ParseRequest(body)
	if err != nil {
		var verr *runner.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, executeFailure{Error: "Invalid input", Details: verr.Details})
			return
		}
		h.unexpected(c, start, err, nil)
		return
	}

	if !auth.TenantAllowed(c.Request.Context(), req.TenantID) {
		c.JSON(http.StatusNotFound, executeFailure{Error: runner.ErrStrategyNotFound.Error(), StrategyID: &req.StrategyID})
		return
	}

	res, err := h.Runner.Execute(c.Request.Context(), req)
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}

	var execErr *runner.ExecutionError
	hasExec := errors.As(err, &execErr)
	failure := executeFailure{Error: err.Error(), StrategyID: &req.StrategyID}
	if hasExec {
		failure.Error = execErr.Err.Error()
		failure.ExecutionID = &execErr.ExecutionID
		elapsed := execErr.Elapsed.Seconds()
		failure.ExecutionTime = &elapsed
	}

	var invalid *runner.InvalidStateError
	switch {
	case errors.Is(err, runner.ErrStrategyNotFound):
		c.JSON(http.StatusNotFound, failure)
	case errors.As(err, &invalid), errors.Is(err, runner.ErrExecutionInProgress):
		c.JSON(http.StatusConflict, failure)
	default:
		h.unexpected(c, start, err, execErr)
	}
}

func (h *ExecuteHandler) unexpected(c *gin.Context, start time.Time, err error, execErr *runner.ExecutionError) {
	d := time.Since(start).Seconds()
	failure := executeFailure{
		Error:           "Strategy execution failed",
		Details:         err.Error(),
		RequestDuration: &d,
	}
	if execErr != nil {
		failure.Details = execErr.Err.Error()
		failure.ExecutionID = &execErr.ExecutionID
		failure.StrategyID = &execErr.StrategyID
	}
	if h.Logger != nil {
		h.Logger.Error("strategy execution failed", zap.Error(err))
	}
	c.JSON(http.StatusInternalServerError, failure)
}

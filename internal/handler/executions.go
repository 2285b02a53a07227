package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"growthops/internal/models"
	"growthops/internal/repository"
)

type ExecutionsHandler struct {
	Repo repository.Repository
}

func (h *ExecutionsHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/executions")
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/plugins", h.plugins)
}

type executionDTO struct {
	ID            uuid.UUID       `json:"id"`
	TenantID      uuid.UUID       `json:"tenant_id"`
	StrategyID    uuid.UUID       `json:"strategy_id"`
	ExecutedBy    *uuid.UUID      `json:"executed_by"`
	Type          string          `json:"type"`
	Status        string          `json:"status"`
	Input         json.RawMessage `json:"input,omitempty"`
	Output        json.RawMessage `json:"output,omitempty"`
	ExecutionTime float64         `json:"execution_time"`
	XPEarned      int             `json:"xp_earned"`
	Error         *string         `json:"error"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toExecutionDTO(e models.Execution) executionDTO {
	secs, _ := e.ExecutionTime.Float64()
	return executionDTO{
		ID:            e.ID,
		TenantID:      e.TenantID,
		StrategyID:    e.StrategyID,
		ExecutedBy:    e.ExecutedBy,
		Type:          e.Type,
		Status:        e.Status,
		Input:         rawJSON(e.Input),
		Output:        rawJSON(e.Output),
		ExecutionTime: secs,
		XPEarned:      e.XPEarned,
		Error:         e.Error,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

type pluginLogDTO struct {
	ID            uint64          `json:"id"`
	PluginID      uuid.UUID       `json:"plugin_id"`
	ExecutionID   uuid.UUID       `json:"execution_id"`
	Status        string          `json:"status"`
	Output        json.RawMessage `json:"output,omitempty"`
	Error         *string         `json:"error"`
	ExecutionTime float64         `json:"execution_time"`
	XPEarned      int             `json:"xp_earned"`
	CreatedAt     time.Time       `json:"created_at"`
}

func rawJSON(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}

// @Summary List executions
// @Tags executions
// @Produce json
// @Param tenant_id query string true "tenant id"
// @Param strategy_id query string false "strategy id"
// @Param status query string false "pending|success|partial|failure"
// @Param limit query int false "limit"
// @Param offset query int false "offset"
// @Success 200 {object} map[string]any
// @Router /api/v1/executions [get]
func (h *ExecutionsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tenantID, ok := tenantQuery(c)
	if !ok {
		return
	}
	params := repository.ListExecutionsParams{
		TenantID: tenantID,
		Status:   stringQueryPtr(c, "status"),
		Limit:    intQuery(c, "limit", 50),
		Offset:   intQuery(c, "offset", 0),
		OrderBy:  strings.TrimSpace(c.DefaultQuery("order_by", "created_at")),
		Asc:      boolPtr(boolQueryDefault(c, "asc", false)),
	}
	if raw := strings.TrimSpace(c.Query("strategy_id")); raw != "" {
		sid, err := uuid.Parse(raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid strategy_id", nil)
			return
		}
		params.StrategyID = &sid
	}

	items, err := h.Repo.ListExecutions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	total, err := h.Repo.CountExecutions(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]executionDTO, 0, len(items))
	for _, it := range items {
		out = append(out, toExecutionDTO(it))
	}
	Ok(c, out, paginationMeta(params.Limit, params.Offset, total))
}

// @Summary Get execution
// @Tags executions
// @Produce json
// @Param id path string true "execution id"
// @Param tenant_id query string true "tenant id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/v1/executions/{id} [get]
func (h *ExecutionsHandler) get(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tenantID, ok := tenantQuery(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	item, err := h.Repo.GetExecution(c.Request.Context(), tenantID, id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "execution not found", nil)
		return
	}
	Ok(c, toExecutionDTO(*item), nil)
}

// @Summary List plugin logs of an execution
// @Tags executions
// @Produce json
// @Param id path string true "execution id"
// @Param tenant_id query string true "tenant id"
// @Success 200 {object} map[string]any
// @Router /api/v1/executions/{id}/plugins [get]
func (h *ExecutionsHandler) plugins(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tenantID, ok := tenantQuery(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	logs, err := h.Repo.ListPluginLogsByExecution(c.Request.Context(), tenantID, id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]pluginLogDTO, 0, len(logs))
	xp := 0
	for _, l := range logs {
		secs, _ := l.ExecutionTime.Float64()
		out = append(out, pluginLogDTO{
			ID:            l.ID,
			PluginID:      l.PluginID,
			ExecutionID:   l.ExecutionID,
			Status:        l.Status,
			Output:        rawJSON(l.Output),
			Error:         l.Error,
			ExecutionTime: secs,
			XPEarned:      l.XPEarned,
			CreatedAt:     l.CreatedAt,
		})
		if l.Status == models.PluginLogStatusSuccess {
			xp += l.XPEarned
		}
	}
	Ok(c, out, map[string]any{"total": len(out), "xp_earned": xp})
}

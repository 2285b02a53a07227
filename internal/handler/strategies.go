package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"growthops/internal/models"
	"growthops/internal/repository"
)

type StrategiesHandler struct {
	Repo repository.Repository
}

func (h *StrategiesHandler) Register(r *gin.Engine) {
	g := r.Group("/api/v1/strategies")
	g.GET("", h.list)
	g.GET("/:id", h.get)
}

func strategyView(s models.Strategy) map[string]any {
	return map[string]any{
		"id":                    s.ID,
		"tenant_id":             s.TenantID,
		"title":                 s.Title,
		"description":           s.Description,
		"status":                s.Status,
		"completion_percentage": s.Completion(),
		"executable":            s.Executable(),
		"created_at":            s.CreatedAt,
		"updated_at":            s.UpdatedAt,
	}
}

// @Summary List strategies
// @Tags strategies
// @Produce json
// @Param tenant_id query string true "tenant id"
// @Param status query string false "status"
// @Success 200 {object} map[string]any
// @Router /api/v1/strategies [get]
func (h *StrategiesHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tenantID, ok := tenantQuery(c)
	if !ok {
		return
	}
	limit := intQuery(c, "limit", 100)
	offset := intQuery(c, "offset", 0)
	items, err := h.Repo.ListStrategies(c.Request.Context(), repository.ListStrategiesParams{
		TenantID: tenantID,
		Status:   stringQueryPtr(c, "status"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, s := range items {
		out = append(out, strategyView(s))
	}
	Ok(c, out, map[string]any{"limit": limit, "offset": offset})
}

// @Summary Get strategy
// @Tags strategies
// @Produce json
// @Param id path string true "strategy id"
// @Param tenant_id query string true "tenant id"
// @Success 200 {object} map[string]any
// @Failure 404 {object} map[string]any
// @Router /api/v1/strategies/{id} [get]
func (h *StrategiesHandler) get(c *gin.Context) {
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
	item, err := h.Repo.GetStrategy(c.Request.Context(), tenantID, id)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if item == nil {
		Error(c, http.StatusNotFound, "strategy not found", nil)
		return
	}
	Ok(c, strategyView(*item), nil)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"growthops/internal/repository"
)

type PluginsHandler struct {
	Repo repository.Repository
}

func (h *PluginsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/plugins", h.list)
}

// @Summary List plugins
// @Description active=true returns the plugins an execution would run, in run order.
// @Tags plugins
// @Produce json
// @Param tenant_id query string true "tenant id"
// @Param status query string false "status"
// @Param active query bool false "execution view"
// @Success 200 {object} map[string]any
// @Router /api/v1/plugins [get]
func (h *PluginsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tenantID, ok := tenantQuery(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	limit := intQuery(c, "limit", 100)

	var (
		items []map[string]any
		err   error
	)
	if boolQueryDefault(c, "active", false) {
		plugins, lerr := h.Repo.ListActivePlugins(ctx, tenantID, limit)
		err = lerr
		for _, p := range plugins {
			items = append(items, pluginView(p.ID.String(), p.Name, p.Status, p.ParsedMetadata()))
		}
	} else {
		plugins, lerr := h.Repo.ListPlugins(ctx, repository.ListPluginsParams{
			TenantID: tenantID,
			Status:   stringQueryPtr(c, "status"),
			Limit:    limit,
			Offset:   intQuery(c, "offset", 0),
		})
		err = lerr
		for _, p := range plugins {
			items = append(items, pluginView(p.ID.String(), p.Name, p.Status, p.ParsedMetadata()))
		}
	}
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	if items == nil {
		items = []map[string]any{}
	}
	Ok(c, items, nil)
}

func pluginView(id, name, status string, md any) map[string]any {
	return map[string]any{
		"id":       id,
		"name":     name,
		"status":   status,
		"metadata": md,
	}
}

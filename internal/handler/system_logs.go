package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"growthops/internal/repository"
)

type SystemLogsHandler struct {
	Repo repository.Repository
}

func (h *SystemLogsHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/system-logs", h.list)
}

// @Summary List system logs
// @Tags system-logs
// @Produce json
// @Param tenant_id query string true "tenant id"
// @Param module query string false "module"
// @Param event query string false "event"
// @Param since query string false "RFC3339 lower bound"
// @Success 200 {object} map[string]any
// @Router /api/v1/system-logs [get]
func (h *SystemLogsHandler) list(c *gin.Context) {
	if h.Repo == nil {
		Error(c, http.StatusInternalServerError, "repo unavailable", nil)
		return
	}
	tenantID, ok := tenantQuery(c)
	if !ok {
		return
	}
	params := repository.ListSystemLogsParams{
		TenantID: tenantID,
		Module:   stringQueryPtr(c, "module"),
		Event:    stringQueryPtr(c, "event"),
		Limit:    intQuery(c, "limit", 100),
		Offset:   intQuery(c, "offset", 0),
	}
	if raw := strings.TrimSpace(c.Query("since")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			Error(c, http.StatusBadRequest, "invalid since", nil)
			return
		}
		params.Since = &t
	}
	items, err := h.Repo.ListSystemLogs(c.Request.Context(), params)
	if err != nil {
		Error(c, http.StatusBadGateway, err.Error(), nil)
		return
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, map[string]any{
			"id":         it.ID,
			"tenant_id":  it.TenantID,
			"module":     it.Module,
			"event":      it.Event,
			"context":    json.RawMessage(orEmptyObject(it.Context)),
			"created_at": it.CreatedAt,
		})
	}
	Ok(c, out, map[string]any{"limit": params.Limit, "offset": params.Offset})
}

func orEmptyObject(b []byte) []byte {
	if len(b) == 0 {
		return []byte(`{}`)
	}
	return b
}

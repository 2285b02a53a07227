package paas

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterDocs serves a short operator guide for callers going through the
// PaaS gateway.
func RegisterDocs(r *gin.Engine) {
	r.GET("/docs", func(c *gin.Context) {
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.String(http.StatusOK, `# GrowthOps Strategy Runner

## Auth

/api/* and /executeStrategy require a Bearer token. Tokens scoped to a
tenant may only read and execute that tenant's data.
Health endpoints are public.

## Routes

- POST /executeStrategy
- GET /api/v1/strategies?tenant_id=
- GET /api/v1/plugins?tenant_id=&active=true
- GET /api/v1/executions?tenant_id=&strategy_id=&status=
- GET /api/v1/executions/:id?tenant_id=
- GET /api/v1/executions/:id/plugins?tenant_id=
- GET /api/v1/executions/stream?tenant_id= (websocket)
- GET /api/v1/system-logs?tenant_id=
- GET|PUT /api/v1/system-settings/switches/:name
- GET /healthz, /readyz, /metrics
- GET /swagger/index.html
`)
	})
}

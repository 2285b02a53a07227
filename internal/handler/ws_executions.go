package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"growthops/internal/events"
)

const (
	streamBuffer    = 32
	streamHeartbeat = 20 * time.Second
	streamWrite     = 5 * time.Second
)

// ExecutionStreamHandler pushes execution lifecycle events for one tenant
// over a websocket. Slow readers lose events rather than stall runs.
type ExecutionStreamHandler struct {
	Hub    *events.Hub
	Logger *zap.Logger
}

func (h *ExecutionStreamHandler) Register(r *gin.Engine) {
	r.GET("/api/v1/executions/stream", h.stream)
}

// @Summary Stream execution events
// @Tags executions
// @Param tenant_id query string true "tenant id"
// @Router /api/v1/executions/stream [get]
func (h *ExecutionStreamHandler) stream(c *gin.Context) {
	if h.Hub == nil {
		Error(c, http.StatusServiceUnavailable, "event stream unavailable", nil)
		return
	}
	tenantID, ok := tenantQuery(c)
	if !ok {
		return
	}
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		// Accept has already written the handshake failure.
		return
	}
	defer conn.Close(websocket.StatusInternalError, "closing")

	ch, cancel := h.Hub.Subscribe(tenantID, streamBuffer)
	defer cancel()

	// Clients only listen; CloseRead handles control frames and cancels ctx
	// when the peer goes away.
	ctx := conn.CloseRead(c.Request.Context())
	ticker := time.NewTicker(streamHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case ev, ok := <-ch:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "hub closed")
				return
			}
			if err := writeEvent(ctx, conn, ev); err != nil {
				h.logClose(err)
				return
			}
		case <-ticker.C:
			pctx, pcancel := context.WithTimeout(ctx, streamWrite)
			err := conn.Ping(pctx)
			pcancel()
			if err != nil {
				h.logClose(err)
				return
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, ev events.Event) error {
	wctx, cancel := context.WithTimeout(ctx, streamWrite)
	defer cancel()
	return wsjson.Write(wctx, conn, ev)
}

func (h *ExecutionStreamHandler) logClose(err error) {
	if h.Logger == nil || errors.Is(err, context.Canceled) || websocket.CloseStatus(err) != -1 {
		return
	}
	h.Logger.Debug("execution stream closed", zap.Error(err))
}

package paas

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthops/internal/config"
)

func TestClient_CreateLogLogsInOnce(t *testing.T) {
	var logins, logs atomic.Int32
	var last LogEntry
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			logins.Add(1)
			_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok", "expires_at": "2099-01-01T00:00:00Z"})
		case "/api/v1/logs":
			logs.Add(1)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			_ = json.NewDecoder(r.Body).Decode(&last)
			w.WriteHeader(http.StatusCreated)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewFromConfig(config.PaaSConfig{BaseURL: srv.URL + "/", APIKey: "k", Agent: "runner-a"})
	require.NotNil(t, c)

	ctx := context.Background()
	require.NoError(t, c.CreateLog(ctx, LogEntry{Action: "strategy_executed", Level: "info"}))
	require.NoError(t, c.CreateLog(ctx, LogEntry{Action: "strategy_failed", Level: "error"}))

	assert.Equal(t, int32(1), logins.Load())
	assert.Equal(t, int32(2), logs.Load())
	assert.Equal(t, "runner-a", last.Agent)
	assert.Equal(t, "strategy_failed", last.Action)
	assert.NotNil(t, last.Details)
}

func TestClient_LoginErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := &Client{BaseURL: srv.URL, APIKey: "k"}
	err := c.CreateLog(context.Background(), LogEntry{Action: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http 401")
}

func TestNewFromConfig_Unconfigured(t *testing.T) {
	assert.Nil(t, NewFromConfig(config.PaaSConfig{}))
	assert.Nil(t, NewFromConfig(config.PaaSConfig{BaseURL: "http://x"}))
}

func TestLogBestEffortCtx_NoClientIsNoop(t *testing.T) {
	LogBestEffortCtx(context.Background(), "a", "info", nil)
	assert.Nil(t, ClientFromContext(context.Background()))
}

func TestLevelFromStatus(t *testing.T) {
	assert.Equal(t, "error", LevelFromStatus("failure"))
	assert.Equal(t, "warn", LevelFromStatus("partial"))
	assert.Equal(t, "info", LevelFromStatus("success"))
}

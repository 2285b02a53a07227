package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"growthops/internal/auth"
	"growthops/internal/config"
	"growthops/internal/db/dbtest"
	"growthops/internal/events"
	"growthops/internal/observability"
	gormrepository "growthops/internal/repository/gorm"
	"growthops/internal/runner"
	"growthops/internal/service"
)

func newEngine(t *testing.T, authCfg config.AuthConfig) *gin.Engine {
	t.Helper()
	d := dbtest.Open(t)
	store := gormrepository.New(d.Gorm)
	cfg := config.Config{
		App:     config.AppConfig{Env: "test"},
		Auth:    authCfg,
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	return NewRouter(Deps{
		Config:   cfg,
		DB:       d.Gorm,
		Repo:     store,
		Runner:   runner.New(store, zap.NewNop(), cfg.Runner),
		Settings: &service.SystemSettingsService{Repo: store},
		Hub:      events.NewHub(),
		Metrics:  observability.NewMetrics(),
		Logger:   zap.NewNop(),
	})
}

func serve(e *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.ServeHTTP(w, req)
	return w
}

func TestRouter_PublicAndProtected(t *testing.T) {
	e := newEngine(t, config.AuthConfig{JWTSecret: "s3cret"})

	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusOK, serve(e, httptest.NewRequest(http.MethodGet, "/docs", nil)).Code)

	metrics := serve(e, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "go_goroutines")

	w := serve(e, httptest.NewRequest(http.MethodPost, "/executeStrategy", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := (&auth.JWT{Secret: []byte("s3cret"), TokenTTL: time.Minute}).Sign(auth.Claims{Role: "admin"})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/executeStrategy", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusBadRequest, serve(e, req).Code)
}

func TestRouter_CORSPreflight(t *testing.T) {
	e := newEngine(t, config.AuthConfig{})
	req := httptest.NewRequest(http.MethodOptions, "/executeStrategy", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "authorization,x-client-info,apikey,content-type")

	w := serve(e, req)
	assert.Less(t, w.Code, 300)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, strings.ToLower(w.Header().Get("Access-Control-Allow-Headers")), "x-client-info")
}

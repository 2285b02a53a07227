package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"growthops/internal/config"
)

var tenantA = uuid.MustParse("aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa")

func newEngine(cfg config.AuthConfig, seen *Claims) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware(cfg))
	h := func(c *gin.Context) {
		if cl, ok := ClaimsFromContext(c.Request.Context()); ok && seen != nil {
			*seen = cl
		}
		c.Status(http.StatusOK)
	}
	r.GET("/healthz", h)
	r.GET("/api/v1/executions", h)
	r.POST("/executeStrategy", h)
	return r
}

func do(r http.Handler, method, path, authz string) int {
	req := httptest.NewRequest(method, path, nil)
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestMiddleware_BearerPresence(t *testing.T) {
	r := newEngine(config.AuthConfig{}, nil)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/executions", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/executeStrategy", "Basic abc"))
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/executeStrategy", "Bearer anything"))
}

func TestMiddleware_Disabled(t *testing.T) {
	r := newEngine(config.AuthConfig{Disabled: true}, nil)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/executeStrategy", ""))
}

func TestMiddleware_VerifiesJWT(t *testing.T) {
	var seen Claims
	r := newEngine(config.AuthConfig{JWTSecret: "s3cret"}, &seen)

	tok, err := JWT{Secret: []byte("s3cret")}.Sign(Claims{TenantID: tenantA.String(), Role: "admin"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/executeStrategy", "Bearer "+tok))
	assert.Equal(t, tenantA.String(), seen.TenantID)

	forged, err := JWT{Secret: []byte("other")}.Sign(Claims{TenantID: tenantA.String()})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/executeStrategy", "Bearer "+forged))
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodPost, "/executeStrategy", "Bearer not-a-jwt"))
}

func TestTenantAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := req.Context()
	assert.True(t, TenantAllowed(ctx, tenantA))

	assert.True(t, TenantAllowed(WithClaims(ctx, Claims{Role: "service"}), tenantA))
	assert.True(t, TenantAllowed(WithClaims(ctx, Claims{TenantID: tenantA.String()}), tenantA))
	assert.False(t, TenantAllowed(WithClaims(ctx, Claims{TenantID: tenantA.String()}), uuid.New()))
	assert.True(t, TenantAllowed(WithClaims(ctx, Claims{TenantID: strings.ToUpper(tenantA.String())}), tenantA))
	assert.False(t, TenantAllowed(WithClaims(ctx, Claims{TenantID: "not-a-tenant"}), tenantA))
}

func TestIsAdmin(t *testing.T) {
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()
	assert.True(t, IsAdmin(ctx))
	assert.True(t, IsAdmin(WithClaims(ctx, Claims{Role: "service"})))
	assert.True(t, IsAdmin(WithClaims(ctx, Claims{TenantID: tenantA.String(), Role: "Admin"})))
	assert.False(t, IsAdmin(WithClaims(ctx, Claims{TenantID: tenantA.String(), Role: "member"})))
}

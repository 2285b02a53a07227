package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"growthops/internal/config"
)

type ctxKey int

const claimsKey ctxKey = 1

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	if ctx == nil {
		return Claims{}, false
	}
	c, ok := ctx.Value(claimsKey).(Claims)
	return c, ok
}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// TenantAllowed reports whether the caller may act on tenantID. Callers
// without a tenant-scoped token are allowed.
func TenantAllowed(ctx context.Context, tenantID uuid.UUID) bool {
	c, ok := ClaimsFromContext(ctx)
	if !ok || c.TenantID == "" {
		return true
	}
	id, err := uuid.Parse(c.TenantID)
	return err == nil && id == tenantID
}

// Middleware requires a bearer token on /api/ and /executeStrategy. With a
// configured secret the token must be a valid HS256 JWT; otherwise presence
// is enough and validation is left to the gateway.
func Middleware(cfg config.AuthConfig) gin.HandlerFunc {
	if cfg.Disabled {
		return func(c *gin.Context) { c.Next() }
	}
	var verifier *JWT
	if s := strings.TrimSpace(cfg.JWTSecret); s != "" {
		verifier = &JWT{Secret: []byte(s)}
	}

	return func(c *gin.Context) {
		if !protected(c.Request.URL.Path) || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		tok := bearerToken(c.GetHeader("Authorization"))
		if tok == "" {
			abort(c, "missing bearer token")
			return
		}
		if verifier != nil {
			claims, err := verifier.Verify(tok)
			if err != nil {
				abort(c, "invalid token")
				return
			}
			c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
		}
		c.Next()
	}
}

func protected(path string) bool {
	return strings.HasPrefix(path, "/api/") || path == "/executeStrategy"
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": msg})
}

func bearerToken(v string) string {
	parts := strings.SplitN(strings.TrimSpace(v), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// IsAdmin reports whether the caller may change global settings. Requests
// without verified claims are treated as trusted operators.
func IsAdmin(ctx context.Context) bool {
	c, ok := ClaimsFromContext(ctx)
	if !ok {
		return true
	}
	return strings.EqualFold(c.Role, "admin") || c.TenantID == ""
}

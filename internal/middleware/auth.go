package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/plughub/core/internal/pkg/response"
)

const ContextKeyAdmin = "is_admin"

// AdminAuth returns a middleware that enforces the static admin token. An
// empty configured token disables all admin routes.
func AdminAuth(adminToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminToken == "" {
			response.Forbidden(c)
			return
		}
		token := extractToken(c)
		if subtle.ConstantTimeCompare([]byte(token), []byte(adminToken)) != 1 {
			response.Unauthorized(c)
			return
		}
		c.Set(ContextKeyAdmin, true)
		c.Next()
	}
}

// IsAuthenticated reports whether the request carries an admin token. Token
// presence is enough here: the shared cache must never serve or store
// responses produced for token-bearing requests.
func IsAuthenticated(c *gin.Context) bool {
	return c.GetBool(ContextKeyAdmin) || extractToken(c) != ""
}

func extractToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		return NormalizeToken(auth)
	}
	return NormalizeToken(c.Query("token"))
}

// NormalizeToken trims spaces and strips an optional Bearer prefix.
func NormalizeToken(raw string) string {
	token := strings.TrimSpace(raw)
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

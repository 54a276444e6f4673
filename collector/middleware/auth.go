package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/freesoil/sky-monitor-edge/collector/segments"
	"github.com/freesoil/sky-monitor-edge/logging"
)

// AuthMiddleware authenticates devices by bearer token, matching the
// Authorization header the upload pipeline sends.
type AuthMiddleware struct {
	logger   logging.Logger
	verifier segments.TokenVerifier
}

// NewAuthMiddleware creates a new authentication middleware. A nil verifier
// disables authentication (open collector).
func NewAuthMiddleware(logger logging.Logger, verifier segments.TokenVerifier) *AuthMiddleware {
	if logger == nil {
		logger = logging.NopLogger
	}
	return &AuthMiddleware{
		logger:   logger,
		verifier: verifier,
	}
}

// RequireAuth returns middleware requiring a valid bearer token.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.verifier == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			m.logger.Warn("missing Authorization header", "remote", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Missing Authorization header"})
			c.Abort()
			return
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			m.logger.Warn("invalid Authorization header format", "remote", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Authorization header format"})
			c.Abort()
			return
		}

		if !m.verifier.Verify(token) {
			m.logger.Warn("invalid bearer token", "remote", c.ClientIP())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			c.Abort()
			return
		}

		c.Next()
	}
}

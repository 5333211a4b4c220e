// internal/middleware/auth_middleware.go
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andre-sav/panopticon/internal/pkg/jwt"
	"github.com/andre-sav/panopticon/internal/pkg/response"
)

// Blacklist answers whether a token was revoked by logout.
type Blacklist interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthMiddleware struct {
	jwtManager *jwt.Manager
	blacklist  Blacklist
	logger     *zap.Logger
}

func NewAuthMiddleware(jwtManager *jwt.Manager, blacklist Blacklist, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// Auth validates the session token and stores the operator identity
// on the context.
func (m *AuthMiddleware) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "missing authorization token")
			return
		}

		claims, err := m.jwtManager.Verify(token)
		if err != nil {
			response.Unauthorized(c, "invalid or expired token")
			return
		}

		if m.blacklist != nil {
			revoked, err := m.blacklist.IsRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				// A Redis outage must not lock the operator out of a
				// read-only board; the token signature already checked out.
				m.logger.Warn("token blacklist unavailable", zap.Error(err))
			} else if revoked {
				response.Unauthorized(c, "session has been logged out")
				return
			}
		}

		c.Set("operator", claims.Operator)
		c.Set("jti", claims.ID)
		c.Next()
	}
}

// extractToken reads the token from the Authorization header, falling
// back to the token query parameter for websocket upgrades, which
// cannot carry headers from the browser.
func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
	}
	return c.Query("token")
}

// GetOperator returns the authenticated operator name from context.
func GetOperator(c *gin.Context) (string, bool) {
	operator, exists := c.Get("operator")
	if !exists {
		return "", false
	}
	name, ok := operator.(string)
	return name, ok
}

// GetJTI returns the session token id from context.
func GetJTI(c *gin.Context) (string, bool) {
	jti, exists := c.Get("jti")
	if !exists {
		return "", false
	}
	id, ok := jti.(string)
	return id, ok
}

// BearerToken returns the raw token of the current request, for
// handlers that need to act on the token itself (logout).
func BearerToken(c *gin.Context) string {
	return extractToken(c)
}

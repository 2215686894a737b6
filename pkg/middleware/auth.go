package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/divverma2003/convo-app/pkg/jwt"
	"github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/response"
)

const (
	UserIDKey     = "user_id"
	EmailKey      = "email"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// SessionVerifier validates identity-provider session tokens.
type SessionVerifier interface {
	VerifySession(token string) (*jwt.SessionClaims, error)
}

// AuthMiddleware authenticates requests with the viewer's session token.
type AuthMiddleware struct {
	verifier SessionVerifier
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(verifier SessionVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth returns a Gin middleware that rejects unauthenticated requests
// and stores the viewer id on the context.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			response.Unauthorized(c, "missing authorization header")
			c.Abort()
			return
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			response.Unauthorized(c, "invalid authorization format")
			c.Abort()
			return
		}

		claims, err := m.verifier.VerifySession(strings.TrimPrefix(authHeader, BearerPrefix))
		if err != nil {
			msg := "invalid session"
			if errors.Is(err, jwt.ErrExpiredToken) {
				msg = "session expired"
			} else if errors.Is(err, jwt.ErrRevokedToken) {
				msg = "session revoked"
			}
			response.Unauthorized(c, msg)
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.Subject)
		c.Set(EmailKey, claims.Email)
		c.Request = c.Request.WithContext(log.WithUser(c.Request.Context(), claims.Subject))

		c.Next()
	}
}

// GetUserID extracts the viewer id from the Gin context.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetEmail extracts the viewer email from the Gin context.
func GetEmail(c *gin.Context) string {
	return c.GetString(EmailKey)
}

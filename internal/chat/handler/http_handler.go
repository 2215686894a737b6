package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/divverma2003/convo-app/internal/user/audit"
	"github.com/divverma2003/convo-app/pkg/errreport"
	"github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/middleware"
	"github.com/divverma2003/convo-app/pkg/response"
)

// TokenIssuer issues chat service tokens and revokes viewer sessions.
type TokenIssuer interface {
	IssueChatToken(userID string) (string, error)
	RevokeUserSessions(userID string)
}

// TokenResponse is the data of a successful token request.
type TokenResponse struct {
	Token string `json:"token"`
}

// Handler handles chat token and session endpoints.
type Handler struct {
	tokens         TokenIssuer
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(tokens TokenIssuer, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		tokens:         tokens,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.Use(h.authMiddleware.RequireAuth())
	{
		api.GET("/chat/token", h.GetToken)
		api.POST("/auth/signout", h.SignOut)
	}
}

// GetToken issues a chat token for the viewer.
func (h *Handler) GetToken(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	userID := middleware.GetUserID(c)
	token, err := h.tokens.IssueChatToken(userID)
	if err != nil {
		l.Error().Err(err).Msg("failed to generate chat token")
		errreport.Capture(ctx, err, "chat-token", nil)
		response.InternalError(c, "Failed to generate token")
		return
	}

	audit.Log(ctx, audit.ActionIssueChatToken, userID, "chat token issued")
	response.SuccessWithMessage(c, "Token generated successfully", TokenResponse{Token: token})
}

// SignOut revokes every outstanding session of the viewer.
func (h *Handler) SignOut(c *gin.Context) {
	ctx := c.Request.Context()

	userID := middleware.GetUserID(c)
	h.tokens.RevokeUserSessions(userID)

	audit.Log(ctx, audit.ActionSignOut, userID, "user signed out")
	response.SuccessWithMessage(c, "Signed out successfully", nil)
}

package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/divverma2003/convo-app/internal/channel/domain"
	"github.com/divverma2003/convo-app/internal/channel/service"
	"github.com/divverma2003/convo-app/pkg/errreport"
	"github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/middleware"
	"github.com/divverma2003/convo-app/pkg/response"
)

// Handler handles HTTP requests for chat channels.
type Handler struct {
	channelService service.ChannelService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(channelService service.ChannelService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		channelService: channelService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	channels := r.Group("/api/chat/channels")
	channels.Use(h.authMiddleware.RequireAuth())
	{
		channels.POST("", h.CreateChannel)
		channels.POST("/direct", h.OpenDirect)
		channels.POST("/join", h.CreateOrJoin)
		channels.GET("/:id", h.GetChannel)
		channels.POST("/:id/members", h.Invite)
	}
}

// CreateChannel creates a named channel owned by the viewer.
func (h *Handler) CreateChannel(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create channel request")
		response.BadRequest(c, err.Error())
		return
	}

	ch, err := h.channelService.Create(ctx, middleware.GetUserID(c), &req)
	if err != nil {
		h.writeError(c, err, "failed to create channel")
		return
	}

	response.Created(c, "Channel created successfully", ch)
}

// OpenDirect opens the one-to-one channel between the viewer and user_id.
func (h *Handler) OpenDirect(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.DirectChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind direct channel request")
		response.BadRequest(c, err.Error())
		return
	}

	ch, err := h.channelService.OpenDirect(ctx, middleware.GetUserID(c), req.UserID)
	if err != nil {
		h.writeError(c, err, "failed to open direct channel")
		return
	}

	response.Success(c, ch)
}

// CreateOrJoin creates a private channel with the given id or joins it.
func (h *Handler) CreateOrJoin(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.CreateOrJoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind create-or-join request")
		response.BadRequest(c, err.Error())
		return
	}

	ch, err := h.channelService.CreateOrJoin(ctx, middleware.GetUserID(c), req.ID, req.MemberIDs)
	if err != nil {
		h.writeError(c, err, "failed to join channel")
		return
	}

	response.Success(c, ch)
}

// GetChannel retrieves a channel by id.
func (h *Handler) GetChannel(c *gin.Context) {
	ctx := c.Request.Context()

	ch, err := h.channelService.Get(ctx, middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "failed to get channel")
		return
	}

	response.Success(c, ch)
}

// Invite adds users to a channel.
func (h *Handler) Invite(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	var req domain.InviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		l.Warn().Err(err).Msg("failed to bind invite request")
		response.BadRequest(c, err.Error())
		return
	}

	ch, err := h.channelService.Invite(ctx, middleware.GetUserID(c), c.Param("id"), req.UserIDs)
	if err != nil {
		h.writeError(c, err, "failed to invite users")
		return
	}

	response.SuccessWithMessage(c, "Users invited successfully", ch)
}

func (h *Handler) writeError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNameEmpty),
		errors.Is(err, domain.ErrNameLength),
		errors.Is(err, domain.ErrNameInvalid),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrUnknownUser),
		errors.Is(err, service.ErrSelfDirect):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrPermissionDenied):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrNotMember):
		response.Forbidden(c, err.Error())
	case errors.Is(err, service.ErrChannelNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrChannelExists):
		response.Conflict(c, err.Error())
	default:
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Str(log.FieldChannelID, c.Param("id")).Msg(fallback)
		errreport.Capture(c.Request.Context(), err, "channels", nil)
		response.InternalError(c, fallback)
	}
}

package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/internal/user/domain"
	"github.com/divverma2003/convo-app/internal/user/repository"
	"github.com/divverma2003/convo-app/internal/user/service"
	"github.com/divverma2003/convo-app/pkg/errreport"
	"github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/middleware"
	"github.com/divverma2003/convo-app/pkg/response"
)

// Handler handles HTTP requests for the user directory.
type Handler struct {
	userService    service.UserService
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler creates a new HTTP handler.
func NewHandler(userService service.UserService, authMiddleware *middleware.AuthMiddleware) *Handler {
	return &Handler{
		userService:    userService,
		authMiddleware: authMiddleware,
	}
}

// RegisterRoutes registers all routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	api := r.Group("/api")
	api.Use(h.authMiddleware.RequireAuth())
	{
		api.GET("/users", h.QueryUsers)
		api.POST("/presence/heartbeat", h.Heartbeat)
	}
}

// QueryUsers handles GET /api/users?filter=&sort=&limit=&offset=.
func (h *Handler) QueryUsers(c *gin.Context) {
	ctx := c.Request.Context()
	l := log.Ctx(ctx)

	q, err := parseDirectoryQuery(c)
	if err != nil {
		l.Warn().Err(err).Msg("invalid directory query")
		response.BadRequest(c, err.Error())
		return
	}

	users, err := h.userService.QueryUsers(ctx, q)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidQuery) {
			response.BadRequest(c, err.Error())
			return
		}
		l.Error().Err(err).Msg("query users failed")
		errreport.Capture(ctx, err, "directory", nil)
		response.InternalError(c, "failed to query users")
		return
	}

	if users == nil {
		users = []directory.Entry{}
	}
	response.Success(c, directory.QueryResult{Users: users})
}

// Heartbeat handles POST /api/presence/heartbeat.
func (h *Handler) Heartbeat(c *gin.Context) {
	if err := h.userService.Heartbeat(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		l := log.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("heartbeat failed")
		errreport.Capture(c.Request.Context(), err, "presence", nil)
		response.InternalError(c, "failed to record presence")
		return
	}
	response.Success(c, nil)
}

func parseDirectoryQuery(c *gin.Context) (domain.DirectoryQuery, error) {
	var q domain.DirectoryQuery

	filter, err := directory.DecodeFilter([]byte(c.Query("filter")))
	if err != nil {
		return q, err
	}
	sort, err := directory.DecodeSort([]byte(c.Query("sort")))
	if err != nil {
		return q, err
	}
	q.Filter = filter
	q.Sort = sort

	if v := c.Query("limit"); v != "" {
		if q.Limit, err = strconv.Atoi(v); err != nil || q.Limit < 0 {
			return q, errors.New("limit must be a non-negative integer")
		}
	}
	if v := c.Query("offset"); v != "" {
		if q.Offset, err = strconv.Atoi(v); err != nil || q.Offset < 0 {
			return q, errors.New("offset must be a non-negative integer")
		}
	}

	q.Normalize()
	return q, nil
}

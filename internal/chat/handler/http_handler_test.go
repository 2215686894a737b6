package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverma2003/convo-app/pkg/jwt"
	"github.com/divverma2003/convo-app/pkg/middleware"
)

type failingIssuer struct{ *jwt.Manager }

func (failingIssuer) IssueChatToken(string) (string, error) { return "", errors.New("signing failed") }

type envelope struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Data    TokenResponse `json:"data"`
}

func newManager(t *testing.T) *jwt.Manager {
	t.Helper()
	mgr, err := jwt.NewManager(jwt.Config{SessionSecret: "s", ChatSecret: "c"})
	require.NoError(t, err)
	return mgr
}

func do(r *gin.Engine, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := newManager(t)
	session, err := mgr.IssueSession("me", "", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(mgr, middleware.NewAuthMiddleware(mgr)).RegisterRoutes(r)

	w := do(r, http.MethodGet, "/api/chat/token", session)
	require.Equal(t, http.StatusOK, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.True(t, env.Success)
	assert.Equal(t, "Token generated successfully", env.Message)
	assert.NotEmpty(t, env.Data.Token)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/chat/token", "").Code)
}

func TestGetToken_Failure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := newManager(t)
	session, err := mgr.IssueSession("me", "", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(failingIssuer{mgr}, middleware.NewAuthMiddleware(mgr)).RegisterRoutes(r)

	w := do(r, http.MethodGet, "/api/chat/token", session)
	require.Equal(t, http.StatusInternalServerError, w.Code)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "Failed to generate token", env.Message)
}

func TestSignOut_RevokesSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mgr := newManager(t)
	session, err := mgr.IssueSession("me", "", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(mgr, middleware.NewAuthMiddleware(mgr)).RegisterRoutes(r)

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/api/auth/signout", session).Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/chat/token", session).Code)
}

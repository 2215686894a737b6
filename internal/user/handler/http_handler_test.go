package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverma2003/convo-app/internal/directory"
	"github.com/divverma2003/convo-app/internal/user/domain"
	"github.com/divverma2003/convo-app/internal/user/repository"
	"github.com/divverma2003/convo-app/pkg/jwt"
	"github.com/divverma2003/convo-app/pkg/middleware"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

type stubService struct {
	gotQuery   domain.DirectoryQuery
	entries    []directory.Entry
	err        error
	heartbeats []string
}

func (s *stubService) QueryUsers(_ context.Context, q domain.DirectoryQuery) ([]directory.Entry, error) {
	s.gotQuery = q
	return s.entries, s.err
}

func (s *stubService) Heartbeat(_ context.Context, id string) error {
	s.heartbeats = append(s.heartbeats, id)
	return nil
}

func (s *stubService) GetUser(context.Context, string) (*domain.User, error) { return nil, nil }

func (s *stubService) Exists(context.Context, string) (bool, error) { return true, nil }

func (s *stubService) SyncUser(context.Context, pubsub.UserPayload) (*domain.User, error) {
	return nil, nil
}

func (s *stubService) DeleteUser(context.Context, string) error { return nil }

type envelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Data    directory.QueryResult `json:"data"`
}

func setup(t *testing.T, svc *stubService) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mgr, err := jwt.NewManager(jwt.Config{SessionSecret: "s", ChatSecret: "c"})
	require.NoError(t, err)
	token, err := mgr.IssueSession("me", "me@example.com", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	NewHandler(svc, middleware.NewAuthMiddleware(mgr)).RegisterRoutes(r)
	return r, token
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

func TestQueryUsers(t *testing.T) {
	svc := &stubService{entries: []directory.Entry{{ID: "a", Name: "Alice", Online: true}}}
	r, token := setup(t, svc)

	params := url.Values{}
	params.Set("filter", `{"id":{"$ne":"me"},"$or":[{"name":{"$autocomplete":"al"}},{"id":{"$autocomplete":"al"}}]}`)
	params.Set("sort", `{"name":1}`)
	params.Set("limit", "25")
	params.Set("offset", "50")

	w := do(r, http.MethodGet, "/api/users?"+params.Encode(), token)
	require.Equal(t, http.StatusOK, w.Code)

	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, svc.entries, body.Data.Users)

	assert.Equal(t, 25, svc.gotQuery.Limit)
	assert.Equal(t, 50, svc.gotQuery.Offset)
	assert.Equal(t, directory.ByName(), svc.gotQuery.Sort)
	assert.Equal(t, directory.And{
		directory.Or{
			directory.Autocomplete{Field: directory.FieldName, Prefix: "al"},
			directory.Autocomplete{Field: directory.FieldID, Prefix: "al"},
		},
		directory.NotEquals{Field: directory.FieldID, Value: "me"},
	}, svc.gotQuery.Filter)
}

func TestQueryUsers_Defaults(t *testing.T) {
	svc := &stubService{}
	r, token := setup(t, svc)

	w := do(r, http.MethodGet, "/api/users?limit=1000", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.MaxLimit, svc.gotQuery.Limit)
	assert.Nil(t, svc.gotQuery.Filter)

	w = do(r, http.MethodGet, "/api/users", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, domain.DefaultLimit, svc.gotQuery.Limit)
	assert.JSONEq(t, `{"success":true,"data":{"users":[]}}`, w.Body.String())
}

func TestQueryUsers_BadRequests(t *testing.T) {
	r, token := setup(t, &stubService{})

	for _, q := range []string{
		"filter=" + url.QueryEscape(`{"email":"x"}`),
		"sort=" + url.QueryEscape(`{"name":3}`),
		"limit=abc",
		"offset=-1",
	} {
		w := do(r, http.MethodGet, "/api/users?"+q, token)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestQueryUsers_Errors(t *testing.T) {
	svc := &stubService{err: repository.ErrInvalidQuery}
	r, token := setup(t, svc)
	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/api/users", token).Code)

	svc.err = assert.AnError
	assert.Equal(t, http.StatusInternalServerError, do(r, http.MethodGet, "/api/users", token).Code)

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/users", "").Code)
}

func TestHeartbeat(t *testing.T) {
	svc := &stubService{}
	r, token := setup(t, svc)

	w := do(r, http.MethodPost, "/api/presence/heartbeat", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"me"}, svc.heartbeats)
}

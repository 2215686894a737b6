package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverma2003/convo-app/internal/channel/domain"
	"github.com/divverma2003/convo-app/internal/directory"
)

var fixture = []directory.Entry{
	{ID: "alice", Name: "Alice Adams"},
	{ID: "bob", Name: "Bob Brown"},
	{ID: "carol", Name: "Carol Clark"},
	{ID: "me", Name: "Me Myself"},
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func directoryServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "message": "invalid session"})
			return
		}
		filter, err := directory.DecodeFilter([]byte(r.URL.Query().Get("filter")))
		require.NoError(t, err)
		_, err = directory.DecodeSort([]byte(r.URL.Query().Get("sort")))
		require.NoError(t, err)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

		var matched []directory.Entry
		for _, e := range fixture {
			if directory.Match(filter, e) {
				matched = append(matched, e)
			}
		}
		if offset > len(matched) {
			offset = len(matched)
		}
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    directory.QueryResult{Users: matched[offset:end]},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestQueryUsers_SendsFilterAndPage(t *testing.T) {
	srv := directoryServer(t)
	c := New(srv.URL, "tok", time.Second)

	filter := directory.And{
		directory.NotEquals{Field: directory.FieldID, Value: "me"},
		directory.Or{
			directory.Autocomplete{Field: directory.FieldName, Prefix: "b"},
			directory.Autocomplete{Field: directory.FieldID, Prefix: "b"},
		},
	}
	res, err := c.QueryUsers(context.Background(), filter, directory.ByName(), directory.QueryOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "bob", res.Users[0].ID)

	res, err = c.QueryUsers(context.Background(), directory.NotEquals{Field: directory.FieldID, Value: "me"}, directory.ByName(), directory.QueryOptions{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, res.Users, 1)
	assert.Equal(t, "carol", res.Users[0].ID)
}

func TestQueryUsers_AuthFailureIsUnavailable(t *testing.T) {
	srv := directoryServer(t)
	c := New(srv.URL, "wrong", time.Second)

	_, err := c.QueryUsers(context.Background(), nil, nil, directory.QueryOptions{Limit: 10})
	require.ErrorIs(t, err, directory.ErrUnavailable)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestQueryUsers_ServerAndTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "message": "failed to query users"})
	}))
	c := New(srv.URL, "tok", time.Second)
	_, err := c.QueryUsers(context.Background(), nil, nil, directory.QueryOptions{Limit: 10})
	require.ErrorIs(t, err, directory.ErrUnavailable)
	srv.Close()

	_, err = c.QueryUsers(context.Background(), nil, nil, directory.QueryOptions{Limit: 10})
	require.ErrorIs(t, err, directory.ErrUnavailable)
}

func TestQueryUsers_ContextCanceled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { <-block }))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(srv.URL, "tok", time.Second).QueryUsers(ctx, nil, nil, directory.QueryOptions{Limit: 10})
	require.ErrorIs(t, err, context.Canceled)
}

func TestChannelCalls(t *testing.T) {
	var gotPath string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotBody = nil
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		switch r.URL.Path {
		case "/api/chat/channels/book-club/members":
			writeJSON(w, http.StatusForbidden, map[string]interface{}{
				"success": false,
				"message": "You don't have permission to invite users to this channel. Only moderators can invite members.",
				"error":   map[string]string{"code": "FORBIDDEN", "message": "You don't have permission to invite users to this channel. Only moderators can invite members."},
			})
		default:
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": domain.Channel{ID: "ch-1"}})
		}
	}))
	defer srv.Close()
	c := New(srv.URL, "tok", time.Second)
	ctx := context.Background()

	ch, err := c.OpenDirect(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "ch-1", ch.ID)
	assert.Equal(t, "POST /api/chat/channels/direct", gotPath)
	assert.Equal(t, "alice", gotBody["user_id"])

	_, err = c.CreateChannel(ctx, &domain.CreateChannelRequest{Name: "Team", Visibility: domain.VisibilityPublic})
	require.NoError(t, err)
	assert.Equal(t, "POST /api/chat/channels", gotPath)

	_, err = c.Invite(ctx, "book-club", []string{"bob"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "FORBIDDEN", apiErr.Code)
	assert.Contains(t, err.Error(), "Only moderators can invite members.")

	_, err = c.GetChannel(ctx, "ch-1")
	require.NoError(t, err)
	assert.Equal(t, "GET /api/chat/channels/ch-1", gotPath)
}

func TestHeartbeat(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}))
	defer srv.Close()
	c := New(srv.URL, "tok", time.Second)

	require.NoError(t, c.Heartbeat(context.Background()))
	assert.Equal(t, "POST /api/presence/heartbeat", gotPath)
}

package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverma2003/convo-app/internal/directory"
)

func TestNewEngine_Validation(t *testing.T) {
	_, err := NewEngine(nil, EngineConfig{ViewerID: "me"})
	require.Error(t, err)

	_, err = NewEngine(newFakeDirectory(), EngineConfig{})
	require.ErrorIs(t, err, ErrNoViewer)

	e, err := NewEngine(newFakeDirectory(), EngineConfig{ViewerID: "me"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPageSize, e.Config().PageSize)

	_, err = NewEngine(newFakeDirectory(), EngineConfig{ViewerID: "me", PageSize: directory.MaxLimit + 50})
	require.ErrorIs(t, err, ErrPageSize)
}

func TestEngine_Filter(t *testing.T) {
	e, err := NewEngine(newFakeDirectory(), EngineConfig{ViewerID: "me"})
	require.NoError(t, err)
	assert.Equal(t, directory.NotEquals{Field: directory.FieldID, Value: "me"}, e.Filter("  "))

	data, err := directory.MarshalFilter(e.Filter(" al "))
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"id":{"$ne":"me"},"$or":[{"name":{"$autocomplete":"al"}},{"id":{"$autocomplete":"al"}}]}`,
		string(data))

	e, err = NewEngine(newFakeDirectory(), EngineConfig{ViewerID: "me", ExcludeIDs: []string{"a", "me", "b", "a"}})
	require.NoError(t, err)
	assert.Equal(t, directory.NotIn{Field: directory.FieldID, Values: []string{"me", "a", "b"}}, e.Filter(""))
}

func TestEngine_FetchPage_OffsetAndSort(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 25)...)
	e, err := NewEngine(dir, EngineConfig{ViewerID: "me", PageSize: 10})
	require.NoError(t, err)

	page, err := e.FetchPage(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, 10, page.RawCount)
	assert.True(t, page.HasMore())
	assert.Equal(t, "user00", page.Entries[0].ID)

	page, err = e.FetchPage(context.Background(), 2, "")
	require.NoError(t, err)
	assert.Equal(t, directory.QueryOptions{Limit: 10, Offset: 20}, dir.lastCall().Opts)
	assert.Equal(t, 5, page.RawCount)
	assert.False(t, page.HasMore())

	_, err = e.FetchPage(context.Background(), -1, "")
	require.ErrorIs(t, err, ErrInvalidPage)
}

func TestEngine_FetchPage_SyntheticAccountsDoNotEndPaging(t *testing.T) {
	users := usersNamed("User", 23)
	users = append(users,
		directory.Entry{ID: "recording-1", Name: "User 05a"},
		directory.Entry{ID: "recording-2", Name: "User 05b"},
	)
	dir := newFakeDirectory(users...)
	e, err := NewEngine(dir, EngineConfig{ViewerID: "me", PageSize: 25, SyntheticPrefix: DefaultSyntheticPrefix})
	require.NoError(t, err)

	page, err := e.FetchPage(context.Background(), 0, "")
	require.NoError(t, err)
	assert.Equal(t, 25, page.RawCount)
	assert.Len(t, page.Entries, 23)
	assert.True(t, page.HasMore())
	for _, u := range page.Entries {
		assert.NotContains(t, u.ID, "recording-")
	}
}

func TestEngine_FetchPage_Unavailable(t *testing.T) {
	dir := newFakeDirectory()
	dir.setErr(errors.New("connection refused"))
	e, err := NewEngine(dir, EngineConfig{ViewerID: "me"})
	require.NoError(t, err)

	_, err = e.FetchPage(context.Background(), 0, "")
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.Contains(t, err.Error(), "connection refused")

	dir.setErr(directory.ErrUnavailable)
	_, err = e.FetchPage(context.Background(), 0, "")
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
}

func TestEngine_FetchPage_ContextCancelled(t *testing.T) {
	dir := newFakeDirectory()
	dir.gate = make(chan struct{})
	e, err := NewEngine(dir, EngineConfig{ViewerID: "me"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.FetchPage(ctx, 0, "")
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrDirectoryUnavailable)
}

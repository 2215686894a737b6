package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverma2003/convo-app/internal/directory"
)

func newTestSession(t *testing.T, dir *fakeDirectory, cfg Config) *Session {
	t.Helper()
	if cfg.ViewerID == "" {
		cfg.ViewerID = "me"
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = 10 * time.Millisecond
	}
	s, err := NewSession(dir, cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func ids(es []directory.Entry) []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.ID
	}
	return out
}

func TestSession_SearchThenLoadMore(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 15)...)
	s := newTestSession(t, dir, Config{PageSize: 10})
	ctx := context.Background()

	assert.Equal(t, StateIdle, s.Snapshot().State)

	require.NoError(t, s.Search(ctx, ""))
	snap := s.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.True(t, snap.HasMore)
	assert.Equal(t, 1, snap.NextPage)
	assert.Len(t, snap.Entries, 10)

	require.NoError(t, s.LoadMore(ctx))
	assert.Equal(t, directory.QueryOptions{Limit: 10, Offset: 10}, dir.lastCall().Opts)
	snap = s.Snapshot()
	assert.Len(t, snap.Entries, 15)
	assert.False(t, snap.HasMore)
	assert.Equal(t, 2, snap.NextPage)

	calls := dir.callCount()
	err := s.LoadMore(ctx)
	require.ErrorIs(t, err, ErrEndOfList)
	assert.True(t, IsNotice(err))
	assert.Equal(t, "You've reached the end of the users list", Message(err))
	require.ErrorIs(t, s.LoadMore(ctx), ErrEndOfList)
	assert.Equal(t, calls, dir.callCount(), "no fetch once the list is exhausted")
}

func TestSession_LoadMoreWhileIdle(t *testing.T) {
	s := newTestSession(t, newFakeDirectory(), Config{})
	require.ErrorIs(t, s.LoadMore(context.Background()), ErrEndOfList)
}

func TestSession_EmptyResultIsReady(t *testing.T) {
	s := newTestSession(t, newFakeDirectory(usersNamed("User", 3)...), Config{})
	require.NoError(t, s.Search(context.Background(), "zzz"))
	snap := s.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Empty(t, snap.Entries)
	assert.False(t, snap.HasMore)
}

func TestSession_StaleResponseIsDiscarded(t *testing.T) {
	dir := newFakeDirectory(
		directory.Entry{ID: "alan", Name: "Alan"},
		directory.Entry{ID: "alice", Name: "Alice"},
		directory.Entry{ID: "alina", Name: "Alina"},
	)
	dir.gate = make(chan struct{})
	dir.started = make(chan directory.QueryOptions, 4)
	s := newTestSession(t, dir, Config{})
	ctx := context.Background()

	var wg sync.WaitGroup
	var errAl, errAli error
	wg.Add(2)
	go func() { defer wg.Done(); errAl = s.Search(ctx, "al") }()
	<-dir.started
	go func() { defer wg.Done(); errAli = s.Search(ctx, "ali") }()
	<-dir.started

	close(dir.gate)
	wg.Wait()

	require.ErrorIs(t, errAl, ErrStaleResponse)
	assert.Empty(t, Message(errAl))
	require.NoError(t, errAli)

	snap := s.Snapshot()
	assert.Equal(t, "ali", snap.Query)
	assert.Equal(t, []string{"alice", "alina"}, ids(snap.Entries))
	assert.Equal(t, StateReady, snap.State)
}

func TestSession_LoadMoreWhileBusy(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 3)...)
	dir.gate = make(chan struct{})
	dir.started = make(chan directory.QueryOptions, 1)
	s := newTestSession(t, dir, Config{})

	done := make(chan error, 1)
	go func() { done <- s.Search(context.Background(), "") }()
	<-dir.started

	snap := s.Snapshot()
	assert.Equal(t, StateLoading, snap.State)
	assert.Equal(t, 0, snap.Page)

	err := s.LoadMore(context.Background())
	require.ErrorIs(t, err, ErrFetchInFlight)
	assert.True(t, IsNotice(err))
	assert.Equal(t, 1, dir.callCount())

	close(dir.gate)
	require.NoError(t, <-done)
}

func TestSession_FailureOnFirstPageClearsEntries(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 12)...)
	s := newTestSession(t, dir, Config{PageSize: 10})
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, ""))
	dir.setErr(errors.New("boom"))

	err := s.Search(ctx, "user")
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.Equal(t, "Error fetching users, please try again.", Message(err))
	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Empty(t, snap.Entries)
	require.ErrorIs(t, snap.Err, ErrDirectoryUnavailable)

	calls := dir.callCount()
	err = s.LoadMore(ctx)
	require.ErrorIs(t, err, ErrDirectoryUnavailable)
	assert.False(t, IsNotice(err))
	assert.Equal(t, calls, dir.callCount())

	dir.setErr(nil)
	require.NoError(t, s.Retry(ctx))
	snap = s.Snapshot()
	assert.Equal(t, StateReady, snap.State)
	assert.Equal(t, "user", snap.Query)
	assert.Len(t, snap.Entries, 10)
	assert.Nil(t, snap.Err)
}

func TestSession_FailureOnLaterPageKeepsEntries(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 12)...)
	s := newTestSession(t, dir, Config{PageSize: 10})
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, ""))
	dir.setErr(errors.New("boom"))

	require.ErrorIs(t, s.LoadMore(ctx), ErrDirectoryUnavailable)
	snap := s.Snapshot()
	assert.Equal(t, StateFailed, snap.State)
	assert.Len(t, snap.Entries, 10)
	assert.Equal(t, 1, snap.NextPage)

	dir.setErr(nil)
	require.NoError(t, s.LoadMore(ctx))
	assert.Len(t, s.Snapshot().Entries, 12)
}

func TestSession_ModeAllSelectsEveryListedEntry(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 15)...)
	s := newTestSession(t, dir, Config{PageSize: 10, Mode: ModeAll})
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, ""))
	snap := s.Snapshot()
	assert.ElementsMatch(t, ids(snap.Entries), snap.Selected)

	require.NoError(t, s.LoadMore(ctx))
	snap = s.Snapshot()
	assert.ElementsMatch(t, ids(snap.Entries), snap.Selected)

	s.SetMode(ModeManual)
	assert.Empty(t, s.Snapshot().Selected)
	assert.True(t, s.Toggle("user03"))
	assert.False(t, s.Toggle("nobody"))
	assert.Equal(t, []string{"user03"}, s.Snapshot().Selected)

	s.ToggleAll()
	assert.Len(t, s.Snapshot().Selected, 15)
	s.ToggleAll()
	assert.Empty(t, s.Snapshot().Selected)
}

func TestSession_InputDebouncesIntoSearch(t *testing.T) {
	dir := newFakeDirectory(
		directory.Entry{ID: "alan", Name: "Alan"},
		directory.Entry{ID: "alice", Name: "Alice"},
		directory.Entry{ID: "bob", Name: "Bob"},
	)
	s := newTestSession(t, dir, Config{Debounce: 30 * time.Millisecond})

	require.NoError(t, s.Search(context.Background(), ""))
	assert.Equal(t, 1, s.Snapshot().NextPage)

	s.Input("a")
	s.Input("al")
	s.Input("ali")
	snap := s.Snapshot()
	assert.Equal(t, "ali", snap.RawQuery)
	assert.Equal(t, 0, snap.NextPage)
	assert.Len(t, snap.Entries, 3, "previous entries stay visible")
	require.ErrorIs(t, s.LoadMore(context.Background()), ErrFetchInFlight)

	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return snap.Query == "ali" && snap.State == StateReady
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"alice"}, ids(s.Snapshot().Entries))
	assert.Equal(t, 2, dir.callCount())
}

func TestSession_InputDuringLoadMoreKeepsCursorReset(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 35)...)
	s := newTestSession(t, dir, Config{PageSize: 10, Debounce: time.Hour})
	ctx := context.Background()

	require.NoError(t, s.Search(ctx, ""))
	gate := make(chan struct{})
	started := make(chan directory.QueryOptions, 1)
	dir.block(gate, started)

	done := make(chan error, 1)
	go func() { done <- s.LoadMore(ctx) }()
	<-started

	s.Input("x")
	close(gate)
	require.NoError(t, <-done)

	snap := s.Snapshot()
	assert.Equal(t, 0, snap.NextPage)
	assert.Equal(t, "x", snap.RawQuery)
	assert.Len(t, snap.Entries, 20)

	calls := dir.callCount()
	require.ErrorIs(t, s.LoadMore(ctx), ErrFetchInFlight)
	assert.Equal(t, calls, dir.callCount(), "old query is not paged while the new one is pending")
}

func TestSession_SetViewerRefetches(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 3)...)
	s := newTestSession(t, dir, Config{})
	ctx := context.Background()

	require.NoError(t, s.SetViewer(ctx, "other"))
	assert.Zero(t, dir.callCount(), "idle sessions do not fetch")

	require.NoError(t, s.Search(ctx, ""))
	require.NoError(t, s.SetViewer(ctx, "user00"))
	assert.Equal(t, directory.NotEquals{Field: directory.FieldID, Value: "user00"}, dir.lastCall().Filter)
	assert.Equal(t, []string{"user01", "user02"}, ids(s.Snapshot().Entries))

	require.ErrorIs(t, s.SetViewer(ctx, ""), ErrNoViewer)
}

func TestSession_SetExcluded(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 3)...)
	s := newTestSession(t, dir, Config{})

	s.SetExcluded([]string{"user01"})
	require.NoError(t, s.Search(context.Background(), ""))
	assert.Equal(t, []string{"user00", "user02"}, ids(s.Snapshot().Entries))
}

func TestSession_CloseDropsInFlightResult(t *testing.T) {
	dir := newFakeDirectory(usersNamed("User", 3)...)
	dir.gate = make(chan struct{})
	dir.started = make(chan directory.QueryOptions, 1)
	s := newTestSession(t, dir, Config{})

	done := make(chan error, 1)
	go func() { done <- s.Search(context.Background(), "") }()
	<-dir.started

	s.Close()
	close(dir.gate)
	require.ErrorIs(t, <-done, ErrSessionClosed)

	snap := s.Snapshot()
	assert.Equal(t, StateLoading, snap.State)
	assert.Empty(t, snap.Entries)

	require.ErrorIs(t, s.Search(context.Background(), "x"), ErrSessionClosed)
	s.Input("late")
	assert.Empty(t, s.Snapshot().RawQuery)
}

func TestSession_OnChange(t *testing.T) {
	s := newTestSession(t, newFakeDirectory(usersNamed("User", 2)...), Config{})

	var mu sync.Mutex
	var states []State
	s.OnChange(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, snap.State)
	})

	require.NoError(t, s.Search(context.Background(), ""))
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []State{StateLoading, StateReady}, states)
}

package consumer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/divverma2003/convo-app/internal/user/domain"
	"github.com/divverma2003/convo-app/pkg/errreport"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

type chanSubscriber struct {
	ch           chan *pubsub.Event
	unsubscribed bool
	mu           sync.Mutex
}

func (s *chanSubscriber) Subscribe(context.Context, string) (<-chan *pubsub.Event, error) {
	return s.ch, nil
}

func (s *chanSubscriber) Unsubscribe(context.Context, string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed = true
	return nil
}

type fakeUsers struct {
	mu      sync.Mutex
	synced  []pubsub.UserPayload
	deleted []string
	syncErr error
}

func (f *fakeUsers) SyncUser(_ context.Context, p pubsub.UserPayload) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	f.synced = append(f.synced, p)
	return &domain.User{ID: p.ID}, nil
}

func (f *fakeUsers) DeleteUser(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeMembership struct {
	mu      sync.Mutex
	joined  []string
	removed []string
}

func (f *fakeMembership) JoinPublicChannels(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.joined = append(f.joined, id)
	return 1, nil
}

func (f *fakeMembership) RemoveUser(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, id)
	return 1, nil
}

func mustEvent(t *testing.T, typ, key string, payload interface{}) *pubsub.Event {
	t.Helper()
	ev, err := pubsub.NewEvent(typ, key, payload)
	require.NoError(t, err)
	return ev
}

func TestHandle_CreatedSyncsAndJoins(t *testing.T) {
	users, channels := &fakeUsers{}, &fakeMembership{}
	w := NewLifecycleWorker(nil, users, channels)

	err := w.Handle(context.Background(), mustEvent(t, pubsub.EventUserCreated, "u1", pubsub.UserPayload{ID: "u1", FirstName: "Ada"}))
	require.NoError(t, err)
	require.Len(t, users.synced, 1)
	assert.Equal(t, "Ada", users.synced[0].FirstName)
	assert.Equal(t, []string{"u1"}, channels.joined)
}

func TestHandle_UpdatedDoesNotJoin(t *testing.T) {
	users, channels := &fakeUsers{}, &fakeMembership{}
	w := NewLifecycleWorker(nil, users, channels)

	require.NoError(t, w.Handle(context.Background(), mustEvent(t, pubsub.EventUserUpdated, "u1", pubsub.UserPayload{ID: "u1"})))
	assert.Len(t, users.synced, 1)
	assert.Empty(t, channels.joined)
}

func TestHandle_Deleted(t *testing.T) {
	users, channels := &fakeUsers{}, &fakeMembership{}
	w := NewLifecycleWorker(nil, users, channels)

	require.NoError(t, w.Handle(context.Background(), mustEvent(t, pubsub.EventUserDeleted, "u2", pubsub.UserDeletedPayload{ID: "u2", Deleted: true})))
	assert.Equal(t, []string{"u2"}, users.deleted)
	assert.Equal(t, []string{"u2"}, channels.removed)
}

func TestHandle_SyncFailure(t *testing.T) {
	users := &fakeUsers{syncErr: errors.New("db down")}
	channels := &fakeMembership{}
	w := NewLifecycleWorker(nil, users, channels)

	err := w.Handle(context.Background(), mustEvent(t, pubsub.EventUserCreated, "u1", pubsub.UserPayload{ID: "u1"}))
	require.Error(t, err)
	assert.Empty(t, channels.joined)
}

func TestRun_ContinuesAfterFailure(t *testing.T) {
	sub := &chanSubscriber{ch: make(chan *pubsub.Event, 3)}
	users := &fakeUsers{}
	w := NewLifecycleWorker(sub, users, nil)

	sub.ch <- &pubsub.Event{ID: "bad", Type: pubsub.EventUserCreated, Payload: []byte(`not json`)}
	sub.ch <- mustEvent(t, pubsub.EventUserDeleted, "u3", pubsub.UserDeletedPayload{ID: "u3"})
	close(sub.ch)

	transport := &sentry.MockTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{Dsn: "http://key@sentry.test/1", Transport: transport})
	require.NoError(t, err)
	ctx := sentry.SetHubOnContext(context.Background(), sentry.NewHub(client, sentry.NewScope()))

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop after subscription closed")
	}
	assert.Equal(t, []string{"u3"}, users.deleted)
	assert.True(t, sub.unsubscribed)

	events := transport.Events()
	require.Len(t, events, 1)
	assert.Equal(t, "lifecycle-worker", events[0].Tags[errreport.TagComponent])
	assert.Equal(t, "bad", events[0].Tags["event_id"])
}

func TestRun_StopsOnCancel(t *testing.T) {
	sub := &chanSubscriber{ch: make(chan *pubsub.Event)}
	w := NewLifecycleWorker(sub, &fakeUsers{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}

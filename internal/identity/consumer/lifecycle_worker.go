package consumer

import (
	"context"
	"fmt"

	"github.com/divverma2003/convo-app/pkg/errreport"
	"github.com/divverma2003/convo-app/pkg/log"
	"github.com/divverma2003/convo-app/pkg/pubsub"
)

// LifecycleWorker applies user lifecycle events from the event bus.
type LifecycleWorker struct {
	sub      pubsub.Subscriber
	users    UserSyncer
	channels Membership
}

// NewLifecycleWorker creates a worker. channels may be nil.
func NewLifecycleWorker(sub pubsub.Subscriber, users UserSyncer, channels Membership) *LifecycleWorker {
	return &LifecycleWorker{sub: sub, users: users, channels: channels}
}

// Run consumes events until ctx is done or the subscription closes. A
// failing event is logged, reported and skipped.
func (w *LifecycleWorker) Run(ctx context.Context) error {
	l := log.L()

	events, err := w.sub.Subscribe(ctx, pubsub.ChannelUserLifecycle)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", pubsub.ChannelUserLifecycle, err)
	}
	defer func() {
		if err := w.sub.Unsubscribe(context.Background(), pubsub.ChannelUserLifecycle); err != nil {
			l.Warn().Err(err).Msg("failed to unsubscribe lifecycle worker")
		}
	}()

	l.Info().Str("channel", pubsub.ChannelUserLifecycle).Msg("user lifecycle worker started")

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("user lifecycle worker shutting down")
			return nil
		case ev, ok := <-events:
			if !ok {
				l.Info().Msg("user lifecycle subscription closed")
				return nil
			}
			evLogger := l.With().
				Str(log.FieldEventID, ev.ID).
				Str(log.FieldEventType, ev.Type).
				Str(log.FieldUserID, ev.Key).
				Logger()
			evCtx := log.WithLogger(ctx, evLogger)
			if err := w.Handle(evCtx, ev); err != nil {
				evLogger.Error().Err(err).Msg("failed to process user lifecycle event")
				errreport.Capture(evCtx, err, "lifecycle-worker", map[string]string{
					log.FieldEventType: ev.Type,
					log.FieldEventID:   ev.ID,
				})
			}
		}
	}
}

// Handle applies a single event.
func (w *LifecycleWorker) Handle(ctx context.Context, ev *pubsub.Event) error {
	switch ev.Type {
	case pubsub.EventUserCreated, pubsub.EventUserUpdated:
		var p pubsub.UserPayload
		if err := ev.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode user payload: %w", err)
		}
		if _, err := w.users.SyncUser(ctx, p); err != nil {
			return fmt.Errorf("sync user: %w", err)
		}
		if ev.Type == pubsub.EventUserCreated && w.channels != nil {
			joined, err := w.channels.JoinPublicChannels(ctx, p.ID)
			if err != nil {
				return fmt.Errorf("join public channels: %w", err)
			}
			l := log.Ctx(ctx)
			l.Debug().Int("channels", joined).Msg("new user joined public channels")
		}
		return nil

	case pubsub.EventUserDeleted:
		var p pubsub.UserDeletedPayload
		if err := ev.UnmarshalPayload(&p); err != nil {
			return fmt.Errorf("decode deleted payload: %w", err)
		}
		if err := w.users.DeleteUser(ctx, p.ID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		if w.channels != nil {
			if _, err := w.channels.RemoveUser(ctx, p.ID); err != nil {
				return fmt.Errorf("remove user from channels: %w", err)
			}
		}
		return nil

	default:
		l := log.Ctx(ctx)
		l.Debug().Msg("ignoring unknown lifecycle event")
		return nil
	}
}

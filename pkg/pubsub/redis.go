package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/divverma2003/convo-app/pkg/log"
)

// RedisPubSub implements PubSub on Redis Pub/Sub. Delivery is at-most-once:
// events published while no worker is subscribed are lost.
type RedisPubSub struct {
	client        *redis.Client
	subscriptions map[string]*redis.PubSub
	mu            sync.Mutex
}

// NewRedisPubSub creates a new Redis-based PubSub instance.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisPubSubFromClient(client), nil
}

// NewRedisPubSubFromClient wraps an existing client.
func NewRedisPubSubFromClient(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client:        client,
		subscriptions: make(map[string]*redis.PubSub),
	}
}

// Publish publishes an event to the specified channel.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := r.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Subscribe subscribes to a specific channel.
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.subscriptions[channel]; ok {
		existing.Close()
	}

	sub := r.client.Subscribe(ctx, channel)
	// Wait for the subscription confirmation so events published right after
	// Subscribe returns are not missed.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}
	r.subscriptions[channel] = sub

	eventCh := make(chan *Event, 100)
	go r.processMessages(ctx, sub, eventCh)

	return eventCh, nil
}

// Unsubscribe unsubscribes from a channel.
func (r *RedisPubSub) Unsubscribe(ctx context.Context, channel string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub, ok := r.subscriptions[channel]; ok {
		delete(r.subscriptions, channel)
		if err := sub.Close(); err != nil {
			return err
		}
	}

	return nil
}

// Close closes all subscriptions and the Redis client.
func (r *RedisPubSub) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, sub := range r.subscriptions {
		sub.Close()
		delete(r.subscriptions, key)
	}

	return r.client.Close()
}

// processMessages forwards decoded events until ctx ends or the
// subscription closes. Sends block so lifecycle events are never dropped
// on a slow worker.
func (r *RedisPubSub) processMessages(ctx context.Context, sub *redis.PubSub, eventCh chan<- *Event) {
	defer close(eventCh)

	l := log.L()
	ch := sub.Channel()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				l.Warn().Err(err).Str("channel", msg.Channel).Msg("redis pubsub: dropping undecodable event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			}
		}
	}
}

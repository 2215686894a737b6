package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/divverma2003/convo-app/pkg/log"
)

// kafkaSubscription tracks a single consumer subscription.
type kafkaSubscription struct {
	consumer *kafka.Consumer
	cancel   context.CancelFunc
	done     chan struct{}
}

// KafkaPubSub implements PubSub on Apache Kafka. Channels map to topics,
// event keys map to message keys, and every subscriber of a channel shares
// one consumer group so each event is handled once per deployment.
type KafkaPubSub struct {
	producer      *kafka.Producer
	subscriptions map[string]*kafkaSubscription
	config        KafkaConfig
	mu            sync.Mutex
	doneCh        chan struct{}
}

// NewKafkaPubSub creates a new Kafka-based PubSub instance.
func NewKafkaPubSub(cfg KafkaConfig) (*KafkaPubSub, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "all",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kps := &KafkaPubSub{
		producer:      p,
		subscriptions: make(map[string]*kafkaSubscription),
		config:        cfg,
		doneCh:        make(chan struct{}),
	}

	go kps.deliveryReportHandler()

	if err := kps.ensureTopic(channelToTopic(ChannelUserLifecycle)); err != nil {
		l := log.L()
		l.Warn().Err(err).Msg("failed to ensure kafka topics (may already exist)")
	}

	return kps, nil
}

// ensureTopic creates topic if it does not exist.
func (k *KafkaPubSub) ensureTopic(topic string) error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: 1,
	}})
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError && r.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", r.Topic, r.Error)
		}
	}

	return nil
}

// deliveryReportHandler processes delivery reports from the producer.
func (k *KafkaPubSub) deliveryReportHandler() {
	l := log.L()
	for e := range k.producer.Events() {
		if ev, ok := e.(*kafka.Message); ok && ev.TopicPartition.Error != nil {
			l.Error().Err(ev.TopicPartition.Error).Str("key", string(ev.Key)).Msg("kafka pubsub delivery failed")
		}
	}
	close(k.doneCh)
}

// Publish produces the event on the channel's topic keyed by event.Key, so
// all events for one user land on one partition in order.
func (k *KafkaPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	topic := channelToTopic(channel)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.Key),
		Value: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

// Subscribe joins the consumer group for channel's topic.
func (k *KafkaPubSub) Subscribe(ctx context.Context, channel string) (<-chan *Event, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if existing, ok := k.subscriptions[channel]; ok {
		existing.cancel()
		<-existing.done
		delete(k.subscriptions, channel)
	}

	groupID := k.config.GroupID
	if groupID == "" {
		groupID = "convo-api"
	}

	topic := channelToTopic(channel)
	c, err := kafka.NewConsumer(&kafka.ConfigMap{
		"bootstrap.servers":       k.config.Brokers,
		"group.id":                groupID + "-" + topic,
		"auto.offset.reset":       "earliest",
		"enable.auto.commit":      true,
		"auto.commit.interval.ms": 5000,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	if err := c.Subscribe(topic, nil); err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	subCtx, cancel := context.WithCancel(ctx)
	sub := &kafkaSubscription{consumer: c, cancel: cancel, done: make(chan struct{})}
	k.subscriptions[channel] = sub

	eventCh := make(chan *Event, 100)
	go k.consumeMessages(subCtx, sub, eventCh)

	return eventCh, nil
}

// consumeMessages polls Kafka and forwards events to the channel. The
// consumer is closed here, on the polling goroutine, once ctx ends.
func (k *KafkaPubSub) consumeMessages(ctx context.Context, sub *kafkaSubscription, eventCh chan<- *Event) {
	defer close(sub.done)
	defer close(eventCh)
	defer sub.consumer.Close()

	l := log.L()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		ev := sub.consumer.Poll(500)
		if ev == nil {
			continue
		}

		switch e := ev.(type) {
		case *kafka.Message:
			var event Event
			if err := json.Unmarshal(e.Value, &event); err != nil {
				l.Warn().Err(err).Str("key", string(e.Key)).Msg("kafka pubsub: dropping undecodable event")
				continue
			}

			select {
			case eventCh <- &event:
			case <-ctx.Done():
				return
			}

		case kafka.Error:
			l.Error().Err(e).Int("code", int(e.Code())).Bool("fatal", e.IsFatal()).Msg("kafka pubsub error")
			if e.IsFatal() {
				return
			}
		}
	}
}

// Unsubscribe leaves the consumer group for channel.
func (k *KafkaPubSub) Unsubscribe(ctx context.Context, channel string) error {
	k.mu.Lock()
	sub, ok := k.subscriptions[channel]
	delete(k.subscriptions, channel)
	k.mu.Unlock()

	if ok {
		sub.cancel()
		<-sub.done
	}
	return nil
}

// Close closes all subscriptions and the producer.
func (k *KafkaPubSub) Close() error {
	k.mu.Lock()
	subs := k.subscriptions
	k.subscriptions = make(map[string]*kafkaSubscription)
	k.mu.Unlock()

	for _, sub := range subs {
		sub.cancel()
		<-sub.done
	}

	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh

	return nil
}

// Package watermill adapts watermill publishers and subscribers to the
// messaging interfaces. The in-process GoChannel bus backs single-node runs
// and tests; the Kafka mode goes through watermill-kafka and sarama.
package watermill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	wkafka "github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/egannguyen/secondhand-market/internal/messaging"
)

const keyMetadata = "partition_key"

type broker struct {
	logger    watermill.LoggerAdapter
	publisher message.Publisher
	// subscriber returns the subscriber for a consumer group.
	subscriber func(groupID string) (message.Subscriber, error)

	mu      sync.Mutex
	closers []func() error
	wg      sync.WaitGroup
}

// NewGoChannelBroker returns an in-process broker. Every subscription sees
// every message published after it was made, regardless of group. Publish
// returns once every subscriber has handled the message, so events reach
// consumers in the order they were published.
func NewGoChannelBroker() messaging.Broker {
	logger := watermill.NewSlogLogger(slog.Default())
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer:            64,
		BlockPublishUntilSubscriberAck: true,
	}, logger)
	return &broker{
		logger:    logger,
		publisher: pubSub,
		subscriber: func(string) (message.Subscriber, error) {
			return pubSub, nil
		},
		closers: []func() error{pubSub.Close},
	}
}

// NewKafkaBroker returns a broker that talks to Kafka through sarama. Each
// consumer group gets its own subscriber.
func NewKafkaBroker(brokers []string) (messaging.Broker, error) {
	logger := watermill.NewSlogLogger(slog.Default())
	marshaler := wkafka.NewWithPartitioningMarshaler(func(topic string, msg *message.Message) (string, error) {
		return msg.Metadata.Get(keyMetadata), nil
	})

	publisher, err := wkafka.NewPublisher(wkafka.PublisherConfig{
		Brokers:               brokers,
		Marshaler:             marshaler,
		OverwriteSaramaConfig: wkafka.DefaultSaramaSyncPublisherConfig(),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	b := &broker{logger: logger, publisher: publisher, closers: []func() error{publisher.Close}}
	b.subscriber = func(groupID string) (message.Subscriber, error) {
		saramaConfig := wkafka.DefaultSaramaSubscriberConfig()
		saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

		sub, err := wkafka.NewSubscriber(wkafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           marshaler,
			ConsumerGroup:         groupID,
			OverwriteSaramaConfig: saramaConfig,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
		}
		b.mu.Lock()
		b.closers = append(b.closers, sub.Close)
		b.mu.Unlock()
		return sub, nil
	}
	return b, nil
}

func (b *broker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(keyMetadata, key)
	msg.SetContext(ctx)
	return b.publisher.Publish(topic, msg)
}

func (b *broker) Subscribe(ctx context.Context, topic string, groupID string, handler messaging.Handler) error {
	sub, err := b.subscriber(groupID)
	if err != nil {
		return err
	}
	messages, err := sub.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for msg := range messages {
			if err := handler(ctx, msg.Payload); err != nil {
				slog.Error("Error handling message", "topic", topic, "message_uuid", msg.UUID, "err", err)
			}
			msg.Ack()
		}
		slog.Info("Consumer shutting down", "topic", topic)
	}()
	return nil
}

func (b *broker) Close() error {
	b.mu.Lock()
	closers := b.closers
	b.closers = nil
	b.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	b.wg.Wait()
	return errors.Join(errs...)
}

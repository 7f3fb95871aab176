package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/egannguyen/secondhand-market/internal/messaging"
	kafkaGo "github.com/segmentio/kafka-go"
)

type kafkaBroker struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafkaGo.Writer
	readers []*kafkaGo.Reader
	wg      sync.WaitGroup
}

// NewKafkaBroker creates a new Kafka publisher and subscriber. Writers are
// created lazily, one per topic, and reused.
func NewKafkaBroker(brokers []string) messaging.Broker {
	return &kafkaBroker{brokers: brokers, writers: make(map[string]*kafkaGo.Writer)}
}

func (k *kafkaBroker) writer(topic string) *kafkaGo.Writer {
	k.mu.Lock()
	defer k.mu.Unlock()

	w, ok := k.writers[topic]
	if !ok {
		w = &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(k.brokers...),
			Topic:                  topic,
			Balancer:               &kafkaGo.Hash{},
			AllowAutoTopicCreation: true,
		}
		k.writers[topic] = w
	}
	return w
}

func (k *kafkaBroker) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	return k.writer(topic).WriteMessages(ctx, kafkaGo.Message{
		Key:   []byte(key),
		Value: payload,
	})
}

func (k *kafkaBroker) Subscribe(ctx context.Context, topic string, groupID string, handler messaging.Handler) error {
	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers: k.brokers,
		Topic:   topic,
		GroupID: groupID,
	})

	k.mu.Lock()
	k.readers = append(k.readers, reader)
	k.mu.Unlock()

	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		consume(ctx, reader, handler)
	}()
	return nil
}

// consume reads messages in a loop and calls the handler for each message.
// It blocks until the context is cancelled or the reader is closed.
func consume(ctx context.Context, reader *kafkaGo.Reader, handler messaging.Handler) {
	topic := reader.Config().Topic
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				slog.Info("Consumer shutting down", "topic", topic)
				return
			}
			if errors.Is(err, io.EOF) {
				slog.Info("Consumer closed", "topic", topic)
				return
			}
			slog.Error("Error reading message", "topic", topic, "err", err)
			continue
		}

		if err := handler(ctx, msg.Value); err != nil {
			slog.Error("Error handling message", "topic", topic, "err", err)
		}
	}
}

func (k *kafkaBroker) Close() error {
	k.mu.Lock()
	var errs []error
	for _, r := range k.readers {
		errs = append(errs, r.Close())
	}
	for _, w := range k.writers {
		errs = append(errs, w.Close())
	}
	k.mu.Unlock()

	k.wg.Wait()
	return errors.Join(errs...)
}

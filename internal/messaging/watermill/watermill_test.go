package watermill

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoChannelBroker_RoundTrip(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewGoChannelBroker()
	defer b.Close()

	received := make(chan entity.Event, 1)
	err := b.Subscribe(ctx, messaging.TopicOrdersPlaced, "test", func(ctx context.Context, payload []byte) error {
		e, err := messaging.Decode(messaging.TopicOrdersPlaced, payload)
		if err != nil {
			return err
		}
		received <- e
		return nil
	})
	require.NoError(t, err)

	messaging.PublishEvents(ctx, b, "o1", entity.OrderPlaced{OrderID: "o1", BuyerID: "b1"})

	select {
	case e := <-received:
		placed, ok := e.(entity.OrderPlaced)
		require.True(t, ok)
		assert.Equal(t, "o1", placed.OrderID)
		assert.Equal(t, "b1", placed.BuyerID)
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
}

func TestGoChannelBroker_HandlerErrorDoesNotStopConsumer(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewGoChannelBroker()
	defer b.Close()

	calls := make(chan string, 2)
	err := b.Subscribe(ctx, messaging.TopicOrdersCancelled, "test", func(ctx context.Context, payload []byte) error {
		e, err := messaging.Decode(messaging.TopicOrdersCancelled, payload)
		if err != nil {
			return err
		}
		id := e.(entity.OrderCancelled).OrderID
		calls <- id
		if id == "bad" {
			return assert.AnError
		}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, b.PublishEvent(ctx, messaging.TopicOrdersCancelled, "bad", entity.OrderCancelled{OrderID: "bad"}))
	require.NoError(t, b.PublishEvent(ctx, messaging.TopicOrdersCancelled, "good", entity.OrderCancelled{OrderID: "good"}))

	for _, want := range []string{"bad", "good"} {
		select {
		case got := <-calls:
			assert.Equal(t, want, got)
		case <-time.After(2 * time.Second):
			t.Fatalf("message %s not delivered", want)
		}
	}
}

func TestGoChannelBroker_DeliversInPublishOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	b := NewGoChannelBroker()
	defer b.Close()

	var (
		mu   sync.Mutex
		got  []string
		done = make(chan struct{})
	)
	handle := func(topic string) messaging.Handler {
		return func(ctx context.Context, payload []byte) error {
			e, err := messaging.Decode(topic, payload)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			got = append(got, e.EventType())
			if len(got) == 20 {
				close(done)
			}
			return nil
		}
	}
	require.NoError(t, b.Subscribe(ctx, messaging.TopicOrdersPlaced, "test", handle(messaging.TopicOrdersPlaced)))
	require.NoError(t, b.Subscribe(ctx, messaging.TopicPaymentsCaptured, "test", handle(messaging.TopicPaymentsCaptured)))

	var want []string
	for i := 0; i < 10; i++ {
		messaging.PublishEvents(ctx, b, "o1",
			entity.OrderPlaced{OrderID: "o1"},
			entity.PaymentCaptured{OrderID: "o1"},
		)
		want = append(want, entity.EventOrderPlaced, entity.EventPaymentCaptured)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("messages not delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, want, got)
}

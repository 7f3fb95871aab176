// Package service holds the marketplace use cases. Each service validates
// its input, drives the entity state machines and commits through the
// repository interfaces, then publishes the resulting events.
package service

import (
	"context"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/egannguyen/secondhand-market/internal/service")

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// endSpan records err on span before ending it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// orderCommit applies events to a loaded order and saves the result guarded
// by the version the order was read at.
type orderCommit struct {
	orders    repository.OrderRepository
	publisher messaging.Publisher
}

func (c orderCommit) apply(ctx context.Context, current *entity.Order, events []entity.Event, payment *entity.Payment, restock bool) (*entity.Order, error) {
	agg := entity.NewOrderAggregate(*current)
	for _, e := range events {
		if err := agg.ApplyEvent(e); err != nil {
			return nil, err
		}
	}
	change := repository.OrderChange{
		Order:           &agg.Order,
		ExpectedVersion: current.Version,
		Events:          events,
		Payment:         payment,
		Restock:         restock,
	}
	if err := c.orders.Save(ctx, change); err != nil {
		return nil, err
	}
	messaging.PublishEvents(ctx, c.publisher, current.ID, events...)
	return &agg.Order, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

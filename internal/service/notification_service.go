package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/egannguyen/secondhand-market/internal/entity"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/google/uuid"
)

// NotificationTopics are the topics that produce user notifications.
var NotificationTopics = []string{
	messaging.TopicOrdersPlaced,
	messaging.TopicPaymentsCaptured,
	messaging.TopicPaymentsFailed,
	messaging.TopicOrdersVerified,
	messaging.TopicOrdersFulfillment,
	messaging.TopicOrdersCancelled,
	messaging.TopicVerificationsReviewed,
}

// NotificationService turns domain events into messages for the affected
// user.
type NotificationService struct {
	repo repository.NotificationRepository
	now  func() time.Time
}

func NewNotificationService(repo repository.NotificationRepository) *NotificationService {
	return &NotificationService{repo: repo, now: nowUTC}
}

// Start subscribes to every notification topic under groupID.
func (s *NotificationService) Start(ctx context.Context, sub messaging.Subscriber, groupID string) error {
	for _, topic := range NotificationTopics {
		topic := topic
		handler := func(ctx context.Context, payload []byte) error {
			e, err := messaging.Decode(topic, payload)
			if err != nil {
				return err
			}
			return s.HandleEvent(ctx, e)
		}
		if err := sub.Subscribe(ctx, topic, groupID, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	slog.Info("Notification consumer started", "group_id", groupID, "topics", len(NotificationTopics))
	return nil
}

// HandleEvent stores a notification for e. Events nobody needs to hear
// about are ignored.
func (s *NotificationService) HandleEvent(ctx context.Context, e entity.Event) error {
	n := s.build(e)
	if n == nil {
		return nil
	}
	if err := s.repo.Save(ctx, n); err != nil {
		return fmt.Errorf("failed to save notification: %w", err)
	}
	slog.Info("Projection: Notification stored", "user_id", n.UserID, "type", n.Type)
	return nil
}

func (s *NotificationService) build(e entity.Event) *entity.Notification {
	n := &entity.Notification{ID: uuid.NewString(), Type: e.EventType(), CreatedAt: s.now()}
	switch e := e.(type) {
	case entity.OrderPlaced:
		n.UserID, n.RelatedID = e.BuyerID, e.OrderID
		n.Title = "Order placed"
		n.Message = fmt.Sprintf("Your order totalling PHP %s is waiting for payment.", e.Total.StringFixed(2))
	case entity.PaymentCaptured:
		n.UserID, n.RelatedID = e.BuyerID, e.OrderID
		n.Title = "Payment received"
		n.Message = fmt.Sprintf("PHP %s is held in escrow until we verify your order.", e.Amount.StringFixed(2))
	case entity.PaymentFailed:
		n.UserID, n.RelatedID = e.BuyerID, e.OrderID
		n.Title = "Payment failed"
		n.Message = "Your payment was declined and the order was cancelled: " + e.Reason
	case entity.TransactionVerified:
		n.UserID, n.RelatedID = e.BuyerID, e.OrderID
		n.Title = "Order verified"
		n.Message = "Your order has been verified and is being prepared for shipping."
		if e.TrackingNumber != "" {
			n.Message = "Your order has shipped. Tracking number: " + e.TrackingNumber
		}
	case entity.FulfillmentUpdated:
		n.UserID, n.RelatedID = e.BuyerID, e.OrderID
		n.Title = "Shipping update"
		n.Message = fmt.Sprintf("Your order is now %s.", e.Status)
	case entity.OrderCancelled:
		n.UserID, n.RelatedID = e.BuyerID, e.OrderID
		n.Title = "Order cancelled"
		n.Message = "Your order was cancelled: " + e.Reason
	case entity.VerificationReviewed:
		n.UserID, n.RelatedID = e.UserID, e.VerificationID
		if e.Status == entity.VerificationApproved {
			n.Title = "Seller verification approved"
			n.Message = "You can now list products as a verified seller."
		} else {
			n.Title = "Seller verification rejected"
			n.Message = "Your verification was rejected: " + e.Note
		}
	default:
		return nil
	}
	if n.UserID == "" {
		return nil
	}
	return n
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]entity.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	list, err := s.repo.FindByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return list, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	return s.repo.MarkRead(ctx, userID, id)
}

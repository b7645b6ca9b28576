package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nilpay/payment-service/internal/models"
	"github.com/nilpay/payment-service/internal/repository"
	"github.com/segmentio/kafka-go"
)

// Consumer turns payment events into in-app notifications for the owning
// user. Losing a message only loses a notification, never a payment.
type Consumer struct {
	reader        *kafka.Reader
	notifications repository.NotificationRepository
}

func NewConsumer(brokers []string, topic, groupID string, notifications repository.NotificationRepository) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		notifications: notifications,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		var event PaymentEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal payment event", "error", err)
			continue
		}

		createdAt, err := time.Parse(time.RFC3339, event.CreatedAt)
		if err != nil {
			slog.Error("invalid created_at format", "value", event.CreatedAt, "error", err)
			createdAt = time.Now().UTC()
		}

		notification := buildNotification(event, createdAt)
		if notification == nil {
			slog.Error("unknown payment status", "status", event.Status)
			continue
		}

		if err := c.notifications.Append(ctx, notification); err != nil {
			slog.Error("failed to append notification", "user_id", event.UserID, "error", err)
			continue
		}

		slog.Info("notification created", "user_id", event.UserID, "transaction_id", event.TransactionID, "status", event.Status)
	}
}

func buildNotification(event PaymentEvent, createdAt time.Time) *models.Notification {
	base := models.Notification{
		ID:        uuid.NewString(),
		UserID:    event.UserID,
		Type:      models.NotificationPayment,
		CreatedAt: createdAt,
	}

	switch models.StatusType(event.Status) {
	case models.StatusCompleted:
		base.Title = "Payment Sent"
		base.Message = fmt.Sprintf("You sent %s %s to %s", event.Amount, event.Currency, event.Recipient)
	case models.StatusFailed:
		base.Title = "Payment Failed"
		base.Message = fmt.Sprintf("Payment of %s %s to %s could not be processed", event.Amount, event.Currency, event.Recipient)
	default:
		return nil
	}
	return &base
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

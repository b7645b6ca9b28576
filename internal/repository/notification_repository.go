package repository

import (
	"context"

	"github.com/nilpay/payment-service/internal/models"
)

type NotificationRepository interface {
	Append(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int32) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID int32, id string) error
}

package models

import "time"

type Notification struct {
	ID        string           `json:"id"`
	UserID    int32            `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Read      bool             `json:"read"`
	CreatedAt time.Time        `json:"created_at"`
}

type NotificationType string

const (
	NotificationPayment NotificationType = "payment"
	NotificationSystem  NotificationType = "system"
)

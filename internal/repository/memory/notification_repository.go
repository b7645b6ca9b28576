package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/nilpay/payment-service/internal/models"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
)

// NotificationRepository keeps notifications in memory. The interface in
// internal/repository lets a durable store replace it without touching the
// consumer or the handlers.
type NotificationRepository struct {
	mu     sync.RWMutex
	byUser map[int32][]models.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{byUser: make(map[int32][]models.Notification)}
}

func (r *NotificationRepository) Append(ctx context.Context, n *models.Notification) error {
	if n == nil {
		return pkgerrors.ErrInvalidInput
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byUser[n.UserID] = append(r.byUser[n.UserID], *n)
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int32) ([]models.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.byUser[userID]
	out := make([]models.Notification, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, userID int32, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.byUser[userID] {
		if r.byUser[userID][i].ID == id {
			r.byUser[userID][i].Read = true
			return nil
		}
	}
	return pkgerrors.ErrNotificationNotFound
}

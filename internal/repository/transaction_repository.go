package repository

import (
	"context"

	"github.com/nilpay/payment-service/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (int32, error)
	GetByID(ctx context.Context, id int32) (*models.Transaction, error)
	// UpdateStatus moves a pending transaction to a terminal status and
	// returns the updated record. Only pending rows may transition.
	UpdateStatus(ctx context.Context, id int32, status models.StatusType) (*models.Transaction, error)
	ListByUser(ctx context.Context, userID int32, limit int) ([]models.Transaction, error)
}

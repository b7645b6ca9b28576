package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/nilpay/payment-service/internal/models"
	repository "github.com/nilpay/payment-service/internal/repository/postgres"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var txColumns = []string{"id", "user_id", "recipient", "amount", "currency", "status", "timestamp"}

func TestPostgresTransactionRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	t.Run("NilTransaction", func(t *testing.T) {
		id, err := repo.Create(ctx, nil)
		assert.Equal(t, int32(0), id)
		assert.ErrorIs(t, err, pkgerrors.ErrNilTransaction)
	})

	t.Run("NonPendingStatus", func(t *testing.T) {
		tx := &models.Transaction{
			UserID:    1,
			Recipient: "Bob",
			Amount:    decimal.NewFromInt(100),
			Currency:  "USD",
			Status:    models.StatusCompleted,
		}
		id, err := repo.Create(ctx, tx)
		assert.Equal(t, int32(0), id)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidStatus)
	})

	t.Run("NonPositiveAmount", func(t *testing.T) {
		tx := &models.Transaction{
			UserID:    1,
			Recipient: "Bob",
			Amount:    decimal.Zero,
			Currency:  "USD",
			Status:    models.StatusPending,
		}
		id, err := repo.Create(ctx, tx)
		assert.Equal(t, int32(0), id)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
	})

	t.Run("Success", func(t *testing.T) {
		tx := &models.Transaction{
			UserID:    1,
			Recipient: "Bob",
			Amount:    decimal.NewFromInt(100),
			Currency:  "USD",
			Status:    models.StatusPending,
		}
		createdAt := time.Now().UTC()
		txID := int32(7)
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions (user_id, recipient, amount, currency, status) VALUES ($1, $2, $3, $4, $5) RETURNING id, timestamp`)).
			WithArgs(tx.UserID, tx.Recipient, tx.Amount, tx.Currency, tx.Status).
			WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(txID, createdAt))

		id, err := repo.Create(ctx, tx)
		assert.NoError(t, err)
		assert.Equal(t, txID, id)
		assert.Equal(t, txID, tx.ID)
		assert.WithinDuration(t, createdAt, tx.Timestamp, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		tx := &models.Transaction{
			UserID:    1,
			Recipient: "Bob",
			Amount:    decimal.NewFromInt(100),
			Currency:  "USD",
			Status:    models.StatusPending,
		}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO transactions`)).
			WithArgs(tx.UserID, tx.Recipient, tx.Amount, tx.Currency, tx.Status).
			WillReturnError(fmt.Errorf("database error"))

		id, err := repo.Create(ctx, tx)
		assert.Equal(t, int32(0), id)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	updateQuery := regexp.QuoteMeta(`UPDATE transactions SET status = $2 WHERE id = $1 AND status = 'pending' RETURNING id, user_id, recipient, amount, currency, status, timestamp`)

	t.Run("NonTerminalTarget", func(t *testing.T) {
		tx, err := repo.UpdateStatus(ctx, 1, models.StatusPending)
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidStatus)
	})

	t.Run("Success", func(t *testing.T) {
		createdAt := time.Now().UTC()
		mock.ExpectQuery(updateQuery).
			WithArgs(int32(1), models.StatusCompleted).
			WillReturnRows(sqlmock.NewRows(txColumns).
				AddRow(1, 2, "Bob", "100.5", "USD", "completed", createdAt))

		tx, err := repo.UpdateStatus(ctx, 1, models.StatusCompleted)
		assert.NoError(t, err)
		assert.Equal(t, models.StatusCompleted, tx.Status)
		assert.Equal(t, int32(2), tx.UserID)
		assert.True(t, tx.Amount.Equal(decimal.RequireFromString("100.5")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(updateQuery).
			WithArgs(int32(99), models.StatusCompleted).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM transactions WHERE id = $1`)).
			WithArgs(int32(99)).
			WillReturnError(sql.ErrNoRows)

		tx, err := repo.UpdateStatus(ctx, 99, models.StatusCompleted)
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrTransactionNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AlreadyTerminal", func(t *testing.T) {
		mock.ExpectQuery(updateQuery).
			WithArgs(int32(5), models.StatusFailed).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM transactions WHERE id = $1`)).
			WithArgs(int32(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("completed"))

		tx, err := repo.UpdateStatus(ctx, 5, models.StatusFailed)
		assert.Nil(t, tx)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidTransition)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresTransactionRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresTransactionRepository(db)
	ctx := context.Background()

	listQuery := regexp.QuoteMeta(`SELECT id, user_id, recipient, amount, currency, status, timestamp FROM transactions WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2`)

	t.Run("NewestFirst", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(listQuery).
			WithArgs(int32(1), 50).
			WillReturnRows(sqlmock.NewRows(txColumns).
				AddRow(3, 1, "Carol", "30", "EUR", "completed", now).
				AddRow(2, 1, "Bob", "20", "USD", "failed", now.Add(-time.Hour)).
				AddRow(1, 1, "Alice", "10", "USD", "completed", now.Add(-2*time.Hour)))

		transactions, err := repo.ListByUser(ctx, 1, 0)
		assert.NoError(t, err)
		assert.Len(t, transactions, 3)
		assert.Equal(t, int32(3), transactions[0].ID)
		assert.Equal(t, int32(1), transactions[2].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		mock.ExpectQuery(listQuery).
			WithArgs(int32(2), 50).
			WillReturnRows(sqlmock.NewRows(txColumns))

		transactions, err := repo.ListByUser(ctx, 2, 50)
		assert.NoError(t, err)
		assert.Empty(t, transactions)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		mock.ExpectQuery(listQuery).
			WithArgs(int32(3), 50).
			WillReturnError(fmt.Errorf("database error"))

		transactions, err := repo.ListByUser(ctx, 3, 50)
		assert.Nil(t, transactions)
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

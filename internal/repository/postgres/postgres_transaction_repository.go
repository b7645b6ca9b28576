package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nilpay/payment-service/internal/infrastructure/observability"
	"github.com/nilpay/payment-service/internal/models"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultHistoryLimit caps ListByUser when the caller passes limit <= 0.
const DefaultHistoryLimit = 50

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (int32, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateTransaction").Observe(time.Since(start).Seconds())
	}()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return 0, err
	}

	if tx.Status != models.StatusPending {
		err = pkgerrors.ErrInvalidStatus
		slog.Error("transactions must be created pending", "method", "Create", "status", tx.Status, "error", err)
		return 0, err
	}

	if !tx.Amount.IsPositive() {
		err = fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidInput)
		slog.Error("amount must be positive", "method", "Create", "amount", tx.Amount, "error", err)
		return 0, err
	}

	span.SetAttributes(
		attribute.Int("user_id", int(tx.UserID)),
		attribute.String("recipient", tx.Recipient),
		attribute.String("amount", tx.Amount.String()),
		attribute.String("currency", tx.Currency),
	)

	query := `INSERT INTO transactions (user_id, recipient, amount, currency, status) VALUES ($1, $2, $3, $4, $5) RETURNING id, timestamp`
	var txID int32
	var createdAt time.Time
	err = r.db.QueryRowContext(ctx, query, tx.UserID, tx.Recipient, tx.Amount, tx.Currency, tx.Status).Scan(&txID, &createdAt)
	if err != nil {
		slog.Error("failed to create transaction", "method", "Create", "user_id", tx.UserID, "recipient", tx.Recipient, "error", err)
		return 0, fmt.Errorf("failed to create transaction: %w", err)
	}

	tx.ID = txID
	tx.Timestamp = createdAt
	slog.Info("transaction created", "method", "Create", "id", tx.ID, "user_id", tx.UserID, "recipient", tx.Recipient, "status", tx.Status)
	return txID, nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id int32) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "GetTransactionByID")
	span.SetAttributes(attribute.Int("transaction_id", int(id)))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetTransactionByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetTransactionByID").Observe(time.Since(start).Seconds())
	}()

	var tx models.Transaction
	query := `SELECT id, user_id, recipient, amount, currency, status, timestamp FROM transactions WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, id).Scan(&tx.ID, &tx.UserID, &tx.Recipient, &tx.Amount, &tx.Currency, &tx.Status, &tx.Timestamp)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		slog.Error("transaction not found", "method", "GetByID", "transaction_id", id)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}

	return &tx, nil
}

// UpdateStatus only moves pending rows; the WHERE clause is the transition
// guard, so a double-processed id surfaces as ErrInvalidTransition instead of
// silently overwriting a terminal status.
func (r *PostgresTransactionRepository) UpdateStatus(ctx context.Context, id int32, status models.StatusType) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "UpdateTransactionStatus")
	span.SetAttributes(
		attribute.Int("transaction_id", int(id)),
		attribute.String("status", string(status)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		st := "success"
		if err != nil {
			st = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("UpdateTransactionStatus", st).Inc()
		observability.RepositoryDuration.WithLabelValues("UpdateTransactionStatus").Observe(time.Since(start).Seconds())
	}()

	if !status.Terminal() {
		err = pkgerrors.ErrInvalidStatus
		slog.Error("target status must be terminal", "method", "UpdateStatus", "transaction_id", id, "status", status, "error", err)
		return nil, err
	}

	var tx models.Transaction
	query := `UPDATE transactions SET status = $2 WHERE id = $1 AND status = 'pending' RETURNING id, user_id, recipient, amount, currency, status, timestamp`
	err = r.db.QueryRowContext(ctx, query, id, status).Scan(&tx.ID, &tx.UserID, &tx.Recipient, &tx.Amount, &tx.Currency, &tx.Status, &tx.Timestamp)
	if stderrors.Is(err, sql.ErrNoRows) {
		// Either the row does not exist or it already reached a terminal status.
		var current models.StatusType
		checkErr := r.db.QueryRowContext(ctx, `SELECT status FROM transactions WHERE id = $1`, id).Scan(&current)
		if stderrors.Is(checkErr, sql.ErrNoRows) {
			err = pkgerrors.ErrTransactionNotFound
			slog.Error("transaction not found", "method", "UpdateStatus", "transaction_id", id)
			return nil, err
		}
		if checkErr != nil {
			err = fmt.Errorf("failed to check transaction status: %w", checkErr)
			slog.Error("failed to check transaction status", "method", "UpdateStatus", "transaction_id", id, "error", checkErr)
			return nil, err
		}
		err = fmt.Errorf("%w: %s -> %s", pkgerrors.ErrInvalidTransition, current, status)
		slog.Error("illegal status transition", "method", "UpdateStatus", "transaction_id", id, "from", current, "to", status)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to update transaction status", "method", "UpdateStatus", "transaction_id", id, "status", status, "error", err)
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}

	slog.Info("transaction status updated", "method", "UpdateStatus", "transaction_id", id, "status", status)
	return &tx, nil
}

func (r *PostgresTransactionRepository) ListByUser(ctx context.Context, userID int32, limit int) ([]models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "ListTransactionsByUser")
	span.SetAttributes(attribute.Int("user_id", int(userID)))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListTransactionsByUser", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListTransactionsByUser").Observe(time.Since(start).Seconds())
	}()

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	query := `SELECT id, user_id, recipient, amount, currency, status, timestamp FROM transactions WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		slog.Error("failed to list transactions", "method", "ListByUser", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0, limit)
	for rows.Next() {
		var tx models.Transaction
		if err = rows.Scan(&tx.ID, &tx.UserID, &tx.Recipient, &tx.Amount, &tx.Currency, &tx.Status, &tx.Timestamp); err != nil {
			slog.Error("failed to scan transaction row", "method", "ListByUser", "user_id", userID, "error", err)
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		slog.Error("failed to iterate transaction rows", "method", "ListByUser", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to iterate transaction rows: %w", err)
	}

	return transactions, nil
}

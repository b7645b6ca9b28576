package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/nilpay/payment-service/internal/infrastructure/kafka"
	"github.com/nilpay/payment-service/internal/infrastructure/observability"
	"github.com/nilpay/payment-service/internal/models"
	"github.com/nilpay/payment-service/internal/repository"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const historyLimit = 50

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// PaymentProcessor charges a pending transaction against an external
// processor. The simulator in internal/infrastructure/processor is the only
// implementation today; a real gateway client slots in here.
type PaymentProcessor interface {
	Charge(ctx context.Context, tx *models.Transaction) error
}

// WebhookNotifier delivers a completed-payment callback. Best effort:
// failures must never fail the payment.
type WebhookNotifier interface {
	NotifyPayment(ctx context.Context, tx *models.Transaction) error
}

type PaymentService interface {
	SendPayment(ctx context.Context, userID int32, recipient string, amount decimal.Decimal, currency string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, userID int32) ([]models.Transaction, error)
}

type paymentService struct {
	transactionRepo repository.TransactionRepository
	processor       PaymentProcessor
	notifier        WebhookNotifier
	kafkaProducer   kafka.KafkaProducer
}

func NewPaymentService(
	transactionRepo repository.TransactionRepository,
	processor PaymentProcessor,
	notifier WebhookNotifier,
	kafkaProducer kafka.KafkaProducer,
) *paymentService {
	return &paymentService{
		transactionRepo: transactionRepo,
		processor:       processor,
		notifier:        notifier,
		kafkaProducer:   kafkaProducer,
	}
}

// SendPayment runs the full lifecycle: validate, create pending, charge,
// record the terminal status, then notify. Persistence and processing faults
// are hard failures; a webhook fault is logged and swallowed because the
// payment already succeeded from the user's perspective.
func (s *paymentService) SendPayment(ctx context.Context, userID int32, recipient string, amount decimal.Decimal, currency string) (*models.Transaction, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "SendPayment")
	span.SetAttributes(attribute.Int("user_id", int(userID)))
	defer span.End()

	currency = strings.ToUpper(currency)
	if err := validatePayment(recipient, amount, currency); err != nil {
		span.SetStatus(codes.Error, "invalid payment input")
		return nil, err
	}

	tx := &models.Transaction{
		UserID:    userID,
		Recipient: recipient,
		Amount:    amount,
		Currency:  currency,
		Status:    models.StatusPending,
	}

	if _, err := s.transactionRepo.Create(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction creation failed")
		slog.Error("failed to create transaction", "user_id", userID, "recipient", recipient, "error", err)
		return nil, fmt.Errorf("%w: failed to create transaction", pkgerrors.ErrInternal)
	}
	span.SetAttributes(attribute.Int("transaction_id", int(tx.ID)))

	if err := s.processor.Charge(ctx, tx); err != nil {
		failed := s.markFailed(ctx, tx.ID)
		span.SetStatus(codes.Error, "charge declined")
		observability.PaymentOutcomes.WithLabelValues(string(models.StatusFailed)).Inc()
		if failed != nil {
			s.emitPaymentEvent(failed)
		}
		slog.Warn("payment declined", "transaction_id", tx.ID, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: transaction %d", pkgerrors.ErrPaymentDeclined, tx.ID)
	}

	completed, err := s.transactionRepo.UpdateStatus(ctx, tx.ID, models.StatusCompleted)
	if err != nil {
		// The charge went through but we could not record it. Try to park
		// the row in failed rather than leaving it pending forever.
		s.markFailed(ctx, tx.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "status update failed")
		slog.Error("failed to complete transaction", "transaction_id", tx.ID, "error", err)
		return nil, fmt.Errorf("%w: failed to update transaction status", pkgerrors.ErrInternal)
	}

	observability.PaymentOutcomes.WithLabelValues(string(models.StatusCompleted)).Inc()

	if err := s.notifier.NotifyPayment(ctx, completed); err != nil {
		span.RecordError(err)
		slog.Error("webhook delivery failed, payment unaffected", "transaction_id", completed.ID, "error", err)
	}

	s.emitPaymentEvent(completed)

	slog.Info("payment completed", "transaction_id", completed.ID, "user_id", userID, "recipient", recipient, "amount", completed.Amount, "currency", currency)
	return completed, nil
}

func (s *paymentService) ListTransactions(ctx context.Context, userID int32) ([]models.Transaction, error) {
	tracer := otel.Tracer("payment-service")
	ctx, span := tracer.Start(ctx, "ListTransactions")
	span.SetAttributes(attribute.Int("user_id", int(userID)))
	defer span.End()

	transactions, err := s.transactionRepo.ListByUser(ctx, userID, historyLimit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "history lookup failed")
		slog.Error("failed to list transactions", "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to list transactions", pkgerrors.ErrInternal)
	}

	return transactions, nil
}

func (s *paymentService) markFailed(ctx context.Context, id int32) *models.Transaction {
	failed, err := s.transactionRepo.UpdateStatus(ctx, id, models.StatusFailed)
	if err != nil {
		// Accepted inconsistency: the row stays pending if even this write
		// fails. Surfaced in logs for manual follow-up.
		slog.Error("failed to mark transaction failed", "transaction_id", id, "error", err)
		return nil
	}
	return failed
}

func (s *paymentService) emitPaymentEvent(tx *models.Transaction) {
	eventType := "payment_completed"
	if tx.Status == models.StatusFailed {
		eventType = "payment_failed"
	}
	event := kafka.PaymentEvent{
		EventType:     eventType,
		TransactionID: tx.ID,
		UserID:        tx.UserID,
		Recipient:     tx.Recipient,
		Amount:        tx.Amount.String(),
		Currency:      tx.Currency,
		Status:        string(tx.Status),
		CreatedAt:     tx.Timestamp.UTC().Format(time.RFC3339),
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal kafka event", "transaction_id", tx.ID, "error", err)
		return
	}

	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.kafkaProducer.Send(context.Background(), kafka.TopicPayments, int64(tx.ID), eventBytes); err == nil {
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to send payment event after retries", "transaction_id", tx.ID)
	}()
}

func validatePayment(recipient string, amount decimal.Decimal, currency string) error {
	if strings.TrimSpace(recipient) == "" {
		return fmt.Errorf("%w: recipient is required", pkgerrors.ErrInvalidInput)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", pkgerrors.ErrInvalidInput)
	}
	if !currencyPattern.MatchString(currency) {
		return fmt.Errorf("%w: currency must be a 3-letter code", pkgerrors.ErrInvalidInput)
	}
	return nil
}

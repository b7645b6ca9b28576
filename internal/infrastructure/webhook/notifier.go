package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nilpay/payment-service/internal/infrastructure/observability"
	"github.com/nilpay/payment-service/internal/models"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
)

const userAgent = "PaymentApp-Webhook/1.0"

// Envelope is the wire format POSTed to the configured webhook endpoint.
type Envelope struct {
	Event     string      `json:"event"`
	Data      PaymentData `json:"data"`
	Timestamp string      `json:"timestamp"`
}

type PaymentData struct {
	TransactionID int32  `json:"transaction_id"`
	UserID        int32  `json:"user_id"`
	Recipient     string `json:"recipient"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Timestamp     string `json:"timestamp"`
	Status        string `json:"status"`
}

// Notifier delivers payment events to a single configured endpoint.
// Delivery is at-most-once: no retries, bounded by the client timeout.
type Notifier struct {
	url    string
	client *http.Client
}

func NewNotifier(url string, timeout time.Duration) *Notifier {
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Notifier{
		url: url,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (n *Notifier) NotifyPayment(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}

	envelope := Envelope{
		Event: "payment.sent",
		Data: PaymentData{
			TransactionID: tx.ID,
			UserID:        tx.UserID,
			Recipient:     tx.Recipient,
			Amount:        tx.Amount.String(),
			Currency:      tx.Currency,
			Timestamp:     tx.Timestamp.UTC().Format(time.RFC3339),
			Status:        string(models.StatusCompleted),
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("%w: marshal envelope: %v", pkgerrors.ErrWebhookDelivery, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", pkgerrors.ErrWebhookDelivery, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		observability.WebhookDeliveries.WithLabelValues("error").Inc()
		slog.Error("webhook request failed", "url", n.url, "transaction_id", tx.ID, "error", err)
		return fmt.Errorf("%w: %v", pkgerrors.ErrWebhookDelivery, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		observability.WebhookDeliveries.WithLabelValues("error").Inc()
		slog.Error("webhook rejected", "url", n.url, "transaction_id", tx.ID, "status_code", resp.StatusCode)
		return fmt.Errorf("%w: status %d", pkgerrors.ErrWebhookDelivery, resp.StatusCode)
	}

	observability.WebhookDeliveries.WithLabelValues("success").Inc()
	slog.Info("webhook delivered", "transaction_id", tx.ID, "status_code", resp.StatusCode)
	return nil
}

// CheckHealth probes the endpoint without sending an event. Used by the
// health handler only; the payment path never calls this.
func (n *Notifier) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, n.url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrWebhookUnreachable, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", pkgerrors.ErrWebhookUnreachable, err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", pkgerrors.ErrWebhookUnreachable, resp.StatusCode)
	}
	return nil
}

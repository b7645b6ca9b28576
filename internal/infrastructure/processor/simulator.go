package processor

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/nilpay/payment-service/internal/models"
	pkgerrors "github.com/nilpay/payment-service/pkg/errors"
)

// Simulator stands in for a real payment gateway client. It sleeps for the
// configured processing delay and declines a configurable fraction of
// charges. The delay is deliberately not cancellable: a charge that started
// always resolves.
type Simulator struct {
	delay       time.Duration
	successRate float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulator(delay time.Duration, successRate float64) *Simulator {
	return &Simulator{
		delay:       delay,
		successRate: successRate,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (s *Simulator) Charge(ctx context.Context, tx *models.Transaction) error {
	if tx == nil {
		return pkgerrors.ErrNilTransaction
	}

	time.Sleep(s.delay)

	s.mu.Lock()
	outcome := s.rng.Float64()
	s.mu.Unlock()

	if outcome >= s.successRate {
		slog.Warn("simulated processor declined charge", "transaction_id", tx.ID, "amount", tx.Amount, "currency", tx.Currency)
		return pkgerrors.ErrPaymentDeclined
	}
	return nil
}

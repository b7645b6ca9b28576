package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	ID        int32           `json:"id"`
	UserID    int32           `json:"user_id"`
	Recipient string          `json:"recipient"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Status    StatusType      `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}

type StatusType string

const (
	StatusPending   StatusType = "pending"
	StatusCompleted StatusType = "completed"
	StatusFailed    StatusType = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s StatusType) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

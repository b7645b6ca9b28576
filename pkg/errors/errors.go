package errors

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrNilUser            = errors.New("user is nil")

	ErrTransactionNotFound  = errors.New("transaction not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrNilTransaction       = errors.New("transaction is nil")
	ErrInvalidStatus        = errors.New("invalid transaction status")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrPaymentDeclined      = errors.New("payment processing failed")

	ErrWebhookDelivery    = errors.New("webhook delivery failed")
	ErrWebhookUnreachable = errors.New("webhook endpoint unreachable")

	ErrInternal = errors.New("internal error")
)

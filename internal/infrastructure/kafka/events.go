package kafka

// Topics carrying domain events.
const (
	TopicPayments = "payments"
	TopicUsers    = "users"
)

// PaymentEvent is the JSON envelope published for every terminal transaction.
type PaymentEvent struct {
	EventType     string `json:"event_type"`
	TransactionID int32  `json:"transaction_id"`
	UserID        int32  `json:"user_id"`
	Recipient     string `json:"recipient"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	CreatedAt     string `json:"created_at"`
}

// UserEvent is published on signup.
type UserEvent struct {
	EventType string `json:"event_type"`
	UserID    int32  `json:"user_id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRegisteredEvent is emitted after a successful registration. The
// activation token travels inside the payload so the mail worker does not
// need a database round trip.
type UserRegisteredEvent struct {
	UserID          uuid.UUID `json:"user_id"`
	Email           string    `json:"email"`
	ActivationToken string    `json:"activation_token"`
	ExpiresAt       time.Time `json:"expires_at"`
}

// UserActivatedEvent signals a completed account activation.
type UserActivatedEvent struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// PasswordResetRequestedEvent carries the reset token for the mail worker.
type PasswordResetRequestedEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	ResetToken string    `json:"reset_token"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// PasswordResetCompletedEvent confirms a password change.
type PasswordResetCompletedEvent struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
}

// OrderPlacedEvent is emitted inside the checkout transaction.
type OrderPlacedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	UserID      uuid.UUID       `json:"user_id"`
	Email       string          `json:"email"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	ItemCount   int             `json:"item_count"`
}

// OrderPaidEvent is emitted when a processor webhook settles an order.
type OrderPaidEvent struct {
	OrderID   uuid.UUID       `json:"order_id"`
	UserID    uuid.UUID       `json:"user_id"`
	Email     string          `json:"email"`
	PaymentID uuid.UUID       `json:"payment_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// OrderCanceledEvent is emitted for user cancellations and failed payments
// that cancel the order.
type OrderCanceledEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	UserID     uuid.UUID `json:"user_id"`
	Email      string    `json:"email"`
	CanceledAt time.Time `json:"canceled_at"`
	Reason     string    `json:"reason,omitempty"`
}

// PaymentFailedEvent reports a declined or canceled payment intent.
type PaymentFailedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	UserID            uuid.UUID `json:"user_id"`
	Email             string    `json:"email"`
	ExternalPaymentID string    `json:"external_payment_id,omitempty"`
	Reason            string    `json:"reason,omitempty"`
}

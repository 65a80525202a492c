package payments

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moviegate/moviegate-backend/pkg/db/models"
	"github.com/moviegate/moviegate-backend/pkg/enums"
	"github.com/moviegate/moviegate-backend/pkg/pagination"
)

// PaymentDTO is the API shape of a settled payment.
type PaymentDTO struct {
	ID                uuid.UUID           `json:"id"`
	OrderID           uuid.UUID           `json:"order_id"`
	UserID            uuid.UUID           `json:"user_id"`
	Status            enums.PaymentStatus `json:"status"`
	Amount            decimal.Decimal     `json:"amount"`
	ExternalPaymentID *string             `json:"external_payment_id,omitempty"`
	CreatedAt         time.Time           `json:"created_at"`
}

// InitiateResponse carries what the frontend needs to confirm the
// payment with Stripe.
type InitiateResponse struct {
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

// ListQuery filters payment listings. UserID and Status are only honored
// on the admin surface.
type ListQuery struct {
	Pagination pagination.Params
	UserID     *uuid.UUID
	Status     *enums.PaymentStatus
}

// ListResult is one cursor page of payments.
type ListResult struct {
	Payments   []PaymentDTO `json:"payments"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

// FromModel converts the persistence shape into the API shape.
func FromModel(payment *models.Payment) *PaymentDTO {
	return &PaymentDTO{
		ID:                payment.ID,
		OrderID:           payment.OrderID,
		UserID:            payment.UserID,
		Status:            payment.Status,
		Amount:            payment.Amount,
		ExternalPaymentID: payment.ExternalPaymentID,
		CreatedAt:         payment.CreatedAt,
	}
}

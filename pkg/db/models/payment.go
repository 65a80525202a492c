package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/moviegate/moviegate-backend/pkg/enums"
)

// Payment records a settled processor transaction for an order.
type Payment struct {
	ID                uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	UserID            uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	Status            enums.PaymentStatus `gorm:"column:status;type:payment_status;not null"`
	Amount            decimal.Decimal     `gorm:"column:amount;type:numeric(10,2);not null"`
	ExternalPaymentID *string             `gorm:"column:external_payment_id;uniqueIndex"`
	CreatedAt         time.Time           `gorm:"column:created_at;autoCreateTime"`

	Items []PaymentItem `gorm:"foreignKey:PaymentID"`
}

// PaymentItem snapshots the per-line amount charged.
type PaymentItem struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID      uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;index"`
	OrderItemID    uuid.UUID       `gorm:"column:order_item_id;type:uuid;not null"`
	PriceAtPayment decimal.Decimal `gorm:"column:price_at_payment;type:numeric(10,2);not null"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/pkg/enums"
)

// Payment is a single ledger entry against an order. Amount is the figure the
// client reported in its original currency; AmountUSD is the canonical value
// frozen with the rate snapshot in effect at submission.
type Payment struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	SubmittedBy     uuid.UUID           `gorm:"column:submitted_by;type:uuid;not null"`
	Method          enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status          enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Currency        enums.Currency      `gorm:"column:currency;type:text;not null;default:'USD'"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(18,2);not null"`
	AmountUSD       decimal.Decimal     `gorm:"column:amount_usd;type:numeric(14,2);not null"`
	Reference       *string             `gorm:"column:reference;type:text"`
	ReceiptURL      *string             `gorm:"column:receipt_url;type:text"`
	Note            *string             `gorm:"column:note;type:text"`
	VerifiedBy      *uuid.UUID          `gorm:"column:verified_by;type:uuid"`
	DecidedAt       *time.Time          `gorm:"column:decided_at"`
	RejectionReason *string             `gorm:"column:rejection_reason;type:text"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

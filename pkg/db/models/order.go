package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/pkg/enums"
)

// Order is the client-facing purchase aggregate. Monetary columns are stored
// in canonical USD; PaidTotalUSD is materialized only inside the payment
// verification transaction that holds the row lock.
type Order struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ClientID     uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index"`
	Status       enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pendiente'"`
	TotalUSD     decimal.Decimal   `gorm:"column:total_usd;type:numeric(14,2);not null"`
	PaidTotalUSD decimal.Decimal   `gorm:"column:paid_total_usd;type:numeric(14,2);not null;default:0"`
	Notes        *string           `gorm:"column:notes;type:text"`
	DecidedAt    *time.Time        `gorm:"column:decided_at"`
	CompletedAt  *time.Time        `gorm:"column:completed_at"`
	Items        []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Payments     []Payment         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

// RemainingUSD derives the outstanding balance; it is never persisted.
func (o Order) RemainingUSD() decimal.Decimal {
	return o.TotalUSD.Sub(o.PaidTotalUSD)
}

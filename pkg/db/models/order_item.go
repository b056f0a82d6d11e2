package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots a product line at order creation time so later catalog
// edits cannot change what the client agreed to pay.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID       `gorm:"column:product_id;type:uuid;not null"`
	Name         string          `gorm:"column:name;type:text;not null"`
	Quantity     int             `gorm:"column:quantity;not null"`
	UnitPriceUSD decimal.Decimal `gorm:"column:unit_price_usd;type:numeric(14,2);not null"`
	SubtotalUSD  decimal.Decimal `gorm:"column:subtotal_usd;type:numeric(14,2);not null"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
}

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/pkg/enums"
)

// RateProfile is an append-only exchange rate snapshot. RateSecondary is VES
// per USD and RateTertiary is COP per USD. CrossRate, when present, is COP
// per VES and takes precedence for COP conversions. The newest row is the
// active profile; older rows stay for audit.
type RateProfile struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RateSecondary   decimal.Decimal  `gorm:"column:rate_secondary;type:numeric(18,6);not null"`
	RateTertiary    decimal.Decimal  `gorm:"column:rate_tertiary;type:numeric(18,6);not null"`
	CrossRate       *decimal.Decimal `gorm:"column:cross_rate;type:numeric(18,6)"`
	DisplayCurrency enums.Currency   `gorm:"column:display_currency;type:text;not null;default:'VES'"`
	UpdatedBy       *uuid.UUID       `gorm:"column:updated_by;type:uuid"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
}

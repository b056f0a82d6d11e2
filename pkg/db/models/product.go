package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry priced in canonical USD.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;type:text;not null"`
	Description *string         `gorm:"column:description;type:text"`
	PriceUSD    decimal.Decimal `gorm:"column:price_usd;type:numeric(14,2);not null"`
	ImageURL    *string         `gorm:"column:image_url;type:text"`
	IsActive    bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

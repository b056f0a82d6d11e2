package payments

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
)

// Repository defines persistence operations for payment rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	Update(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, paymentID uuid.UUID) error
	SumVerifiedByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error)
}

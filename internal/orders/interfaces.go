package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/pagination"
)

// ListFilters narrow an order listing.
type ListFilters struct {
	ClientID *uuid.UUID
	Status   *enums.OrderStatus
}

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filters ListFilters, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, orderID uuid.UUID) error
	FindStaleUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

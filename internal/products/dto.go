package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/pagination"
)

// Actor identifies the authenticated caller.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// CreateProductInput carries the fields admins submit for a new catalog entry.
type CreateProductInput struct {
	Actor       Actor
	Name        string
	Description *string
	PriceUSD    decimal.Decimal
	ImageURL    *string
}

// UpdateProductInput applies partial updates to a catalog entry.
type UpdateProductInput struct {
	Actor       Actor
	ProductID   uuid.UUID
	Name        *string
	Description *string
	PriceUSD    *decimal.Decimal
	ImageURL    *string
	IsActive    *bool
}

// DeleteProductInput deactivates a catalog entry.
type DeleteProductInput struct {
	Actor     Actor
	ProductID uuid.UUID
}

// ListProductsInput configures catalog pagination. Clients only ever see
// active products; admins may include deactivated ones.
type ListProductsInput struct {
	Actor           Actor
	IncludeInactive bool
	Params          pagination.Params
}

package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/pagination"
)

// CreateOrderItemInput is one requested line on a new order.
type CreateOrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput captures a client's order request.
type CreateOrderInput struct {
	ClientID uuid.UUID
	Items    []CreateOrderItemInput
	Notes    *string
}

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.Role
}

// DecisionInput addresses a single order for approve/complete/delete.
type DecisionInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// RejectInput carries the mandatory rejection reason.
type RejectInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   Actor
}

// CancelInput carries the mandatory cancellation reason.
type CancelInput struct {
	OrderID uuid.UUID
	Reason  string
	Actor   Actor
}

// OverrideStatusInput is the admin escape hatch for stuck orders.
type OverrideStatusInput struct {
	OrderID uuid.UUID
	Status  enums.OrderStatus
	Actor   Actor
}

// GetOrderInput scopes a detail read to the requesting actor.
type GetOrderInput struct {
	OrderID uuid.UUID
	Actor   Actor
}

// ListOrdersInput configures a role-scoped order listing.
type ListOrdersInput struct {
	Actor  Actor
	Status *enums.OrderStatus
	Params pagination.Params
}

// OrderSummary is the listing row shape.
type OrderSummary struct {
	ID           uuid.UUID         `json:"id"`
	ClientID     uuid.UUID         `json:"client_id"`
	Status       enums.OrderStatus `json:"status"`
	TotalUSD     decimal.Decimal   `json:"total_usd"`
	PaidTotalUSD decimal.Decimal   `json:"paid_total_usd"`
	RemainingUSD decimal.Decimal   `json:"remaining_usd"`
	ItemCount    int               `json:"item_count"`
	CreatedAt    time.Time         `json:"created_at"`
}

// OrderList wraps a page of summaries and the cursor for the next page.
type OrderList struct {
	Items  []OrderSummary `json:"items"`
	Cursor string         `json:"cursor"`
}

// OrderDetail is the full aggregate returned to authorized readers.
type OrderDetail struct {
	Order        models.Order    `json:"order"`
	RemainingUSD decimal.Decimal `json:"remaining_usd"`
}

func summarize(order models.Order) OrderSummary {
	return OrderSummary{
		ID:           order.ID,
		ClientID:     order.ClientID,
		Status:       order.Status,
		TotalUSD:     order.TotalUSD,
		PaidTotalUSD: order.PaidTotalUSD,
		RemainingUSD: order.RemainingUSD(),
		ItemCount:    len(order.Items),
		CreatedAt:    order.CreatedAt,
	}
}

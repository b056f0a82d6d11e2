package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/outbox"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/payloads"
	"github.com/jpcontreras/vendia-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type productReader interface {
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
}

// Service defines order pipeline operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, input GetOrderInput) (*OrderDetail, error)
	List(ctx context.Context, input ListOrdersInput) (*OrderList, error)
	Approve(ctx context.Context, input DecisionInput) error
	Reject(ctx context.Context, input RejectInput) error
	Cancel(ctx context.Context, input CancelInput) error
	Complete(ctx context.Context, input DecisionInput) error
	OverrideStatus(ctx context.Context, input OverrideStatusInput) error
	Delete(ctx context.Context, input DecisionInput) error
}

type service struct {
	repo     Repository
	products productReader
	tx       txRunner
	outbox   outboxPublisher
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, products productReader, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		products: products,
		tx:       tx,
		outbox:   outbox,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if input.ClientID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order requires at least one item")
	}

	ids := make([]uuid.UUID, 0, len(input.Items))
	qtyByProduct := make(map[uuid.UUID]int, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item product id required")
		}
		if item.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if _, seen := qtyByProduct[item.ProductID]; seen {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in order items")
		}
		ids = append(ids, item.ProductID)
		qtyByProduct[item.ProductID] = item.Quantity
	}

	products, err := s.products.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	if len(products) != len(ids) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "one or more products are unavailable")
	}

	var created *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(products))
		for _, product := range products {
			qty := qtyByProduct[product.ID]
			subtotal := product.PriceUSD.Mul(decimal.NewFromInt(int64(qty)))
			total = total.Add(subtotal)
			items = append(items, models.OrderItem{
				ProductID:    product.ID,
				Name:         product.Name,
				Quantity:     qty,
				UnitPriceUSD: product.PriceUSD,
				SubtotalUSD:  subtotal,
			})
		}

		order := &models.Order{
			ClientID: input.ClientID,
			Status:   enums.OrderStatusPendiente,
			TotalUSD: total,
			Notes:    input.Notes,
		}
		order, err := repo.Create(ctx, order)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := repo.CreateItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		order.Items = items
		created = order

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ClientID, enums.RoleClient),
			Data: payloads.OrderCreatedEvent{
				OrderID:  order.ID,
				ClientID: order.ClientID,
				Status:   order.Status,
				TotalUSD: order.TotalUSD,
				Items:    len(items),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, input GetOrderInput) (*OrderDetail, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if input.Actor.Role != enums.RoleAdmin && order.ClientID != input.Actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return &OrderDetail{
		Order:        *order,
		RemainingUSD: order.RemainingUSD(),
	}, nil
}

func (s *service) List(ctx context.Context, input ListOrdersInput) (*OrderList, error) {
	filters := ListFilters{Status: input.Status}
	if input.Actor.Role != enums.RoleAdmin {
		if input.Actor.UserID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
		}
		clientID := input.Actor.UserID
		filters.ClientID = &clientID
	}

	rows, next, err := s.repo.List(ctx, filters, input.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	items := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		items = append(items, summarize(row))
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &OrderList{Items: items, Cursor: cursor}, nil
}

func (s *service) Approve(ctx context.Context, input DecisionInput) error {
	return s.transition(ctx, input.OrderID, input.Actor, enums.OrderStatusPorPagar, "", true)
}

func (s *service) Reject(ctx context.Context, input RejectInput) error {
	if input.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	return s.transition(ctx, input.OrderID, input.Actor, enums.OrderStatusRechazado, input.Reason, true)
}

func (s *service) Complete(ctx context.Context, input DecisionInput) error {
	return s.transition(ctx, input.OrderID, input.Actor, enums.OrderStatusCompletado, "", true)
}

func (s *service) Cancel(ctx context.Context, input CancelInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason required")
	}
	if input.Actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if input.Actor.Role != enums.RoleAdmin && order.ClientID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if !cancellableStatuses[order.Status] {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot be canceled in current state")
		}
		return s.applyTransition(ctx, tx, repo, order, enums.OrderStatusCancelado, input.Reason, input.Actor)
	})
}

func (s *service) OverrideStatus(ctx context.Context, input OverrideStatusInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order status %q", input.Status))
	}
	if input.Actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == input.Status {
			return nil
		}
		if !CanOverride(order.Status, input.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "terminal orders cannot be overridden")
		}
		return s.applyTransition(ctx, tx, repo, order, input.Status, "", input.Actor)
	})
}

func (s *service) Delete(ctx context.Context, input DecisionInput) error {
	if input.OrderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor.UserID, input.Actor.Role),
			Data: payloads.OrderDeletedEvent{
				OrderID:   order.ID,
				ClientID:  order.ClientID,
				DeletedAt: time.Now().UTC(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

// transition runs the regular pipeline moves that only admins may trigger.
func (s *service) transition(ctx context.Context, orderID uuid.UUID, actor Actor, target enums.OrderStatus, reason string, adminOnly bool) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if adminOnly && actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == target {
			return nil
		}
		if !CanTransition(order.Status, target) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("transition %s -> %s not allowed", order.Status, target))
		}
		return s.applyTransition(ctx, tx, repo, order, target, reason, actor)
	})
}

func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, target enums.OrderStatus, reason string, actor Actor) error {
	now := time.Now().UTC()
	updates := map[string]any{"status": target}
	switch target {
	case enums.OrderStatusRechazado, enums.OrderStatusCancelado:
		updates["decided_at"] = now
		if reason != "" {
			updates["notes"] = reason
		}
	case enums.OrderStatusCompletado:
		updates["completed_at"] = now
	}
	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	prev := order.Status
	order.Status = target
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderUpdated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         buildActor(actor.UserID, actor.Role),
		Data: payloads.OrderUpdatedEvent{
			OrderID:      order.ID,
			ClientID:     order.ClientID,
			Status:       target,
			PrevStatus:   prev,
			PaidTotalUSD: order.PaidTotalUSD,
			RemainingUSD: order.RemainingUSD(),
			Reason:       reason,
		},
	}
	return s.outbox.Emit(ctx, tx, event)
}

func buildActor(userID uuid.UUID, role enums.Role) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: userID,
		Role:   string(role),
	}
}

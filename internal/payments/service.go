package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/internal/orders"
	"github.com/jpcontreras/vendia-backend/pkg/currency"
	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	pkgerrors "github.com/jpcontreras/vendia-backend/pkg/errors"
	"github.com/jpcontreras/vendia-backend/pkg/outbox"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type ratesProvider interface {
	ActiveRates(ctx context.Context) (currency.Rates, error)
}

// payableStatuses are the order states that accept new payments.
var payableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusPorPagar: true,
	enums.OrderStatusAbonado:  true,
}

// Service defines the payment ledger operations.
type Service interface {
	Submit(ctx context.Context, input SubmitPaymentInput) (*models.Payment, error)
	Verify(ctx context.Context, input VerifyPaymentInput) error
	Reject(ctx context.Context, input RejectPaymentInput) error
	Delete(ctx context.Context, input DeletePaymentInput) error
}

type service struct {
	repo      Repository
	orderRepo orders.Repository
	rates     ratesProvider
	tx        txRunner
	outbox    outboxPublisher
	tolerance decimal.Decimal
}

// NewService builds a payment service with the required dependencies.
func NewService(repo Repository, orderRepo orders.Repository, rates ratesProvider, tx txRunner, outbox outboxPublisher, tolerance decimal.Decimal) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if rates == nil {
		return nil, fmt.Errorf("rates provider required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if tolerance.IsNegative() {
		return nil, fmt.Errorf("tolerance must be non-negative")
	}
	return &service{
		repo:      repo,
		orderRepo: orderRepo,
		rates:     rates,
		tx:        tx,
		outbox:    outbox,
		tolerance: tolerance,
	}, nil
}

func (s *service) Submit(ctx context.Context, input SubmitPaymentInput) (*models.Payment, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment method %q", input.Method))
	}
	if !input.Currency.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid currency %q", input.Currency))
	}
	if input.Method.RequiresReceipt() && (input.ReceiptURL == nil || *input.ReceiptURL == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "receipt required for non-cash payments")
	}

	rates, err := s.rates.ActiveRates(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange rates")
	}
	converted, err := currency.ToUSD(rates, input.Amount, input.Currency)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "convert payment amount")
	}

	var created *models.Payment
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if input.Actor.Role != enums.RoleAdmin && order.ClientID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if !payableStatuses[order.Status] {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not accepting payments")
		}
		// The tolerance check runs on the full-precision conversion. Only the
		// persisted ledger amount is rounded to cents.
		if converted.GreaterThan(order.RemainingUSD().Add(s.tolerance)) {
			return pkgerrors.New(pkgerrors.CodeLedgerViolation, "payment exceeds remaining balance").
				WithDetails(map[string]any{
					"remaining_usd": order.RemainingUSD().String(),
					"amount_usd":    converted.String(),
				})
		}
		amountUSD := currency.Round2(converted)

		payment := &models.Payment{
			OrderID:     order.ID,
			SubmittedBy: input.Actor.UserID,
			Method:      input.Method,
			Status:      enums.PaymentStatusPending,
			Currency:    input.Currency,
			Amount:      input.Amount,
			AmountUSD:   amountUSD,
			Reference:   input.Reference,
			ReceiptURL:  input.ReceiptURL,
			Note:        input.Note,
		}
		payment, err = s.repo.WithTx(tx).Create(ctx, payment)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		created = payment

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentSubmitted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.PaymentSubmittedEvent{
				PaymentID: payment.ID,
				OrderID:   order.ID,
				ClientID:  order.ClientID,
				Method:    payment.Method,
				Currency:  payment.Currency,
				Amount:    payment.Amount,
				AmountUSD: payment.AmountUSD,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Verify(ctx context.Context, input VerifyPaymentInput) error {
	if input.PaymentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if input.Actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, input.PaymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already decided")
		}

		orderRepo := s.orderRepo.WithTx(tx)
		order, err := orderRepo.FindByIDForUpdate(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":      enums.PaymentStatusVerified,
			"verified_by": input.Actor.UserID,
			"decided_at":  now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify payment")
		}

		paidTotal, err := repo.SumVerifiedByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute paid total")
		}
		remaining := order.TotalUSD.Sub(paidTotal)
		if remaining.LessThan(s.tolerance.Neg()) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "verification would overpay the order")
		}

		orderUpdates := map[string]any{"paid_total_usd": paidTotal}
		prevStatus := order.Status
		nextStatus := order.Status
		if payableStatuses[order.Status] {
			if remaining.LessThanOrEqual(s.tolerance) {
				nextStatus = enums.OrderStatusPagado
			} else {
				nextStatus = enums.OrderStatusAbonado
			}
		}
		if nextStatus != prevStatus {
			orderUpdates["status"] = nextStatus
		}
		if err := orderRepo.Update(ctx, order.ID, orderUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order balance")
		}
		order.PaidTotalUSD = paidTotal
		order.Status = nextStatus

		verified := outbox.DomainEvent{
			EventType:     enums.EventPaymentVerified,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.PaymentVerifiedEvent{
				PaymentID:    payment.ID,
				OrderID:      order.ID,
				ClientID:     order.ClientID,
				AmountUSD:    payment.AmountUSD,
				PaidTotalUSD: paidTotal,
				VerifiedBy:   input.Actor.UserID,
			},
		}
		if err := s.outbox.Emit(ctx, tx, verified); err != nil {
			return err
		}
		if nextStatus == prevStatus {
			return nil
		}
		updated := outbox.DomainEvent{
			EventType:     enums.EventOrderUpdated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.OrderUpdatedEvent{
				OrderID:      order.ID,
				ClientID:     order.ClientID,
				Status:       nextStatus,
				PrevStatus:   prevStatus,
				PaidTotalUSD: paidTotal,
				RemainingUSD: order.RemainingUSD(),
			},
		}
		return s.outbox.Emit(ctx, tx, updated)
	})
}

func (s *service) Reject(ctx context.Context, input RejectPaymentInput) error {
	if input.PaymentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if input.Reason == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "rejection reason required")
	}
	if input.Actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, input.PaymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already decided")
		}

		order, err := s.orderRepo.WithTx(tx).FindByID(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		now := time.Now().UTC()
		if err := repo.Update(ctx, payment.ID, map[string]any{
			"status":           enums.PaymentStatusRejected,
			"rejection_reason": input.Reason,
			"decided_at":       now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reject payment")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentRejected,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.PaymentRejectedEvent{
				PaymentID:  payment.ID,
				OrderID:    payment.OrderID,
				ClientID:   order.ClientID,
				Reason:     input.Reason,
				RejectedBy: input.Actor.UserID,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func (s *service) Delete(ctx context.Context, input DeletePaymentInput) error {
	if input.PaymentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment id required")
	}
	if input.Actor.Role != enums.RoleAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByID(ctx, input.PaymentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
		}
		if payment.Status == enums.PaymentStatusVerified {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "verified payments cannot be deleted")
		}

		order, err := s.orderRepo.WithTx(tx).FindByID(ctx, payment.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		if err := repo.Delete(ctx, payment.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentDeleted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: payloads.PaymentDeletedEvent{
				PaymentID: payment.ID,
				OrderID:   payment.OrderID,
				ClientID:  order.ClientID,
				DeletedAt: time.Now().UTC(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
}

func buildActor(actor Actor) *outbox.ActorRef {
	return &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   string(actor.Role),
	}
}

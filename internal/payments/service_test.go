package payments

import (
	"context"
	"testing"
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
	"github.com/jpcontreras/vendia-backend/pkg/pagination"
)

type stubPaymentsRepo struct {
	payments map[uuid.UUID]*models.Payment
	deleted  []uuid.UUID
}

func newStubPaymentsRepo(rows ...*models.Payment) *stubPaymentsRepo {
	repo := &stubPaymentsRepo{payments: make(map[uuid.UUID]*models.Payment)}
	for _, row := range rows {
		repo.payments[row.ID] = row
	}
	return repo
}

func (s *stubPaymentsRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPaymentsRepo) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	s.payments[payment.ID] = payment
	return payment, nil
}

func (s *stubPaymentsRepo) FindByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	payment, ok := s.payments[paymentID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return payment, nil
}

func (s *stubPaymentsRepo) Update(ctx context.Context, paymentID uuid.UUID, updates map[string]any) error {
	payment, ok := s.payments[paymentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if status, ok := updates["status"].(enums.PaymentStatus); ok {
		payment.Status = status
	}
	if reason, ok := updates["rejection_reason"].(string); ok {
		payment.RejectionReason = &reason
	}
	if verifiedBy, ok := updates["verified_by"].(uuid.UUID); ok {
		payment.VerifiedBy = &verifiedBy
	}
	return nil
}

func (s *stubPaymentsRepo) Delete(ctx context.Context, paymentID uuid.UUID) error {
	if _, ok := s.payments[paymentID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.payments, paymentID)
	s.deleted = append(s.deleted, paymentID)
	return nil
}

func (s *stubPaymentsRepo) SumVerifiedByOrder(ctx context.Context, orderID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, payment := range s.payments {
		if payment.OrderID == orderID && payment.Status == enums.PaymentStatusVerified {
			total = total.Add(payment.AmountUSD)
		}
	}
	return total, nil
}

type stubOrderRepo struct {
	order        *models.Order
	orderUpdates map[string]any
}

func (s *stubOrderRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrderRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrderRepo) CreateItems(ctx context.Context, items []models.OrderItem) error {
	panic("not implemented")
}

func (s *stubOrderRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if s.order == nil || s.order.ID != orderID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.order, nil
}

func (s *stubOrderRepo) FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, orderID)
}

func (s *stubOrderRepo) List(ctx context.Context, filters orders.ListFilters, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	panic("not implemented")
}

func (s *stubOrderRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if s.order == nil || s.order.ID != orderID {
		return gorm.ErrRecordNotFound
	}
	s.orderUpdates = updates
	if paid, ok := updates["paid_total_usd"].(decimal.Decimal); ok {
		s.order.PaidTotalUSD = paid
	}
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		s.order.Status = status
	}
	return nil
}

func (s *stubOrderRepo) Delete(ctx context.Context, orderID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubOrderRepo) FindStaleUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	return nil, nil
}

type stubRates struct {
	rates currency.Rates
	err   error
}

func (s *stubRates) ActiveRates(ctx context.Context) (currency.Rates, error) {
	if s.err != nil {
		return currency.Rates{}, s.err
	}
	return s.rates, nil
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func defaultRates() currency.Rates {
	return currency.Rates{
		Secondary: decimal.RequireFromString("36.5"),
		Tertiary:  decimal.RequireFromString("4000"),
	}
}

func newTestService(t *testing.T, repo *stubPaymentsRepo, orderRepo *stubOrderRepo, rates *stubRates, publisher *stubOutboxPublisher) Service {
	t.Helper()
	if rates == nil {
		rates = &stubRates{rates: defaultRates()}
	}
	svc, err := NewService(repo, orderRepo, rates, stubTxRunner{}, publisher, decimal.RequireFromString("0.01"))
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func eventTypes(events []outbox.DomainEvent) []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(events))
	for _, event := range events {
		types = append(types, event.EventType)
	}
	return types
}

func TestSubmitConvertsCurrencyAndFreezesSnapshot(t *testing.T) {
	clientID := uuid.New()
	order := &models.Order{
		ID:       uuid.New(),
		ClientID: clientID,
		Status:   enums.OrderStatusPorPagar,
		TotalUSD: decimal.RequireFromString("100.00"),
	}
	repo := newStubPaymentsRepo()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubOrderRepo{order: order}, nil, publisher)

	receipt := "receipts/transfer-001.jpg"
	payment, err := svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:    order.ID,
		Actor:      Actor{UserID: clientID, Role: enums.RoleClient},
		Amount:     decimal.RequireFromString("730"),
		Currency:   enums.CurrencyVES,
		Method:     enums.PaymentMethodTransfer,
		ReceiptURL: &receipt,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if payment.Status != enums.PaymentStatusPending {
		t.Fatalf("unexpected status %s", payment.Status)
	}
	if !payment.AmountUSD.Equal(decimal.RequireFromString("20.00")) {
		t.Fatalf("unexpected canonical amount %s", payment.AmountUSD)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventPaymentSubmitted {
		t.Fatalf("unexpected events %v", eventTypes(publisher.events))
	}
}

func TestSubmitRequiresReceiptForTransfers(t *testing.T) {
	order := &models.Order{
		ID:       uuid.New(),
		ClientID: uuid.New(),
		Status:   enums.OrderStatusPorPagar,
		TotalUSD: decimal.RequireFromString("50.00"),
	}
	svc := newTestService(t, newStubPaymentsRepo(), &stubOrderRepo{order: order}, nil, &stubOutboxPublisher{})

	_, err := svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:  order.ID,
		Actor:    Actor{UserID: order.ClientID, Role: enums.RoleClient},
		Amount:   decimal.RequireFromString("10"),
		Currency: enums.CurrencyUSD,
		Method:   enums.PaymentMethodTransfer,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSubmitCashWithoutReceipt(t *testing.T) {
	order := &models.Order{
		ID:       uuid.New(),
		ClientID: uuid.New(),
		Status:   enums.OrderStatusAbonado,
		TotalUSD: decimal.RequireFromString("50.00"),
	}
	svc := newTestService(t, newStubPaymentsRepo(), &stubOrderRepo{order: order}, nil, &stubOutboxPublisher{})

	_, err := svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:  order.ID,
		Actor:    Actor{UserID: order.ClientID, Role: enums.RoleClient},
		Amount:   decimal.RequireFromString("10"),
		Currency: enums.CurrencyUSD,
		Method:   enums.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
}

func TestSubmitRejectsOverpayment(t *testing.T) {
	order := &models.Order{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		Status:       enums.OrderStatusAbonado,
		TotalUSD:     decimal.RequireFromString("100.00"),
		PaidTotalUSD: decimal.RequireFromString("95.00"),
	}
	svc := newTestService(t, newStubPaymentsRepo(), &stubOrderRepo{order: order}, nil, &stubOutboxPublisher{})

	_, err := svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:  order.ID,
		Actor:    Actor{UserID: order.ClientID, Role: enums.RoleClient},
		Amount:   decimal.RequireFromString("10.00"),
		Currency: enums.CurrencyUSD,
		Method:   enums.PaymentMethodCash,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeLedgerViolation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestSubmitToleranceBoundary(t *testing.T) {
	newOrder := func() *models.Order {
		return &models.Order{
			ID:           uuid.New(),
			ClientID:     uuid.New(),
			Status:       enums.OrderStatusAbonado,
			TotalUSD:     decimal.RequireFromString("100.00"),
			PaidTotalUSD: decimal.RequireFromString("60.00"),
		}
	}

	// Remaining 40.00, tolerance 0.01: 40.005 fits, 40.02 does not.
	order := newOrder()
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, newStubPaymentsRepo(), &stubOrderRepo{order: order}, nil, publisher)
	payment, err := svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:  order.ID,
		Actor:    Actor{UserID: order.ClientID, Role: enums.RoleClient},
		Amount:   decimal.RequireFromString("40.005"),
		Currency: enums.CurrencyUSD,
		Method:   enums.PaymentMethodCash,
	})
	if err != nil {
		t.Fatalf("amount within tolerance must be accepted, got %v", err)
	}
	if !payment.AmountUSD.Equal(decimal.RequireFromString("40.01")) {
		t.Fatalf("stored amount must be rounded to cents, got %s", payment.AmountUSD)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventPaymentSubmitted {
		t.Fatalf("unexpected events %v", eventTypes(publisher.events))
	}

	order = newOrder()
	svc = newTestService(t, newStubPaymentsRepo(), &stubOrderRepo{order: order}, nil, &stubOutboxPublisher{})
	_, err = svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:  order.ID,
		Actor:    Actor{UserID: order.ClientID, Role: enums.RoleClient},
		Amount:   decimal.RequireFromString("40.02"),
		Currency: enums.CurrencyUSD,
		Method:   enums.PaymentMethodCash,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeLedgerViolation {
		t.Fatalf("amount beyond tolerance must be rejected, got %v", err)
	}
}

func TestSubmitAgainstPendingOrderConflicts(t *testing.T) {
	order := &models.Order{
		ID:       uuid.New(),
		ClientID: uuid.New(),
		Status:   enums.OrderStatusPendiente,
		TotalUSD: decimal.RequireFromString("100.00"),
	}
	svc := newTestService(t, newStubPaymentsRepo(), &stubOrderRepo{order: order}, nil, &stubOutboxPublisher{})

	_, err := svc.Submit(context.Background(), SubmitPaymentInput{
		OrderID:  order.ID,
		Actor:    Actor{UserID: order.ClientID, Role: enums.RoleClient},
		Amount:   decimal.RequireFromString("10"),
		Currency: enums.CurrencyUSD,
		Method:   enums.PaymentMethodCash,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestVerifyMaterializesPaidTotalAndAdvancesStatus(t *testing.T) {
	order := &models.Order{
		ID:       uuid.New(),
		ClientID: uuid.New(),
		Status:   enums.OrderStatusPorPagar,
		TotalUSD: decimal.RequireFromString("100.00"),
	}
	payment := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusPending,
		AmountUSD: decimal.RequireFromString("40.00"),
	}
	repo := newStubPaymentsRepo(payment)
	orderRepo := &stubOrderRepo{order: order}
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, orderRepo, nil, publisher)

	adminID := uuid.New()
	err := svc.Verify(context.Background(), VerifyPaymentInput{
		PaymentID: payment.ID,
		Actor:     Actor{UserID: adminID, Role: enums.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if payment.Status != enums.PaymentStatusVerified {
		t.Fatalf("unexpected payment status %s", payment.Status)
	}
	if !order.PaidTotalUSD.Equal(decimal.RequireFromString("40.00")) {
		t.Fatalf("unexpected paid total %s", order.PaidTotalUSD)
	}
	if order.Status != enums.OrderStatusAbonado {
		t.Fatalf("unexpected order status %s", order.Status)
	}
	types := eventTypes(publisher.events)
	if len(types) != 2 || types[0] != enums.EventPaymentVerified || types[1] != enums.EventOrderUpdated {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestVerifyFinalPaymentMarksOrderPagado(t *testing.T) {
	order := &models.Order{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		Status:       enums.OrderStatusAbonado,
		TotalUSD:     decimal.RequireFromString("100.00"),
		PaidTotalUSD: decimal.RequireFromString("60.00"),
	}
	earlier := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusVerified,
		AmountUSD: decimal.RequireFromString("60.00"),
	}
	final := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusPending,
		AmountUSD: decimal.RequireFromString("40.00"),
	}
	repo := newStubPaymentsRepo(earlier, final)
	orderRepo := &stubOrderRepo{order: order}
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, orderRepo, nil, publisher)

	err := svc.Verify(context.Background(), VerifyPaymentInput{
		PaymentID: final.ID,
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if order.Status != enums.OrderStatusPagado {
		t.Fatalf("unexpected order status %s", order.Status)
	}
	if !order.PaidTotalUSD.Equal(order.TotalUSD) {
		t.Fatalf("unexpected paid total %s", order.PaidTotalUSD)
	}
}

func TestVerifyConflictsWhenBalanceWouldGoNegative(t *testing.T) {
	order := &models.Order{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		Status:       enums.OrderStatusAbonado,
		TotalUSD:     decimal.RequireFromString("50.00"),
		PaidTotalUSD: decimal.RequireFromString("30.00"),
	}
	// A racing admin already verified 30.00; verifying another 30.00 would
	// drive the remaining balance to -10.00.
	earlier := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusVerified,
		AmountUSD: decimal.RequireFromString("30.00"),
	}
	racing := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusPending,
		AmountUSD: decimal.RequireFromString("30.00"),
	}
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, newStubPaymentsRepo(earlier, racing), &stubOrderRepo{order: order}, nil, publisher)

	err := svc.Verify(context.Background(), VerifyPaymentInput{
		PaymentID: racing.ID,
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("overpaying verification must conflict, got %v", err)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("conflicting verification must not emit events, got %v", eventTypes(publisher.events))
	}
}

func TestVerifyDecidedPaymentConflicts(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusAbonado, TotalUSD: decimal.RequireFromString("10.00")}
	payment := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusRejected,
		AmountUSD: decimal.RequireFromString("10.00"),
	}
	svc := newTestService(t, newStubPaymentsRepo(payment), &stubOrderRepo{order: order}, nil, &stubOutboxPublisher{})

	err := svc.Verify(context.Background(), VerifyPaymentInput{
		PaymentID: payment.ID,
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestVerifyRequiresAdmin(t *testing.T) {
	svc := newTestService(t, newStubPaymentsRepo(), &stubOrderRepo{}, nil, &stubOutboxPublisher{})
	err := svc.Verify(context.Background(), VerifyPaymentInput{
		PaymentID: uuid.New(),
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleClient},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRejectPendingPaymentStoresReason(t *testing.T) {
	order := &models.Order{ID: uuid.New(), ClientID: uuid.New(), Status: enums.OrderStatusAbonado, TotalUSD: decimal.RequireFromString("10.00")}
	payment := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusPending,
		AmountUSD: decimal.RequireFromString("10.00"),
	}
	repo := newStubPaymentsRepo(payment)
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubOrderRepo{order: order}, nil, publisher)

	err := svc.Reject(context.Background(), RejectPaymentInput{
		PaymentID: payment.ID,
		Reason:    "referencia no coincide",
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if payment.Status != enums.PaymentStatusRejected {
		t.Fatalf("unexpected status %s", payment.Status)
	}
	if payment.RejectionReason == nil || *payment.RejectionReason != "referencia no coincide" {
		t.Fatalf("unexpected reason %v", payment.RejectionReason)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventPaymentRejected {
		t.Fatalf("unexpected events %v", eventTypes(publisher.events))
	}
	if !order.PaidTotalUSD.IsZero() {
		t.Fatalf("rejection must not touch balances, got %s", order.PaidTotalUSD)
	}
}

func TestRejectRequiresReason(t *testing.T) {
	svc := newTestService(t, newStubPaymentsRepo(), &stubOrderRepo{}, nil, &stubOutboxPublisher{})
	err := svc.Reject(context.Background(), RejectPaymentInput{
		PaymentID: uuid.New(),
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDeleteVerifiedPaymentForbidden(t *testing.T) {
	order := &models.Order{ID: uuid.New(), Status: enums.OrderStatusPagado, TotalUSD: decimal.RequireFromString("10.00")}
	payment := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusVerified,
		AmountUSD: decimal.RequireFromString("10.00"),
	}
	repo := newStubPaymentsRepo(payment)
	svc := newTestService(t, repo, &stubOrderRepo{order: order}, nil, &stubOutboxPublisher{})

	err := svc.Delete(context.Background(), DeletePaymentInput{
		PaymentID: payment.ID,
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("unexpected error %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatal("verified payment must not be deleted")
	}
}

func TestDeletePendingPaymentEmitsEvent(t *testing.T) {
	order := &models.Order{ID: uuid.New(), ClientID: uuid.New(), Status: enums.OrderStatusAbonado, TotalUSD: decimal.RequireFromString("10.00")}
	payment := &models.Payment{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Status:    enums.PaymentStatusPending,
		AmountUSD: decimal.RequireFromString("10.00"),
	}
	repo := newStubPaymentsRepo(payment)
	publisher := &stubOutboxPublisher{}
	svc := newTestService(t, repo, &stubOrderRepo{order: order}, nil, publisher)

	err := svc.Delete(context.Background(), DeletePaymentInput{
		PaymentID: payment.ID,
		Actor:     Actor{UserID: uuid.New(), Role: enums.RoleAdmin},
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatal("expected delete call")
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventPaymentDeleted {
		t.Fatalf("unexpected events %v", eventTypes(publisher.events))
	}
}

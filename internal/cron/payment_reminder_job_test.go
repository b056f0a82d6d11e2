package cron

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/outbox"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/payloads"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubStaleOrderFinder struct {
	orders []models.Order
	cutoff time.Time
}

func (s *stubStaleOrderFinder) FindStaleUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	s.cutoff = cutoff
	return s.orders, nil
}

type stubReminderEmitter struct {
	events []outbox.DomainEvent
	seen   map[uuid.UUID]bool
}

func (s *stubReminderEmitter) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.seen == nil {
		s.seen = map[uuid.UUID]bool{}
	}
	if s.seen[event.AggregateID] {
		return nil
	}
	s.seen[event.AggregateID] = true
	s.events = append(s.events, event)
	return nil
}

func TestPaymentReminderEmitsPerStaleOrder(t *testing.T) {
	stale := models.Order{
		ID:           uuid.New(),
		ClientID:     uuid.New(),
		Status:       enums.OrderStatusPorPagar,
		TotalUSD:     decimal.RequireFromString("100.00"),
		PaidTotalUSD: decimal.RequireFromString("25.00"),
		UpdatedAt:    time.Now().UTC().Add(-96 * time.Hour),
	}
	finder := &stubStaleOrderFinder{orders: []models.Order{stale}}
	emitter := &stubReminderEmitter{}

	job, err := NewPaymentReminderJob(PaymentReminderJobParams{
		Logger:        testLogger(),
		DB:            stubTxRunner{},
		Orders:        finder,
		Outbox:        emitter,
		ReminderAfter: 72 * time.Hour,
	})
	if err != nil {
		t.Fatalf("job constructor failed: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(emitter.events) != 1 {
		t.Fatalf("expected one reminder event, got %d", len(emitter.events))
	}
	event := emitter.events[0]
	if event.EventType != enums.EventPaymentReminder || event.AggregateID != stale.ID {
		t.Fatalf("unexpected event %+v", event)
	}
	payload, ok := event.Data.(payloads.PaymentReminderEvent)
	if !ok {
		t.Fatalf("unexpected payload type %T", event.Data)
	}
	if !payload.RemainingUSD.Equal(decimal.RequireFromString("75.00")) {
		t.Fatalf("unexpected remaining %s", payload.RemainingUSD)
	}
}

func TestPaymentReminderRerunDoesNotDuplicate(t *testing.T) {
	stale := models.Order{
		ID:       uuid.New(),
		ClientID: uuid.New(),
		TotalUSD: decimal.RequireFromString("50.00"),
	}
	finder := &stubStaleOrderFinder{orders: []models.Order{stale}}
	emitter := &stubReminderEmitter{}

	job, _ := NewPaymentReminderJob(PaymentReminderJobParams{
		Logger: testLogger(),
		DB:     stubTxRunner{},
		Orders: finder,
		Outbox: emitter,
	})

	for i := 0; i < 3; i++ {
		if err := job.Run(context.Background()); err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
	}
	if len(emitter.events) != 1 {
		t.Fatalf("reminder must be emitted once, got %d", len(emitter.events))
	}
}

func TestPaymentReminderUsesConfiguredWindow(t *testing.T) {
	finder := &stubStaleOrderFinder{}
	job, _ := NewPaymentReminderJob(PaymentReminderJobParams{
		Logger:        testLogger(),
		DB:            stubTxRunner{},
		Orders:        finder,
		Outbox:        &stubReminderEmitter{},
		ReminderAfter: 24 * time.Hour,
	})

	before := time.Now().UTC().Add(-24 * time.Hour)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if finder.cutoff.After(before.Add(time.Minute)) || finder.cutoff.Before(before.Add(-time.Minute)) {
		t.Fatalf("unexpected cutoff %s", finder.cutoff)
	}
}

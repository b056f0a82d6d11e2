package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	"github.com/jpcontreras/vendia-backend/pkg/outbox"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/payloads"
)

const defaultReminderAfter = 72 * time.Hour

// PaymentReminderJobParams configures the unpaid balance reminder job.
type PaymentReminderJobParams struct {
	Logger        *logger.Logger
	DB            txRunner
	Orders        staleOrderFinder
	Outbox        reminderEmitter
	ReminderAfter time.Duration
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type staleOrderFinder interface {
	FindStaleUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type reminderEmitter interface {
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// NewPaymentReminderJob constructs the reminder job. Orders that have carried
// an outstanding balance past the configured window get a single reminder
// event; the outbox uniqueness check keeps re-runs from duplicating it.
func NewPaymentReminderJob(params PaymentReminderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	after := params.ReminderAfter
	if after <= 0 {
		after = defaultReminderAfter
	}
	return &paymentReminderJob{
		logg:   params.Logger,
		db:     params.DB,
		orders: params.Orders,
		outbox: params.Outbox,
		after:  after,
		now:    time.Now,
	}, nil
}

type paymentReminderJob struct {
	logg   *logger.Logger
	db     txRunner
	orders staleOrderFinder
	outbox reminderEmitter
	after  time.Duration
	now    func() time.Time
}

func (j *paymentReminderJob) Name() string { return "payment-reminder" }

func (j *paymentReminderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	orders, err := j.orders.FindStaleUnpaidBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale orders: %w", err)
	}

	count := 0
	for _, order := range orders {
		if err := j.remind(ctx, order); err != nil {
			return err
		}
		count++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"count":  count,
	})
	j.logg.Info(logCtx, "payment reminder loop complete")
	return nil
}

func (j *paymentReminderJob) remind(ctx context.Context, order models.Order) error {
	return j.db.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentReminder,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.PaymentReminderEvent{
				OrderID:      order.ID,
				ClientID:     order.ClientID,
				RemainingUSD: order.RemainingUSD(),
				PendingSince: order.UpdatedAt,
			},
			Version:    1,
			OccurredAt: j.now().UTC(),
		}
		return j.outbox.EmitIfNotExists(ctx, tx, event)
	})
}

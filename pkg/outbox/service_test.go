package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newOutboxTestService(db *gorm.DB) *Service {
	logg := logger.New(logger.Options{ServiceName: "outbox-test", Output: io.Discard})
	return NewService(NewRepository(db), logg)
}

func countOutboxRows(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&models.OutboxEvent{}).Count(&count).Error)
	return count
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc := newOutboxTestService(setupOutboxTestDB(t))

	err := svc.Emit(context.Background(), nil, DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
	})
	require.Error(t, err)
}

func TestEmitWrapsPayloadInEnvelope(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := newOutboxTestService(db)
	aggregateID := uuid.New()

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventPaymentSubmitted,
			AggregateType: enums.AggregatePayment,
			AggregateID:   aggregateID,
			Version:       1,
			Data:          map[string]string{"payment_id": aggregateID.String()},
		})
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, db.First(&row).Error)
	assert.Equal(t, enums.EventPaymentSubmitted, row.EventType)
	assert.Equal(t, aggregateID, row.AggregateID)

	var envelope PayloadEnvelope
	require.NoError(t, json.Unmarshal(row.Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	assert.NotEmpty(t, envelope.EventID)
	assert.False(t, envelope.OccurredAt.IsZero())
}

func TestEmitIfNotExistsSkipsQueuedDuplicate(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := newOutboxTestService(db)
	aggregateID := uuid.New()

	event := DomainEvent{
		EventType:     enums.EventPaymentReminder,
		AggregateType: enums.AggregatePayment,
		AggregateID:   aggregateID,
		Version:       1,
		Data:          map[string]string{"payment_id": aggregateID.String()},
	}

	for range [2]struct{}{} {
		err := db.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		})
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, countOutboxRows(t, db))

	other := event
	other.AggregateID = uuid.New()
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, other)
	})
	require.NoError(t, err)
	assert.EqualValues(t, 2, countOutboxRows(t, db))
}

package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateNotification OutboxAggregateType = "notification"
	AggregateSession      OutboxAggregateType = "session"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateNotification,
	AggregateSession,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderUpdated       OutboxEventType = "order_updated"
	EventOrderDeleted       OutboxEventType = "order_deleted"
	EventPaymentSubmitted   OutboxEventType = "payment_submitted"
	EventPaymentVerified    OutboxEventType = "payment_verified"
	EventPaymentRejected    OutboxEventType = "payment_rejected"
	EventPaymentDeleted     OutboxEventType = "payment_deleted"
	EventPaymentReminder    OutboxEventType = "payment_reminder"
	EventSessionRevoked     OutboxEventType = "session_revoked"
	EventNotificationPushed OutboxEventType = "notification_pushed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderUpdated,
	EventOrderDeleted,
	EventPaymentSubmitted,
	EventPaymentVerified,
	EventPaymentRejected,
	EventPaymentDeleted,
	EventPaymentReminder,
	EventSessionRevoked,
	EventNotificationPushed,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

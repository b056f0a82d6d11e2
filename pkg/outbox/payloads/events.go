package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jpcontreras/vendia-backend/pkg/enums"
)

// OrderCreatedEvent signals a client placed a new order.
type OrderCreatedEvent struct {
	OrderID  uuid.UUID         `json:"order_id"`
	ClientID uuid.UUID         `json:"client_id"`
	Status   enums.OrderStatus `json:"status"`
	TotalUSD decimal.Decimal   `json:"total_usd"`
	Items    int               `json:"items"`
}

// OrderUpdatedEvent is emitted on every order status transition.
type OrderUpdatedEvent struct {
	OrderID      uuid.UUID         `json:"order_id"`
	ClientID     uuid.UUID         `json:"client_id"`
	Status       enums.OrderStatus `json:"status"`
	PrevStatus   enums.OrderStatus `json:"prev_status"`
	PaidTotalUSD decimal.Decimal   `json:"paid_total_usd"`
	RemainingUSD decimal.Decimal   `json:"remaining_usd"`
	Reason       string            `json:"reason,omitempty"`
}

// OrderDeletedEvent reports an order and its payments were removed.
type OrderDeletedEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	ClientID  uuid.UUID `json:"client_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// PaymentSubmittedEvent signals a client reported a new payment.
type PaymentSubmittedEvent struct {
	PaymentID uuid.UUID           `json:"payment_id"`
	OrderID   uuid.UUID           `json:"order_id"`
	ClientID  uuid.UUID           `json:"client_id"`
	Method    enums.PaymentMethod `json:"method"`
	Currency  enums.Currency      `json:"currency"`
	Amount    decimal.Decimal     `json:"amount"`
	AmountUSD decimal.Decimal     `json:"amount_usd"`
}

// PaymentVerifiedEvent is emitted when an admin verifies a payment.
type PaymentVerifiedEvent struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	OrderID      uuid.UUID       `json:"order_id"`
	ClientID     uuid.UUID       `json:"client_id"`
	AmountUSD    decimal.Decimal `json:"amount_usd"`
	PaidTotalUSD decimal.Decimal `json:"paid_total_usd"`
	VerifiedBy   uuid.UUID       `json:"verified_by"`
}

// PaymentRejectedEvent is emitted when an admin rejects a payment.
type PaymentRejectedEvent struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	OrderID    uuid.UUID `json:"order_id"`
	ClientID   uuid.UUID `json:"client_id"`
	Reason     string    `json:"reason,omitempty"`
	RejectedBy uuid.UUID `json:"rejected_by"`
}

// PaymentDeletedEvent reports an unverified payment was withdrawn.
type PaymentDeletedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	OrderID   uuid.UUID `json:"order_id"`
	ClientID  uuid.UUID `json:"client_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

// PaymentReminderEvent nudges a client with an outstanding balance.
type PaymentReminderEvent struct {
	OrderID      uuid.UUID       `json:"order_id"`
	ClientID     uuid.UUID       `json:"client_id"`
	RemainingUSD decimal.Decimal `json:"remaining_usd"`
	PendingSince time.Time       `json:"pending_since"`
}

// SessionRevokedEvent tells connected clients to drop their sockets.
type SessionRevokedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	RevokedBy uuid.UUID `json:"revoked_by"`
	RevokedAt time.Time `json:"revoked_at"`
}

// NotificationPushedEvent mirrors a stored notification for realtime fanout.
type NotificationPushedEvent struct {
	NotificationID uuid.UUID              `json:"notification_id"`
	UserID         uuid.UUID              `json:"user_id"`
	Type           enums.NotificationType `json:"type"`
	Title          string                 `json:"title"`
	Message        string                 `json:"message"`
}

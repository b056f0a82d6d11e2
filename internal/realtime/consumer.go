package realtime

import (
	"context"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/jpcontreras/vendia-backend/pkg/db/models"
	"github.com/jpcontreras/vendia-backend/pkg/enums"
	"github.com/jpcontreras/vendia-backend/pkg/logger"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/idempotency"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/payloads"
	"github.com/jpcontreras/vendia-backend/pkg/outbox/registry"
)

const bridgeConsumerName = "realtime-worker"

type notificationWriter interface {
	Create(ctx context.Context, notification *models.Notification) error
}

type adminDirectory interface {
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}

type eventPusher interface {
	SendToUser(userID uuid.UUID, msg Message)
	BroadcastToAdmins(msg Message)
	DisconnectUser(userID uuid.UUID)
}

// Consumer bridges published domain events into socket pushes and stored
// notifications. Events are deduplicated per consumer; there is no replay of
// frames missed while a socket was down, clients refetch on reconnect.
type Consumer struct {
	subscription  *pubsub.Subscriber
	registry      *registry.EventRegistry
	idempotency   *idempotency.Manager
	notifications notificationWriter
	admins        adminDirectory
	hub           eventPusher
	logg          *logger.Logger
}

// NewConsumer builds the realtime bridge consumer.
func NewConsumer(
	subscription *pubsub.Subscriber,
	reg *registry.EventRegistry,
	manager *idempotency.Manager,
	notifications notificationWriter,
	admins adminDirectory,
	hub eventPusher,
	logg *logger.Logger,
) (*Consumer, error) {
	if subscription == nil {
		return nil, fmt.Errorf("realtime subscription required")
	}
	if reg == nil {
		return nil, fmt.Errorf("event registry required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if admins == nil {
		return nil, fmt.Errorf("admin directory required")
	}
	if hub == nil {
		return nil, fmt.Errorf("hub required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		subscription:  subscription,
		registry:      reg,
		idempotency:   manager,
		notifications: notifications,
		admins:        admins,
		hub:           hub,
		logg:          logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	row, err := outboxRowFromMessage(msg)
	if err != nil {
		c.logg.Error(logCtx, "malformed event attributes", err)
		return processResult{ack: true}
	}

	resolved, err := c.registry.Resolve(row)
	if err != nil {
		var nonRetryable registry.NonRetryableError
		if errors.As(err, &nonRetryable) {
			c.logg.Error(logCtx, "skipping undecodable event", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "resolve event failed", err)
		return processResult{nack: true}
	}

	eventID, err := uuid.Parse(resolved.Envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, bridgeConsumerName, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(ctx, row.EventType, resolved.Payload, logCtx); err != nil {
		c.logg.Error(logCtx, "event handling failed", err)
		_ = c.idempotency.Delete(ctx, bridgeConsumerName, eventID)
		return processResult{nack: true}
	}

	return processResult{ack: true}
}

func outboxRowFromMessage(msg *pubsub.Message) (models.OutboxEvent, error) {
	eventType, err := enums.ParseOutboxEventType(msg.Attributes["event_type"])
	if err != nil {
		return models.OutboxEvent{}, err
	}
	aggregateType, err := enums.ParseOutboxAggregateType(msg.Attributes["aggregate_type"])
	if err != nil {
		return models.OutboxEvent{}, err
	}
	aggregateID, err := uuid.Parse(msg.Attributes["aggregate_id"])
	if err != nil {
		return models.OutboxEvent{}, fmt.Errorf("invalid aggregate id: %w", err)
	}
	return models.OutboxEvent{
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Payload:       msg.Data,
	}, nil
}

func (c *Consumer) handle(ctx context.Context, eventType enums.OutboxEventType, payload interface{}, logCtx context.Context) error {
	switch typed := payload.(type) {
	case *payloads.OrderCreatedEvent:
		return c.handleOrderCreated(ctx, typed)
	case *payloads.OrderUpdatedEvent:
		return c.handleOrderUpdated(ctx, typed)
	case *payloads.OrderDeletedEvent:
		msg := NewTextMessage(EventOrderUpdated, "Pedido eliminado", "El pedido fue eliminado.", typed)
		c.hub.SendToUser(typed.ClientID, msg)
		c.hub.BroadcastToAdmins(msg)
		return nil
	case *payloads.PaymentSubmittedEvent:
		return c.handlePaymentSubmitted(ctx, typed)
	case *payloads.PaymentVerifiedEvent:
		return c.handlePaymentVerified(ctx, typed)
	case *payloads.PaymentRejectedEvent:
		return c.handlePaymentRejected(ctx, typed)
	case *payloads.PaymentDeletedEvent:
		msg := NewTextMessage(EventPaymentUpdated, "Pago eliminado", "El pago fue eliminado.", typed)
		c.hub.SendToUser(typed.ClientID, msg)
		c.hub.BroadcastToAdmins(msg)
		return nil
	case *payloads.PaymentReminderEvent:
		return c.handlePaymentReminder(ctx, typed)
	case *payloads.SessionRevokedEvent:
		c.hub.SendToUser(typed.UserID, NewTextMessage(EventForceLogout, "Sesión finalizada", "Tu sesión fue cerrada por un administrador.", typed))
		c.hub.DisconnectUser(typed.UserID)
		return nil
	case *payloads.NotificationPushedEvent:
		c.hub.SendToUser(typed.UserID, NewTextMessage(EventNewNotification, typed.Title, typed.Message, typed))
		return nil
	default:
		c.logg.Info(logCtx, "event type not handled")
		return nil
	}
}

func (c *Consumer) handleOrderCreated(ctx context.Context, payload *payloads.OrderCreatedEvent) error {
	notification := notificationTemplate{
		Type:    enums.NotificationTypeNewOrder,
		Title:   "Nuevo pedido",
		Message: fmt.Sprintf("Se recibió un pedido por $%s USD.", payload.TotalUSD.StringFixed(2)),
		Link:    fmt.Sprintf("/admin/orders/%s", payload.OrderID),
		OrderID: payload.OrderID,
	}
	if err := c.notifyAdmins(ctx, notification); err != nil {
		return err
	}
	c.hub.BroadcastToAdmins(NewTextMessage(EventNewOrder, notification.Title, notification.Message, payload))
	return nil
}

func (c *Consumer) handleOrderUpdated(ctx context.Context, payload *payloads.OrderUpdatedEvent) error {
	notification := notificationTemplate{
		Type:    enums.NotificationTypeOrderStatusUpdate,
		Title:   "Pedido actualizado",
		Message: fmt.Sprintf("Tu pedido pasó a %s.", payload.Status),
		Link:    fmt.Sprintf("/orders/%s", payload.OrderID),
		OrderID: payload.OrderID,
	}
	if payload.Status == enums.OrderStatusRechazado {
		notification.Type = enums.NotificationTypeOrderRejected
		notification.Title = "Pedido rechazado"
		notification.Message = "Tu pedido fue rechazado."
		if payload.Reason != "" {
			notification.Message = fmt.Sprintf("Tu pedido fue rechazado: %s", payload.Reason)
		}
	}
	if err := c.notifyUser(ctx, payload.ClientID, notification); err != nil {
		return err
	}
	frame := NewTextMessage(EventOrderUpdated, notification.Title, notification.Message, payload)
	c.hub.SendToUser(payload.ClientID, frame)
	c.hub.BroadcastToAdmins(frame)
	return nil
}

func (c *Consumer) handlePaymentSubmitted(ctx context.Context, payload *payloads.PaymentSubmittedEvent) error {
	notification := notificationTemplate{
		Type:    enums.NotificationTypeNewPayment,
		Title:   "Nuevo pago reportado",
		Message: fmt.Sprintf("Pago de $%s USD pendiente de verificación.", payload.AmountUSD.StringFixed(2)),
		Link:    fmt.Sprintf("/admin/orders/%s", payload.OrderID),
		OrderID: payload.OrderID,
	}
	if err := c.notifyAdmins(ctx, notification); err != nil {
		return err
	}
	c.hub.BroadcastToAdmins(NewTextMessage(EventNewPayment, notification.Title, notification.Message, payload))
	return nil
}

func (c *Consumer) handlePaymentVerified(ctx context.Context, payload *payloads.PaymentVerifiedEvent) error {
	notification := notificationTemplate{
		Type:    enums.NotificationTypePaymentVerified,
		Title:   "Pago verificado",
		Message: fmt.Sprintf("Tu pago de $%s USD fue verificado.", payload.AmountUSD.StringFixed(2)),
		Link:    fmt.Sprintf("/orders/%s", payload.OrderID),
		OrderID: payload.OrderID,
	}
	if err := c.notifyUser(ctx, payload.ClientID, notification); err != nil {
		return err
	}
	frame := NewTextMessage(EventPaymentUpdated, notification.Title, notification.Message, payload)
	c.hub.SendToUser(payload.ClientID, frame)
	c.hub.BroadcastToAdmins(frame)
	return nil
}

func (c *Consumer) handlePaymentRejected(ctx context.Context, payload *payloads.PaymentRejectedEvent) error {
	message := "Tu pago fue rechazado."
	if payload.Reason != "" {
		message = fmt.Sprintf("Tu pago fue rechazado: %s", payload.Reason)
	}
	notification := notificationTemplate{
		Type:    enums.NotificationTypePaymentRejected,
		Title:   "Pago rechazado",
		Message: message,
		Link:    fmt.Sprintf("/orders/%s", payload.OrderID),
		OrderID: payload.OrderID,
	}
	if err := c.notifyUser(ctx, payload.ClientID, notification); err != nil {
		return err
	}
	c.hub.SendToUser(payload.ClientID, NewTextMessage(EventPaymentUpdated, notification.Title, notification.Message, payload))
	return nil
}

func (c *Consumer) handlePaymentReminder(ctx context.Context, payload *payloads.PaymentReminderEvent) error {
	notification := notificationTemplate{
		Type:    enums.NotificationTypePaymentReminder,
		Title:   "Pago pendiente",
		Message: fmt.Sprintf("Tienes un saldo pendiente de $%s USD.", payload.RemainingUSD.StringFixed(2)),
		Link:    fmt.Sprintf("/orders/%s", payload.OrderID),
		OrderID: payload.OrderID,
	}
	if err := c.notifyUser(ctx, payload.ClientID, notification); err != nil {
		return err
	}
	c.hub.SendToUser(payload.ClientID, NewTextMessage(EventPaymentReminder, notification.Title, notification.Message, payload))
	return nil
}

type notificationTemplate struct {
	Type    enums.NotificationType
	Title   string
	Message string
	Link    string
	OrderID uuid.UUID
}

func (c *Consumer) notifyUser(ctx context.Context, userID uuid.UUID, template notificationTemplate) error {
	if userID == uuid.Nil {
		return fmt.Errorf("recipient missing")
	}
	orderID := template.OrderID
	notification := &models.Notification{
		UserID:  userID,
		Type:    template.Type,
		Title:   template.Title,
		Message: template.Message,
		Link:    stringPtr(template.Link),
		OrderID: &orderID,
	}
	if err := c.notifications.Create(ctx, notification); err != nil {
		return err
	}
	c.hub.SendToUser(userID, NewTextMessage(EventNewNotification, template.Title, template.Message, notification))
	return nil
}

func (c *Consumer) notifyAdmins(ctx context.Context, template notificationTemplate) error {
	adminIDs, err := c.admins.ListAdminIDs(ctx)
	if err != nil {
		return err
	}
	for _, adminID := range adminIDs {
		if err := c.notifyUser(ctx, adminID, template); err != nil {
			return err
		}
	}
	return nil
}

func stringPtr(value string) *string {
	return &value
}

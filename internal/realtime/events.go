package realtime

// SocketEvent names the event types pushed over client sockets.
type SocketEvent string

const (
	EventNewOrder        SocketEvent = "new-order"
	EventNewPayment      SocketEvent = "new-payment"
	EventPaymentUpdated  SocketEvent = "payment-updated"
	EventOrderUpdated    SocketEvent = "order-updated"
	EventPaymentReminder SocketEvent = "payment-reminder"
	EventNewNotification SocketEvent = "new-notification"
	EventForceLogout     SocketEvent = "force-logout"
)

// Message is the JSON frame written to connected sockets. Title and Message
// carry the human-readable text clients render directly; InvalidationKeys
// tell the client which cached collections to refetch.
type Message struct {
	Event            SocketEvent `json:"event"`
	Title            string      `json:"title,omitempty"`
	Message          string      `json:"message,omitempty"`
	InvalidationKeys []string    `json:"invalidation_keys,omitempty"`
	Payload          any         `json:"payload,omitempty"`
}

var invalidationKeys = map[SocketEvent][]string{
	EventNewOrder:        {"orders"},
	EventNewPayment:      {"payments", "orders"},
	EventPaymentUpdated:  {"payments", "orders"},
	EventOrderUpdated:    {"orders"},
	EventPaymentReminder: {"orders"},
	EventNewNotification: {"notifications"},
}

// NewMessage builds a socket frame with the invalidation keys for the event.
func NewMessage(event SocketEvent, payload any) Message {
	return Message{
		Event:            event,
		InvalidationKeys: invalidationKeys[event],
		Payload:          payload,
	}
}

// NewTextMessage builds a frame that also carries the display text.
func NewTextMessage(event SocketEvent, title, message string, payload any) Message {
	msg := NewMessage(event, payload)
	msg.Title = title
	msg.Message = message
	return msg
}

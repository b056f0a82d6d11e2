package enums

import "fmt"

// NotificationType maps to the notification_type enum in Postgres.
type NotificationType string

const (
	NotificationTypeNewOrder          NotificationType = "new_order"
	NotificationTypeNewPayment        NotificationType = "new_payment"
	NotificationTypeOrderStatusUpdate NotificationType = "order_status_update"
	NotificationTypePaymentVerified   NotificationType = "payment_verified"
	NotificationTypePaymentRejected   NotificationType = "payment_rejected"
	NotificationTypeOrderRejected     NotificationType = "order_rejected"
	NotificationTypePaymentReminder   NotificationType = "payment_reminder"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeNewOrder,
	NotificationTypeNewPayment,
	NotificationTypeOrderStatusUpdate,
	NotificationTypePaymentVerified,
	NotificationTypePaymentRejected,
	NotificationTypeOrderRejected,
	NotificationTypePaymentReminder,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}

package enums

import "fmt"

// OrderStatus maps to the order_status enum in Postgres. The Spanish labels
// are the wire/API values the storefront clients already speak.
type OrderStatus string

const (
	OrderStatusPendiente  OrderStatus = "pendiente"
	OrderStatusPorPagar   OrderStatus = "por_pagar"
	OrderStatusAbonado    OrderStatus = "abonado"
	OrderStatusPagado     OrderStatus = "pagado"
	OrderStatusCompletado OrderStatus = "completado"
	OrderStatusRechazado  OrderStatus = "rechazado"
	OrderStatusCancelado  OrderStatus = "cancelado"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPendiente,
	OrderStatusPorPagar,
	OrderStatusAbonado,
	OrderStatusPagado,
	OrderStatusCompletado,
	OrderStatusRechazado,
	OrderStatusCancelado,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the status is one of the closed set.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelado || s == OrderStatusRechazado
}

// ParseOrderStatus converts a raw string into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

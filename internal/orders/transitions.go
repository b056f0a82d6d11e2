package orders

import "github.com/jpcontreras/vendia-backend/pkg/enums"

// transitionTable lists the status changes regular operations may perform.
// Balance-driven moves (por_pagar/abonado -> abonado/pagado) only happen
// inside the payment verification transaction; the admin override path checks
// terminality and membership instead of this table.
var transitionTable = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPendiente: {
		enums.OrderStatusPorPagar,
		enums.OrderStatusRechazado,
		enums.OrderStatusCancelado,
	},
	enums.OrderStatusPorPagar: {
		enums.OrderStatusAbonado,
		enums.OrderStatusPagado,
		enums.OrderStatusCancelado,
	},
	enums.OrderStatusAbonado: {
		enums.OrderStatusPagado,
		enums.OrderStatusCancelado,
	},
	enums.OrderStatusPagado: {
		enums.OrderStatusCompletado,
	},
	enums.OrderStatusCompletado: {},
	enums.OrderStatusRechazado:  {},
	enums.OrderStatusCancelado:  {},
}

// CanTransition reports whether the regular pipeline allows from -> to.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range transitionTable[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CanOverride reports whether an admin override may set the target status.
// Overrides bypass the pipeline but never move terminal orders and never
// target an unknown status.
func CanOverride(from, to enums.OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if !to.IsValid() {
		return false
	}
	return from != to
}

// cancellableStatuses are the states a cancel request may act on.
var cancellableStatuses = map[enums.OrderStatus]bool{
	enums.OrderStatusPendiente: true,
	enums.OrderStatusPorPagar:  true,
	enums.OrderStatusAbonado:   true,
}

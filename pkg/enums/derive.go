package enums

// DeriveOrderStatus computes the order status implied by the current status
// plus the latest shipment and payment state. It is the single place where
// shipping and payment events feed back into the order lifecycle; callers
// apply it on every shipment or payment mutation instead of embedding the
// coupling in SQL.
//
// Precedence: terminal statuses stick, delivery completes the order, an
// in-flight shipment forces processing, and only then does payment state
// move the order forward.
func DeriveOrderStatus(current OrderStatus, shipping ShippingStatus, payment PaymentStatus) OrderStatus {
	if current.IsTerminal() {
		return current
	}

	if shipping.IsDeliveredOrCompleted() {
		return OrderStatusCompleted
	}

	if shipping.InFlight() {
		switch current {
		case OrderStatusPending, OrderStatusAwaitingPayment, OrderStatusPaid, OrderStatusProcessing:
			return OrderStatusProcessing
		}
		return current
	}

	switch payment {
	case PaymentStatusPaid:
		switch current {
		case OrderStatusPending, OrderStatusAwaitingPayment, OrderStatusPaymentFailed:
			return OrderStatusPaid
		}
	case PaymentStatusFailed:
		switch current {
		case OrderStatusPending, OrderStatusAwaitingPayment:
			return OrderStatusPaymentFailed
		}
	}

	return current
}

package enums

import "strings"

// ShippingStatus mirrors the provider-facing shipment state carried on both
// the shipment row and the order row. Providers emit a wider vocabulary than
// the canonical set below; NormalizeShippingStatus folds raw webhook values
// into snake_case before storage.
type ShippingStatus string

const (
	ShippingStatusNotCreated     ShippingStatus = "not_created"
	ShippingStatusCreated        ShippingStatus = "created"
	ShippingStatusLabelCreated   ShippingStatus = "label_created"
	ShippingStatusShipped        ShippingStatus = "shipped"
	ShippingStatusInTransit      ShippingStatus = "in_transit"
	ShippingStatusOutForDelivery ShippingStatus = "out_for_delivery"
	ShippingStatusDelivered      ShippingStatus = "delivered"
	ShippingStatusCompleted      ShippingStatus = "completed"
	ShippingStatusCancelled      ShippingStatus = "cancelled"
)

// String implements fmt.Stringer.
func (s ShippingStatus) String() string {
	return string(s)
}

// IsDeliveredOrCompleted reports whether the parcel reached its terminal
// delivered state.
func (s ShippingStatus) IsDeliveredOrCompleted() bool {
	return s == ShippingStatusDelivered || s == ShippingStatusCompleted
}

// BlocksCustomerCancel reports whether a shipment in this state prevents the
// customer from cancelling the order.
func (s ShippingStatus) BlocksCustomerCancel() bool {
	switch s {
	case ShippingStatusShipped, ShippingStatusDelivered, ShippingStatusCompleted, ShippingStatusCancelled:
		return true
	default:
		return false
	}
}

// InFlight reports whether the shipment is somewhere between label creation
// and delivery.
func (s ShippingStatus) InFlight() bool {
	switch s {
	case ShippingStatusCreated, ShippingStatusLabelCreated, ShippingStatusShipped,
		ShippingStatusInTransit, ShippingStatusOutForDelivery:
		return true
	default:
		return false
	}
}

// NormalizeShippingStatus lowercases, trims, and snake_cases a raw provider
// status value. Unknown values are kept verbatim after normalization so the
// audit trail preserves what the provider actually sent.
func NormalizeShippingStatus(value string) ShippingStatus {
	normalized := strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(value))), "_")
	return ShippingStatus(normalized)
}

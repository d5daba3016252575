package orders

import (
	"strings"
	"time"

	"github.com/brunomarket/fulfillment-backend/internal/inventory"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderItemInput is one requested line. Product and variant references
// are optional: unknown ids are stored as detached lines rather than
// rejected.
type CreateOrderItemInput struct {
	ProductID   *uuid.UUID
	VariantID   *uuid.UUID
	ProductName string
	SKU         *string
	Quantity    int
	UnitPrice   decimal.Decimal
}

// CreateOrderInput captures everything needed to place an order.
type CreateOrderInput struct {
	CustomerName    string
	CustomerEmail   string
	ShippingAddress string
	ShippingRegion  *string
	DiscountTotal   decimal.Decimal
	Items           []CreateOrderItemInput
}

func (in *CreateOrderInput) normalize() {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.ShippingAddress = strings.TrimSpace(in.ShippingAddress)
	if in.ShippingRegion != nil {
		trimmed := strings.TrimSpace(*in.ShippingRegion)
		if trimmed == "" {
			in.ShippingRegion = nil
		} else {
			in.ShippingRegion = &trimmed
		}
	}
	if in.DiscountTotal.IsNegative() {
		in.DiscountTotal = decimal.Zero
	}
	for i := range in.Items {
		in.Items[i].ProductName = strings.TrimSpace(in.Items[i].ProductName)
		if in.Items[i].SKU != nil {
			trimmed := strings.TrimSpace(*in.Items[i].SKU)
			if trimmed == "" {
				in.Items[i].SKU = nil
			} else {
				in.Items[i].SKU = &trimmed
			}
		}
	}
}

// missingFields returns the names of required fields that failed validation.
func (in CreateOrderInput) missingFields() []string {
	var missing []string
	if in.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if in.CustomerEmail == "" {
		missing = append(missing, "customer_email")
	}
	if in.ShippingAddress == "" {
		missing = append(missing, "shipping_address")
	}
	if len(in.Items) == 0 {
		missing = append(missing, "items")
	}
	for _, item := range in.Items {
		if item.ProductName == "" || item.Quantity <= 0 || item.UnitPrice.IsNegative() {
			missing = append(missing, "items[*].{product_name,quantity,unit_price}")
			break
		}
	}
	return missing
}

// routableLines converts the request items into the shape routing and
// reservation consume, dropping lines with no catalog reference or no
// positive quantity.
func (in CreateOrderInput) routableLines() []inventory.Line {
	lines := make([]inventory.Line, 0, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			continue
		}
		if item.ProductID == nil && item.VariantID == nil {
			continue
		}
		lines = append(lines, inventory.Line{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
		})
	}
	return lines
}

// OrderItemView is the public shape of one order line.
type OrderItemView struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *uuid.UUID      `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id"`
	ProductName string          `json:"product_name"`
	SKU         *string         `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// OrderView is the public shape of a full order.
type OrderView struct {
	ID                   uuid.UUID            `json:"id"`
	OrderNumber          string               `json:"order_number"`
	CustomerName         string               `json:"customer_name"`
	CustomerEmail        string               `json:"customer_email"`
	ShippingAddress      string               `json:"shipping_address"`
	ShippingRegion       *string              `json:"shipping_region"`
	AssignedStoreID      *uuid.UUID           `json:"assigned_store_id"`
	Status               enums.OrderStatus    `json:"status"`
	PaymentStatus        enums.PaymentStatus  `json:"payment_status"`
	ShippingStatus       enums.ShippingStatus `json:"shipping_status"`
	Subtotal             decimal.Decimal      `json:"subtotal"`
	DiscountTotal        decimal.Decimal      `json:"discount_total"`
	Total                decimal.Decimal      `json:"total"`
	StockCommitted       bool                 `json:"stock_committed"`
	ShippingTrackingCode *string              `json:"shipping_tracking_code"`
	ShippingLabelURL     *string              `json:"shipping_label_url"`
	Items                []OrderItemView      `json:"items"`
	CreatedAt            time.Time            `json:"created_at"`
	UpdatedAt            time.Time            `json:"updated_at"`
}

// NewOrderView maps an order row to its public shape.
func NewOrderView(order *models.Order) OrderView {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ID:          item.ID,
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			LineTotal:   item.LineTotal,
		})
	}
	return OrderView{
		ID:                   order.ID,
		OrderNumber:          order.OrderNumber,
		CustomerName:         order.CustomerName,
		CustomerEmail:        order.CustomerEmail,
		ShippingAddress:      order.ShippingAddress,
		ShippingRegion:       order.ShippingRegion,
		AssignedStoreID:      order.AssignedStoreID,
		Status:               order.Status,
		PaymentStatus:        order.PaymentStatus,
		ShippingStatus:       order.ShippingStatus,
		Subtotal:             order.Subtotal,
		DiscountTotal:        order.DiscountTotal,
		Total:                order.Total,
		StockCommitted:       order.StockCommitted,
		ShippingTrackingCode: order.ShippingTrackingCode,
		ShippingLabelURL:     order.ShippingLabelURL,
		Items:                items,
		CreatedAt:            order.CreatedAt,
		UpdatedAt:            order.UpdatedAt,
	}
}

// CustomerOrderSummary is one row of a customer's order history, annotated
// with the live shipment state and the assigned store.
type CustomerOrderSummary struct {
	ID                   uuid.UUID            `json:"id"`
	OrderNumber          string               `json:"order_number"`
	CreatedAt            time.Time            `json:"created_at"`
	Status               enums.OrderStatus    `json:"status"`
	Subtotal             decimal.Decimal      `json:"subtotal"`
	DiscountTotal        decimal.Decimal      `json:"discount_total"`
	Total                decimal.Decimal      `json:"total"`
	ShippingStatus       enums.ShippingStatus `json:"shipping_status"`
	ShippingTrackingCode *string              `json:"shipping_tracking_code"`
	ShippingLabelURL     *string              `json:"shipping_label_url"`
	StoreName            *string              `json:"store_name"`
	StoreAddress         *string              `json:"store_address"`
	ItemCount            int                  `json:"item_count"`
}

// AdminOrderRow is one row of the admin order listing.
type AdminOrderRow struct {
	ID              uuid.UUID            `json:"id"`
	OrderNumber     string               `json:"order_number"`
	CustomerName    string               `json:"customer_name"`
	CustomerEmail   string               `json:"customer_email"`
	ShippingRegion  *string              `json:"shipping_region"`
	AssignedStoreID *uuid.UUID           `json:"assigned_store_id"`
	Status          enums.OrderStatus    `json:"status"`
	PaymentStatus   enums.PaymentStatus  `json:"payment_status"`
	ShippingStatus  enums.ShippingStatus `json:"shipping_status"`
	Total           decimal.Decimal      `json:"total"`
	CreatedAt       time.Time            `json:"created_at"`
	StoreName       *string              `json:"store_name"`
	StoreAddress    *string              `json:"store_address"`
}

// AdminOrderPage is one cursor page of the admin order listing.
type AdminOrderPage struct {
	Orders     []AdminOrderRow `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

package controllers

import (
	"net/http"

	"github.com/brunomarket/fulfillment-backend/api/responses"
	"github.com/brunomarket/fulfillment-backend/api/validators"
	"github.com/brunomarket/fulfillment-backend/internal/orders"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/brunomarket/fulfillment-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type orderItemRequest struct {
	ProductID   *uuid.UUID      `json:"product_id"`
	VariantID   *uuid.UUID      `json:"variant_id"`
	ProductName string          `json:"product_name"`
	SKU         *string         `json:"sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type orderCreateRequest struct {
	CustomerName    string             `json:"customer_name"`
	CustomerEmail   string             `json:"customer_email"`
	ShippingAddress string             `json:"shipping_address"`
	ShippingRegion  *string            `json:"shipping_region"`
	DiscountTotal   decimal.Decimal    `json:"discount_total"`
	Items           []orderItemRequest `json:"items"`
}

func (r orderCreateRequest) toInput() orders.CreateOrderInput {
	items := make([]orders.CreateOrderItemInput, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, orders.CreateOrderItemInput{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.ProductName,
			SKU:         item.SKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return orders.CreateOrderInput{
		CustomerName:    r.CustomerName,
		CustomerEmail:   r.CustomerEmail,
		ShippingAddress: r.ShippingAddress,
		ShippingRegion:  r.ShippingRegion,
		DiscountTotal:   r.DiscountTotal,
		Items:           items,
	}
}

// OrderCreate places a new order. Field-level validation happens in the
// service so the response can name every missing field at once.
func OrderCreate(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req orderCreateRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Create(r.Context(), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders.NewOrderView(order))
	}
}

// OrderList returns a cursor page of orders for the admin view.
func OrderList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := svc.List(r.Context(), pagination.Params{
			Limit:  validators.QueryInt(r, "limit", pagination.DefaultLimit),
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// OrderGet returns one order with its items.
func OrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

type orderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderUpdateStatus sets an order's status directly.
func OrderUpdateStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		order, err := svc.UpdateStatus(r.Context(), id, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

type paymentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderRecordPayment applies a payment outcome reported by the payment
// gateway.
func OrderRecordPayment(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req paymentStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var order *models.Order
		switch enums.PaymentStatus(req.Status) {
		case enums.PaymentStatusPaid:
			order, err = svc.MarkPaid(r.Context(), id)
		case enums.PaymentStatusFailed:
			order, err = svc.MarkPaymentFailed(r.Context(), id)
		default:
			err = pkgerrors.New(pkgerrors.CodeValidation, "status must be paid or failed")
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

// MyOrders lists the caller's order history by email.
func MyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		email, err := validators.RequiredQuery(r, "email")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListByCustomer(r.Context(), email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// MyOrderGet returns one of the caller's orders with items.
func MyOrderGet(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		email, err := validators.RequiredQuery(r, "email")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetForCustomer(r.Context(), id, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

// MyOrderCancel cancels one of the caller's orders. Cancelling an already
// cancelled order succeeds.
func MyOrderCancel(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.UUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		email, err := validators.RequiredQuery(r, "email")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Cancel(r.Context(), id, email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders.NewOrderView(order))
	}
}

// OrderDashboard returns the operational dashboard summary.
func OrderDashboard(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		threshold := validators.QueryInt(r, "low_stock_threshold", orders.DefaultLowStockThreshold)
		limit := validators.QueryInt(r, "low_stock_limit", orders.DefaultLowStockLimit)

		summary, err := svc.DashboardSummary(r.Context(), threshold, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

package orders

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/brunomarket/fulfillment-backend/internal/inventory"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/enums"
	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/brunomarket/fulfillment-backend/pkg/pagination"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schemas := []string{`
CREATE TABLE stores (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  address TEXT,
  region_district TEXT,
  city TEXT,
  district TEXT,
  region_code TEXT,
  priority_level INTEGER NOT NULL DEFAULT 1,
  is_active INTEGER NOT NULL DEFAULT 1,
  region_tags TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE store_stock (
  id TEXT PRIMARY KEY,
  store_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  variant_id TEXT,
  quantity INTEGER NOT NULL DEFAULT 0,
  updated_at DATETIME
);`, `
CREATE TABLE products (
  id TEXT PRIMARY KEY,
  sku TEXT,
  created_at DATETIME
);`, `
CREATE TABLE product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  sku TEXT,
  created_at DATETIME
);`, `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  order_number TEXT NOT NULL,
  customer_name TEXT NOT NULL,
  customer_email TEXT NOT NULL,
  shipping_address TEXT NOT NULL,
  shipping_region TEXT,
  assigned_store_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  shipping_status TEXT NOT NULL DEFAULT 'not_created',
  subtotal NUMERIC NOT NULL DEFAULT 0,
  discount_total NUMERIC NOT NULL DEFAULT 0,
  total NUMERIC NOT NULL DEFAULT 0,
  stock_committed INTEGER NOT NULL DEFAULT 0,
  shipping_tracking_code TEXT,
  shipping_label_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT,
  variant_id TEXT,
  product_name TEXT NOT NULL,
  sku TEXT,
  quantity INTEGER NOT NULL,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  line_total NUMERIC NOT NULL DEFAULT 0
);`, `
CREATE TABLE shipments (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  provider TEXT NOT NULL DEFAULT 'ctt',
  status TEXT NOT NULL DEFAULT 'created',
  tracking_code TEXT,
  label_url TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE shipment_tracking_events (
  id TEXT PRIMARY KEY,
  shipment_id TEXT NOT NULL,
  order_id TEXT NOT NULL,
  status TEXT NOT NULL,
  location TEXT,
  description TEXT,
  occurred_at DATETIME NOT NULL,
  created_at DATETIME
);`}
	for _, schema := range schemas {
		require.NoError(t, db.Exec(schema).Error)
	}
	return db
}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) DB() *gorm.DB { return r.db }

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubAssigner struct {
	store *models.Store
	err   error
}

func (s stubAssigner) AssignStore(context.Context, *gorm.DB, string, []inventory.Line) (*models.Store, error) {
	return s.store, s.err
}

type stubShipper struct {
	calls int
	err   error
}

func (s *stubShipper) EnsureShipment(context.Context, uuid.UUID) (*models.Shipment, error) {
	s.calls++
	return &models.Shipment{}, s.err
}

type stubInvoicer struct {
	calls int
}

func (s *stubInvoicer) EnsureForOrder(_ context.Context, order *models.Order) (*models.Invoice, error) {
	s.calls++
	return &models.Invoice{OrderID: order.ID}, nil
}

type ordersFixture struct {
	db       *gorm.DB
	svc      Service
	store    *models.Store
	shipper  *stubShipper
	invoicer *stubInvoicer
}

func newOrdersFixture(t *testing.T) *ordersFixture {
	t.Helper()

	db := setupOrdersTestDB(t)
	store := &models.Store{ID: uuid.New(), Name: "Lisbon Hub", IsActive: true}
	require.NoError(t, db.Create(store).Error)

	shipper := &stubShipper{}
	invoicer := &stubInvoicer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	svc, err := NewService(
		NewRepository(db),
		testTxRunner{db: db},
		stubAssigner{store: store},
		inventory.NewSource(nil),
		shipper,
		invoicer,
		logg,
	)
	require.NoError(t, err)

	return &ordersFixture{db: db, svc: svc, store: store, shipper: shipper, invoicer: invoicer}
}

func (f *ordersFixture) seedStock(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, f.db.Exec(
		`INSERT INTO store_stock (id, store_id, product_id, quantity) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), f.store.ID.String(), productID.String(), qty,
	).Error)
}

func (f *ordersFixture) stockFor(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var qty int
	require.NoError(t, f.db.Raw(
		`SELECT quantity FROM store_stock WHERE product_id = ?`, productID.String(),
	).Scan(&qty).Error)
	return qty
}

func validInput(productID uuid.UUID) CreateOrderInput {
	return CreateOrderInput{
		CustomerName:    "Ana Silva",
		CustomerEmail:   "ana@example.com",
		ShippingAddress: "Rua das Flores 1, Porto",
		Items: []CreateOrderItemInput{
			{ProductID: &productID, ProductName: "Coffee Beans 1kg", Quantity: 2, UnitPrice: decimal.NewFromFloat(12.50)},
		},
	}
}

func TestCreateOrderHappyPath(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	require.NoError(t, f.db.Create(&models.Product{ID: productID}).Error)
	f.seedStock(t, productID, 10)

	input := validInput(productID)
	input.DiscountTotal = decimal.NewFromInt(5)

	order, err := f.svc.Create(ctx, input)
	require.NoError(t, err)

	assert.Contains(t, order.OrderNumber, "ORD-")
	assert.Equal(t, enums.OrderStatusAwaitingPayment, order.Status)
	assert.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
	assert.Equal(t, enums.ShippingStatusNotCreated, order.ShippingStatus)
	assert.True(t, order.StockCommitted)
	require.NotNil(t, order.AssignedStoreID)
	assert.Equal(t, f.store.ID, *order.AssignedStoreID)

	assert.True(t, order.Subtotal.Equal(decimal.NewFromInt(25)), "subtotal %s", order.Subtotal)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(20)), "total %s", order.Total)

	// Stock is reserved and the catalog link kept.
	assert.Equal(t, 8, f.stockFor(t, productID))
	loaded, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	require.NotNil(t, loaded.Items[0].ProductID)
	assert.Equal(t, productID, *loaded.Items[0].ProductID)
}

func TestOrderNumbersUniqueWithinMillisecond(t *testing.T) {
	first := newOrderNumber()
	second := newOrderNumber()

	assert.Regexp(t, `^ORD-\d+-\d{6}$`, first)
	assert.NotEqual(t, first, second)
}

func TestCreateOrderDiscountNeverGoesNegative(t *testing.T) {
	f := newOrdersFixture(t)

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	input := validInput(productID)
	input.DiscountTotal = decimal.NewFromInt(1000)

	order, err := f.svc.Create(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.Zero), "total %s", order.Total)
}

func TestCreateOrderCollectsMissingFields(t *testing.T) {
	f := newOrdersFixture(t)

	_, err := f.svc.Create(context.Background(), CreateOrderInput{CustomerName: "  "})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]any)
	require.True(t, ok)
	assert.ElementsMatch(t,
		[]string{"customer_name", "customer_email", "shipping_address", "items"},
		details["missing_fields"],
	)
}

func TestCreateOrderDetachesUnknownCatalogRefs(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	// The product row does not exist, so the line is stored detached.
	loaded, err := f.svc.Get(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 1)
	assert.Nil(t, loaded.Items[0].ProductID)
	assert.Equal(t, "Coffee Beans 1kg", loaded.Items[0].ProductName)
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	f := newOrdersFixture(t)

	productID := uuid.New()
	f.seedStock(t, productID, 1)

	_, err := f.svc.Create(context.Background(), validInput(productID))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	// Nothing was written and nothing was decremented.
	var count int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Equal(t, 1, f.stockFor(t, productID))
}

func TestCancelOrderReleasesStockAndCancelsShipment(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)
	require.Equal(t, 8, f.stockFor(t, productID))

	shipment := &models.Shipment{ID: uuid.New(), OrderID: order.ID, Status: enums.ShippingStatusCreated}
	require.NoError(t, f.db.Create(shipment).Error)

	cancelled, err := f.svc.Cancel(ctx, order.ID, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, cancelled.Status)
	assert.False(t, cancelled.StockCommitted)
	assert.Equal(t, enums.ShippingStatusCancelled, cancelled.ShippingStatus)
	assert.Equal(t, 10, f.stockFor(t, productID))

	var reloaded models.Shipment
	require.NoError(t, f.db.First(&reloaded, "id = ?", shipment.ID.String()).Error)
	assert.Equal(t, enums.ShippingStatusCancelled, reloaded.Status)

	var events int64
	require.NoError(t, f.db.Model(&models.ShipmentTrackingEvent{}).
		Where("order_id = ? AND status = ?", order.ID.String(), "cancelled").
		Count(&events).Error)
	assert.EqualValues(t, 1, events)
}

func TestCancelOrderIsIdempotent(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, order.ID, "ana@example.com")
	require.NoError(t, err)

	// The second cancel succeeds and does not release stock again.
	again, err := f.svc.Cancel(ctx, order.ID, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, again.Status)
	assert.Equal(t, 10, f.stockFor(t, productID))
}

func TestCancelOrderBlockedOnceShipped(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	shipment := &models.Shipment{ID: uuid.New(), OrderID: order.ID, Status: enums.ShippingStatusShipped}
	require.NoError(t, f.db.Create(shipment).Error)

	_, err = f.svc.Cancel(ctx, order.ID, "ana@example.com")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, 8, f.stockFor(t, productID))
}

func TestCancelOrderScopedToCustomerEmail(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, order.ID, "intruder@example.com")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateStatusCompletedTriggersInvoice(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	updated, err := f.svc.UpdateStatus(ctx, order.ID, enums.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, updated.Status)
	assert.Equal(t, 1, f.invoicer.calls)
}

func TestUpdateStatusRejectsUnknownValue(t *testing.T) {
	f := newOrdersFixture(t)

	_, err := f.svc.UpdateStatus(context.Background(), uuid.New(), enums.OrderStatus("teleported"))
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestMarkPaidDerivesStatusAndEnsuresShipment(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	paid, err := f.svc.MarkPaid(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPaid, paid.Status)
	assert.Equal(t, 1, f.shipper.calls)
}

func TestMarkPaidRejectsClosedOrder(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, order.ID, "ana@example.com")
	require.NoError(t, err)

	_, err = f.svc.MarkPaid(ctx, order.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestMarkPaymentFailedDerivesStatus(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	failed, err := f.svc.MarkPaymentFailed(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentStatusFailed, failed.PaymentStatus)
	assert.Equal(t, enums.OrderStatusPaymentFailed, failed.Status)
}

func TestListByCustomerOverlaysShipmentState(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	order, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	code := "CTT123456789PT"
	shipment := &models.Shipment{
		ID:           uuid.New(),
		OrderID:      order.ID,
		Status:       enums.ShippingStatusInTransit,
		TrackingCode: &code,
	}
	require.NoError(t, f.db.Create(shipment).Error)

	rows, err := f.svc.ListByCustomer(ctx, "ANA@example.com")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, order.ID, rows[0].ID)
	assert.Equal(t, enums.ShippingStatusInTransit, rows[0].ShippingStatus)
	require.NotNil(t, rows[0].ShippingTrackingCode)
	assert.Equal(t, code, *rows[0].ShippingTrackingCode)
	require.NotNil(t, rows[0].StoreName)
	assert.Equal(t, "Lisbon Hub", *rows[0].StoreName)
	assert.Equal(t, 1, rows[0].ItemCount)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, f.db.Exec(
			`INSERT INTO orders (id, order_number, customer_name, customer_email, shipping_address,
			                     status, payment_status, shipping_status, subtotal, discount_total, total, created_at)
			 VALUES (?, ?, 'Ana Silva', 'ana@example.com', 'Rua das Flores 1, Porto',
			         'awaiting_payment', 'pending', 'not_created', 10, 0, 10, ?)`,
			uuid.NewString(), fmt.Sprintf("ORD-%d", i), fmt.Sprintf("2026-01-0%d 10:00:00+00:00", i),
		).Error)
	}

	first, err := f.svc.List(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Orders, 2)
	assert.Equal(t, "ORD-3", first.Orders[0].OrderNumber)
	assert.Equal(t, "ORD-2", first.Orders[1].OrderNumber)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.List(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.Equal(t, "ORD-1", second.Orders[0].OrderNumber)
	assert.Empty(t, second.NextCursor)

	_, err = f.svc.List(ctx, pagination.Params{Cursor: "not-base64"})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestDashboardSummary(t *testing.T) {
	f := newOrdersFixture(t)
	ctx := context.Background()

	productID := uuid.New()
	f.seedStock(t, productID, 10)

	_, err := f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, validInput(productID))
	require.NoError(t, err)

	summary, err := f.svc.DashboardSummary(ctx, 0, 0)
	require.NoError(t, err)

	require.Len(t, summary.OrdersPerStore, 1)
	assert.Equal(t, "Lisbon Hub", summary.OrdersPerStore[0].StoreName)
	assert.Equal(t, 2, summary.OrdersPerStore[0].OrderCount)

	require.Len(t, summary.Last7Days, 7)
	today := summary.Last7Days[6]
	assert.Equal(t, 2, today.Orders)
	assert.True(t, today.Revenue.Equal(decimal.NewFromInt(50)), "revenue %s", today.Revenue)

	require.Len(t, summary.RevenueLast30Days, 30)

	// Remaining stock of 6 is still above the default threshold of 5.
	assert.Empty(t, summary.LowStock)

	require.NoError(t, f.db.Exec(`UPDATE store_stock SET quantity = 2`).Error)
	summary, err = f.svc.DashboardSummary(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, summary.LowStock, 1)
	assert.Equal(t, productID, summary.LowStock[0].ProductID)
	assert.Equal(t, 2, summary.LowStock[0].TotalStock)
}

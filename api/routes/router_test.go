package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/brunomarket/fulfillment-backend/internal/geo"
	"github.com/brunomarket/fulfillment-backend/internal/inventory"
	"github.com/brunomarket/fulfillment-backend/internal/invoices"
	"github.com/brunomarket/fulfillment-backend/internal/orders"
	"github.com/brunomarket/fulfillment-backend/internal/routing"
	"github.com/brunomarket/fulfillment-backend/internal/shipping"
	"github.com/brunomarket/fulfillment-backend/internal/stores"
	"github.com/brunomarket/fulfillment-backend/pkg/config"
	"github.com/brunomarket/fulfillment-backend/pkg/db/models"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
	"github.com/brunomarket/fulfillment-backend/pkg/metrics"
)

var routerTestSchemas = []string{`
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
CREATE TABLE geocode_cache (
  query_key TEXT PRIMARY KEY,
  query_raw TEXT NOT NULL,
  latitude REAL NOT NULL,
  longitude REAL NOT NULL,
  provider TEXT NOT NULL DEFAULT 'nominatim',
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
);`, `
CREATE TABLE invoices (
  id TEXT PRIMARY KEY,
  invoice_number TEXT NOT NULL,
  order_id TEXT NOT NULL,
  synced INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
);`}

type testTxRunner struct {
	db *gorm.DB
}

func (r testTxRunner) DB() *gorm.DB { return r.db }

func (r testTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

type routerFixture struct {
	db      *gorm.DB
	server  *httptest.Server
	storeID uuid.UUID
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	for _, schema := range routerTestSchemas {
		require.NoError(t, gdb.Exec(schema).Error)
	}

	store := &models.Store{ID: uuid.New(), Name: "Porto Hub", IsActive: true}
	district := "Porto"
	store.RegionDistrict = &district
	require.NoError(t, gdb.Create(store).Error)

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	runner := testTxRunner{db: gdb}

	resolver, err := geo.NewResolver(geo.NewCacheRepository(gdb), nil, nil, nil, logg, 0)
	require.NoError(t, err)
	storeSvc, err := stores.NewService(stores.NewRepository(gdb))
	require.NoError(t, err)
	source := inventory.NewSource(nil)

	engine, err := routing.NewEngine(
		config.RoutingConfig{Strategy: routing.StrategyDistanceFirst},
		storeSvc, source,
		[]routing.Strategy{routing.NewDistanceFirst(resolver)},
		nil, logg,
	)
	require.NoError(t, err)

	provider, err := shipping.NewProvider(config.ShippingConfig{Provider: "ctt"})
	require.NoError(t, err)
	shippingSvc, err := shipping.NewService(shipping.NewRepository(gdb), runner, provider, logg)
	require.NoError(t, err)

	invoiceSvc, err := invoices.NewService(invoices.NewRepository(gdb), nil, logg)
	require.NoError(t, err)

	ordersSvc, err := orders.NewService(orders.NewRepository(gdb), runner, engine, source, shippingSvc, invoiceSvc, logg)
	require.NoError(t, err)

	registry := prometheus.NewRegistry()
	metrics.NewRoutingMetrics(registry)

	cfg := &config.Config{
		App: config.AppConfig{
			Env:         "dev",
			Port:        "0",
			CORSOrigins: []string{"http://localhost:3000"},
		},
	}

	handler := NewRouter(cfg, logg, okPinger{}, nil, registry, storeSvc, ordersSvc, shippingSvc)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &routerFixture{db: gdb, server: server, storeID: store.ID}
}

func (f *routerFixture) seedStock(t *testing.T, productID uuid.UUID, qty int) {
	t.Helper()
	require.NoError(t, f.db.Exec(
		`INSERT INTO store_stock (id, store_id, product_id, quantity) VALUES (?, ?, ?, ?)`,
		uuid.NewString(), f.storeID.String(), productID.String(), qty,
	).Error)
}

func (f *routerFixture) postJSON(t *testing.T, path string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(f.server.URL+path, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	return resp
}

func decodeData(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()

	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Data
}

func createOrderPayload(productID uuid.UUID) map[string]any {
	return map[string]any{
		"customer_name":    "Ana Silva",
		"customer_email":   "ana@example.com",
		"shipping_address": "Rua das Flores 1, Porto",
		"shipping_region":  "Porto",
		"items": []map[string]any{
			{"product_id": productID.String(), "product_name": "Coffee Beans 1kg", "quantity": 2, "unit_price": 12.5},
		},
	}
}

func TestRouterHealthAndMetrics(t *testing.T) {
	f := newRouterFixture(t)

	resp, err := http.Get(f.server.URL + "/health/live")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "dev", resp.Header.Get("X-Fulfil-Env"))

	resp, err = http.Get(f.server.URL + "/health/ready")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(f.server.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterOrderLifecycle(t *testing.T) {
	f := newRouterFixture(t)
	productID := uuid.New()
	f.seedStock(t, productID, 10)

	// Place the order.
	resp := f.postJSON(t, "/api/v1/orders", createOrderPayload(productID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	data := decodeData(t, resp)
	require.NotNil(t, data["id"])
	assert.Equal(t, "awaiting_payment", data["status"])

	var stored models.Order
	require.NoError(t, f.db.First(&stored).Error)
	assert.Equal(t, "awaiting_payment", string(stored.Status))

	// Report the payment; the shipment is created on the way.
	resp = f.postJSON(t, fmt.Sprintf("/api/v1/orders/%s/payment", stored.ID), map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	var shipments int64
	require.NoError(t, f.db.Model(&models.Shipment{}).Count(&shipments).Error)
	assert.EqualValues(t, 1, shipments)

	// Carrier reports delivery; the order completes and gets an invoice.
	resp = f.postJSON(t, fmt.Sprintf("/api/v1/shipping/orders/%s/tracking", stored.ID), map[string]any{"status": "delivered"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	require.NoError(t, f.db.First(&stored, "id = ?", stored.ID.String()).Error)
	assert.Equal(t, "completed", string(stored.Status))

	// The tracking page shows the delivered progress bar.
	trackResp, err := http.Get(fmt.Sprintf("%s/api/v1/orders/my/%s/tracking?email=ana@example.com", f.server.URL, stored.ID))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, trackResp.StatusCode)
	trackData := decodeData(t, trackResp)
	assert.Equal(t, "delivered", trackData["shipping_status"])
}

func TestRouterCancelFlow(t *testing.T) {
	f := newRouterFixture(t)
	productID := uuid.New()
	f.seedStock(t, productID, 10)

	resp := f.postJSON(t, "/api/v1/orders", createOrderPayload(productID))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	var stored models.Order
	require.NoError(t, f.db.First(&stored).Error)

	req, err := http.NewRequest(http.MethodPut,
		fmt.Sprintf("%s/api/v1/orders/my/%s/cancel?email=ana@example.com", f.server.URL, stored.ID), nil)
	require.NoError(t, err)
	cancelResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	cancelResp.Body.Close()
	require.Equal(t, http.StatusOK, cancelResp.StatusCode)

	var qty int
	require.NoError(t, f.db.Raw(`SELECT quantity FROM store_stock`).Scan(&qty).Error)
	assert.Equal(t, 10, qty)
}

func TestRouterValidationErrorShape(t *testing.T) {
	f := newRouterFixture(t)

	resp := f.postJSON(t, "/api/v1/orders", map[string]any{"customer_name": "Ana"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	defer resp.Body.Close()

	var envelope struct {
		Error struct {
			Code    string         `json:"code"`
			Details map[string]any `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error.Code)
	assert.NotEmpty(t, envelope.Error.Details["missing_fields"])
}

func TestRouterDashboardSummary(t *testing.T) {
	f := newRouterFixture(t)
	productID := uuid.New()
	f.seedStock(t, productID, 3)

	resp, err := http.Get(f.server.URL + "/api/v1/orders/dashboard-summary")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decodeData(t, resp)
	assert.Contains(t, data, "orders_per_store")
	assert.Contains(t, data, "low_stock")
}

func TestRouterStoreEndpoints(t *testing.T) {
	f := newRouterFixture(t)

	resp, err := http.Get(f.server.URL + "/api/v1/stores")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
}

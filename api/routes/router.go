package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brunomarket/fulfillment-backend/api/controllers"
	"github.com/brunomarket/fulfillment-backend/api/middleware"
	"github.com/brunomarket/fulfillment-backend/internal/orders"
	"github.com/brunomarket/fulfillment-backend/internal/shipping"
	"github.com/brunomarket/fulfillment-backend/internal/stores"
	"github.com/brunomarket/fulfillment-backend/pkg/config"
	"github.com/brunomarket/fulfillment-backend/pkg/logger"
)

// NewRouter assembles the HTTP surface. Pass nil pingers for dependencies
// that are not wired; they are skipped in the readiness report.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	metricsRegistry *prometheus.Registry,
	storeSvc stores.Service,
	ordersSvc orders.Service,
	shippingSvc shipping.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})

	if metricsRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", controllers.OrderCreate(ordersSvc, logg))
			r.Get("/", controllers.OrderList(ordersSvc, logg))
			r.Get("/dashboard-summary", controllers.OrderDashboard(ordersSvc, logg))

			r.Route("/my", func(r chi.Router) {
				r.Get("/", controllers.MyOrders(ordersSvc, logg))
				r.Get("/{id}", controllers.MyOrderGet(ordersSvc, logg))
				r.Get("/{id}/tracking", controllers.MyOrderTracking(shippingSvc, logg))
				r.Put("/{id}/cancel", controllers.MyOrderCancel(ordersSvc, logg))
			})

			r.Get("/{id}", controllers.OrderGet(ordersSvc, logg))
			r.Put("/{id}/status", controllers.OrderUpdateStatus(ordersSvc, logg))
			r.Post("/{id}/payment", controllers.OrderRecordPayment(ordersSvc, logg))
		})

		r.Route("/shipping/orders/{id}", func(r chi.Router) {
			r.Post("/shipment", controllers.ShipmentCreate(shippingSvc, logg))
			r.Post("/tracking", controllers.ShipmentRecordTracking(shippingSvc, logg))
		})

		r.Route("/stores", func(r chi.Router) {
			r.Get("/", controllers.StoreList(storeSvc, logg))
			r.Get("/{id}", controllers.StoreGet(storeSvc, logg))
		})
	})

	return r
}

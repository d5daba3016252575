package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RoutingMetrics records store-selection and geocoder behavior.
type RoutingMetrics struct {
	selectionDuration *prometheus.HistogramVec
	selectionOutcome  *prometheus.CounterVec
	geocodeLookups    *prometheus.CounterVec
	stockConflicts    prometheus.Counter
}

// Selection outcomes.
const (
	OutcomeFull     = "full"
	OutcomePartial  = "partial"
	OutcomeFallback = "fallback"
)

// Geocode lookup sources.
const (
	GeocodeSourceLiteral   = "literal"
	GeocodeSourceGazetteer = "gazetteer"
	GeocodeSourceHotCache  = "hot_cache"
	GeocodeSourceDBCache   = "db_cache"
	GeocodeSourceRemote    = "remote"
	GeocodeSourceMiss      = "miss"
)

// NewRoutingMetrics registers the routing metrics on the provided registerer.
func NewRoutingMetrics(reg prometheus.Registerer) *RoutingMetrics {
	if reg == nil {
		return &RoutingMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_selection_duration_seconds",
		Help:    "Duration of store selection in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"strategy"})
	outcome := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "store_selection_outcome",
		Help: "Store selection results by outcome.",
	}, []string{"strategy", "outcome"})
	geocode := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geocode_lookups",
		Help: "Geocode lookups by resolution source.",
	}, []string{"source"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_reservation_conflicts",
		Help: "Reservations rejected because conditional decrements matched no rows.",
	})
	reg.MustRegister(duration, outcome, geocode, conflicts)
	return &RoutingMetrics{
		selectionDuration: duration,
		selectionOutcome:  outcome,
		geocodeLookups:    geocode,
		stockConflicts:    conflicts,
	}
}

// ObserveSelection records how long a selection took.
func (m *RoutingMetrics) ObserveSelection(strategy string, duration time.Duration) {
	if m == nil || m.selectionDuration == nil {
		return
	}
	m.selectionDuration.WithLabelValues(normalizeLabel(strategy)).Observe(duration.Seconds())
}

// IncOutcome counts one selection result.
func (m *RoutingMetrics) IncOutcome(strategy, outcome string) {
	if m == nil || m.selectionOutcome == nil {
		return
	}
	m.selectionOutcome.WithLabelValues(normalizeLabel(strategy), normalizeLabel(outcome)).Inc()
}

// IncGeocodeLookup counts one geocode resolution by source.
func (m *RoutingMetrics) IncGeocodeLookup(source string) {
	if m == nil || m.geocodeLookups == nil {
		return
	}
	m.geocodeLookups.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncStockConflict counts one failed conditional decrement.
func (m *RoutingMetrics) IncStockConflict() {
	if m == nil || m.stockConflicts == nil {
		return
	}
	m.stockConflicts.Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return strings.ReplaceAll(value, " ", "_")
}

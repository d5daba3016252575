package orders

import (
	"context"
	"time"

	pkgerrors "github.com/brunomarket/fulfillment-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// Dashboard defaults when the caller does not override them.
const (
	DefaultLowStockThreshold = 5
	DefaultLowStockLimit     = 10
)

// DayBucket is one day of the dashboard time series. Day is the ISO date,
// Label a short human form.
type DayBucket struct {
	Day     string          `json:"day"`
	Label   string          `json:"label"`
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

// DashboardSummary aggregates the operational dashboard payload.
type DashboardSummary struct {
	OrdersPerStore    []StoreOrderCount `json:"orders_per_store"`
	Last7Days         []DayBucket       `json:"last_7_days"`
	RevenueLast30Days []DayBucket       `json:"revenue_last_30_days"`
	LowStock          []LowStockItem    `json:"low_stock"`
}

// DashboardSummary builds the store, sales, and low-stock overview. The low
// stock report prefers the variant-level inventory table when it exists.
func (s *service) DashboardSummary(ctx context.Context, lowStockThreshold, lowStockLimit int) (*DashboardSummary, error) {
	if lowStockThreshold <= 0 {
		lowStockThreshold = DefaultLowStockThreshold
	}
	if lowStockLimit <= 0 {
		lowStockLimit = DefaultLowStockLimit
	}

	perStore, err := s.repo.CountByStore(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	points, err := s.repo.OrdersSince(ctx, dayStart(now.AddDate(0, 0, -29)))
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{
		OrdersPerStore:    perStore,
		Last7Days:         bucketByDay(points, now, 7, "Mon"),
		RevenueLast30Days: bucketByDay(points, now, 30, "02 Jan"),
	}

	caps, err := s.source.Detect(ctx, s.tx.DB())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "probing inventory capabilities")
	}
	switch {
	case caps.HasStoreInventory:
		summary.LowStock, err = s.repo.LowStockFromInventory(ctx, lowStockThreshold, lowStockLimit)
	case caps.HasStoreStock:
		summary.LowStock, err = s.repo.LowStockFromStoreStock(ctx, lowStockThreshold, lowStockLimit)
	default:
		summary.LowStock = []LowStockItem{}
	}
	if err != nil {
		return nil, err
	}
	if summary.LowStock == nil {
		summary.LowStock = []LowStockItem{}
	}
	return summary, nil
}

// bucketByDay fills a zeroed window of the trailing n days and folds the
// order points into it, so days without sales still appear.
func bucketByDay(points []orderPoint, now time.Time, days int, labelFormat string) []DayBucket {
	buckets := make([]DayBucket, 0, days)
	index := make(map[string]int, days)
	for i := days - 1; i >= 0; i-- {
		day := dayStart(now.AddDate(0, 0, -i))
		key := day.Format("2006-01-02")
		index[key] = len(buckets)
		buckets = append(buckets, DayBucket{
			Day:     key,
			Label:   day.Format(labelFormat),
			Revenue: decimal.Zero,
		})
	}

	for _, point := range points {
		key := point.CreatedAt.UTC().Format("2006-01-02")
		i, ok := index[key]
		if !ok {
			continue
		}
		buckets[i].Orders++
		buckets[i].Revenue = buckets[i].Revenue.Add(point.Total)
	}
	return buckets
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

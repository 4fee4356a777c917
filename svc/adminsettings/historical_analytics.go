package adminsettings

import (
	"context"
	"time"

	"encore.app/pkg/errs"
)

// HistoricalSalesData represents sales data for a specific period
type HistoricalSalesData struct {
	Period    string  `json:"period"` // Arabic month name
	Orders    int     `json:"orders"` // Number of delivered orders
	Revenue   float64 `json:"revenue"`
	CreatedAt string  `json:"created_at"`
}

// HistoricalSalesResponse represents the response for historical sales data
type HistoricalSalesResponse struct {
	Data   []HistoricalSalesData `json:"data"`
	Period string                `json:"period"`
	Total  struct {
		Orders  int     `json:"orders"`
		Revenue float64 `json:"revenue"`
	} `json:"total"`
}

// MaterialStats represents product performance by material
type MaterialStats struct {
	Material    string  `json:"material"`
	Count       int     `json:"count"`
	Percentage  float64 `json:"percentage"`
	Revenue     float64 `json:"revenue"`
	LastUpdated string  `json:"last_updated"`
}

// ProductPerformanceResponse represents product performance analytics
type ProductPerformanceResponse struct {
	Data        []MaterialStats `json:"data"`
	TotalItems  int             `json:"total_items"`
	Period      string          `json:"period"`
	LastUpdated string          `json:"last_updated"`
}

// RevenueAnalyticsData represents revenue data over time
type RevenueAnalyticsData struct {
	Period          string  `json:"period"`
	TotalRevenue    float64 `json:"total_revenue"`
	VATCollected    float64 `json:"vat_collected"`
	ShippingRevenue float64 `json:"shipping_revenue"`
	CancelledAmount float64 `json:"cancelled_amount"`
	NetRevenue      float64 `json:"net_revenue"`
	CreatedAt       string  `json:"created_at"`
}

// RevenueAnalyticsResponse represents revenue analytics response
type RevenueAnalyticsResponse struct {
	Data   []RevenueAnalyticsData `json:"data"`
	Period string                 `json:"period"`
	Growth struct {
		Percentage float64 `json:"percentage"`
		Amount     float64 `json:"amount"`
	} `json:"growth"`
	Summary struct {
		TotalRevenue     float64 `json:"total_revenue"`
		NetRevenue       float64 `json:"net_revenue"`
		CancellationRate float64 `json:"cancellation_rate"`
	} `json:"summary"`
}

// GetHistoricalSales returns monthly delivered-order counts and revenue
//
//encore:api auth method=GET path=/admin/analytics/sales
func (s *Service) GetHistoricalSales(ctx context.Context) (*HistoricalSalesResponse, error) {
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	// Get data for the last 6 months
	now := time.Now()
	var data []HistoricalSalesData
	var totalOrders int
	var totalRevenue float64

	for i := 5; i >= 0; i-- {
		monthStart := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)

		var ordersCount int64
		var monthRevenue float64
		err := db.QueryRow(ctx, `
			SELECT COUNT(*), COALESCE(SUM(grand_total), 0)
			FROM orders
			WHERE status = 'delivered'
			AND created_at >= $1 AND created_at <= $2
		`, monthStart, monthEnd).Scan(&ordersCount, &monthRevenue)
		if err != nil {
			ordersCount = 0
			monthRevenue = 0
		}

		data = append(data, HistoricalSalesData{
			Period:    getArabicMonth(monthStart.Month()),
			Orders:    int(ordersCount),
			Revenue:   monthRevenue,
			CreatedAt: monthStart.Format(time.RFC3339),
		})

		totalOrders += int(ordersCount)
		totalRevenue += monthRevenue
	}

	return &HistoricalSalesResponse{
		Data:   data,
		Period: "آخر 6 أشهر",
		Total: struct {
			Orders  int     `json:"orders"`
			Revenue float64 `json:"revenue"`
		}{
			Orders:  totalOrders,
			Revenue: totalRevenue,
		},
	}, nil
}

// GetProductPerformance returns product counts and delivered revenue by material
//
//encore:api auth method=GET path=/admin/analytics/products
func (s *Service) GetProductPerformance(ctx context.Context) (*ProductPerformanceResponse, error) {
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	rows, err := db.Stdlib().QueryContext(ctx, `
		SELECT p.material::text,
		       COUNT(DISTINCT p.id),
		       COALESCE(SUM(oi.line_total_gross) FILTER (WHERE o.status = 'delivered'), 0)
		FROM products p
		LEFT JOIN order_items oi ON oi.product_id = p.id
		LEFT JOIN orders o ON o.id = oi.order_id
		WHERE p.status <> 'archived'
		GROUP BY p.material
		ORDER BY COUNT(DISTINCT p.id) DESC
	`)
	if err != nil {
		return nil, errs.New(errs.Internal, "فشل جلب أداء المنتجات")
	}
	defer rows.Close()

	type matRow struct {
		material string
		count    int
		revenue  float64
	}
	var raw []matRow
	totalItems := 0
	for rows.Next() {
		var mr matRow
		if err := rows.Scan(&mr.material, &mr.count, &mr.revenue); err != nil {
			return nil, errs.New(errs.Internal, "فشل قراءة صف")
		}
		raw = append(raw, mr)
		totalItems += mr.count
	}

	now := time.Now().Format(time.RFC3339)
	var data []MaterialStats
	for _, mr := range raw {
		pct := 0.0
		if totalItems > 0 {
			pct = float64(mr.count) / float64(totalItems) * 100
		}
		data = append(data, MaterialStats{
			Material:    arabicMaterial(mr.material),
			Count:       mr.count,
			Percentage:  pct,
			Revenue:     mr.revenue,
			LastUpdated: now,
		})
	}

	return &ProductPerformanceResponse{
		Data:        data,
		TotalItems:  totalItems,
		Period:      "إجمالي المنتجات",
		LastUpdated: now,
	}, nil
}

// GetRevenueAnalytics returns detailed revenue analytics over time
//
//encore:api auth method=GET path=/admin/analytics/revenue
func (s *Service) GetRevenueAnalytics(ctx context.Context) (*RevenueAnalyticsResponse, error) {
	if !isAdmin() {
		return nil, errs.New(errs.Forbidden, "يتطلب صلاحيات مدير")
	}

	now := time.Now()
	var data []RevenueAnalyticsData
	var totalRevenue, totalCancelled float64

	for i := 5; i >= 0; i-- {
		monthStart := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		monthEnd := monthStart.AddDate(0, 1, 0).Add(-time.Second)

		var monthRevenue, monthVAT, monthShipping float64
		err := db.QueryRow(ctx, `
			SELECT COALESCE(SUM(grand_total), 0), COALESCE(SUM(vat_amount), 0), COALESCE(SUM(shipping_fee), 0)
			FROM orders
			WHERE status = 'delivered'
			AND created_at >= $1 AND created_at <= $2
		`, monthStart, monthEnd).Scan(&monthRevenue, &monthVAT, &monthShipping)
		if err != nil {
			monthRevenue, monthVAT, monthShipping = 0, 0, 0
		}

		var cancelledAmount float64
		err = db.QueryRow(ctx, `
			SELECT COALESCE(SUM(grand_total), 0)
			FROM orders
			WHERE status = 'cancelled'
			AND updated_at >= $1 AND updated_at <= $2
		`, monthStart, monthEnd).Scan(&cancelledAmount)
		if err != nil {
			cancelledAmount = 0
		}

		data = append(data, RevenueAnalyticsData{
			Period:          getArabicMonth(monthStart.Month()),
			TotalRevenue:    monthRevenue,
			VATCollected:    monthVAT,
			ShippingRevenue: monthShipping,
			CancelledAmount: cancelledAmount,
			NetRevenue:      monthRevenue - monthVAT,
			CreatedAt:       monthStart.Format(time.RFC3339),
		})

		totalRevenue += monthRevenue
		totalCancelled += cancelledAmount
	}

	// Calculate growth
	var growthPercentage float64
	var growthAmount float64
	if len(data) >= 2 {
		firstMonth := data[0].NetRevenue
		lastMonth := data[len(data)-1].NetRevenue
		if firstMonth > 0 {
			growthPercentage = (lastMonth - firstMonth) / firstMonth * 100
			growthAmount = lastMonth - firstMonth
		}
	}

	// Calculate cancellation rate
	cancellationRate := float64(0)
	if totalRevenue+totalCancelled > 0 {
		cancellationRate = totalCancelled / (totalRevenue + totalCancelled) * 100
	}

	netRevenue := 0.0
	for _, d := range data {
		netRevenue += d.NetRevenue
	}

	return &RevenueAnalyticsResponse{
		Data:   data,
		Period: "آخر 6 أشهر",
		Growth: struct {
			Percentage float64 `json:"percentage"`
			Amount     float64 `json:"amount"`
		}{
			Percentage: growthPercentage,
			Amount:     growthAmount,
		},
		Summary: struct {
			TotalRevenue     float64 `json:"total_revenue"`
			NetRevenue       float64 `json:"net_revenue"`
			CancellationRate float64 `json:"cancellation_rate"`
		}{
			TotalRevenue:     totalRevenue,
			NetRevenue:       netRevenue,
			CancellationRate: cancellationRate,
		},
	}, nil
}

// Helper function to get Arabic month names
func getArabicMonth(month time.Month) string {
	months := map[time.Month]string{
		time.January:   "يناير",
		time.February:  "فبراير",
		time.March:     "مارس",
		time.April:     "أبريل",
		time.May:       "مايو",
		time.June:      "يونيو",
		time.July:      "يوليو",
		time.August:    "أغسطس",
		time.September: "سبتمبر",
		time.October:   "أكتوبر",
		time.November:  "نوفمبر",
		time.December:  "ديسمبر",
	}
	return months[month]
}

func arabicMaterial(material string) string {
	names := map[string]string{
		"gold":     "ذهب",
		"silver":   "فضة",
		"platinum": "بلاتين",
		"diamond":  "ألماس",
		"pearl":    "لؤلؤ",
		"gemstone": "أحجار كريمة",
		"other":    "أخرى",
	}
	if n, ok := names[material]; ok {
		return n
	}
	return material
}

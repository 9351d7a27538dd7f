// Package stats computes the dashboard figures from the local tables.
package stats

import (
	"context"
	"fmt"
	"time"

	"possync/m/domain"
	"possync/m/internal/localstore"
)

type MonthlyRevenue struct {
	Month   string `db:"month" json:"month"`
	Revenue int64  `db:"revenue" json:"revenue"`
}

type CategorySales struct {
	Category string `db:"category" json:"category"`
	Sales    int64  `db:"sales" json:"sales"`
	Revenue  int64  `db:"revenue" json:"revenue"`
}

type TopProduct struct {
	ID         string `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	SalesCount int64  `db:"sales_count" json:"sales_count"`
	Revenue    int64  `db:"revenue" json:"revenue"`
}

type StockLevel struct {
	ID           string  `db:"id" json:"id"`
	Name         string  `db:"name" json:"name"`
	CurrentStock int64   `db:"current_stock" json:"current_stock"`
	MaxStock     int64   `db:"max_stock" json:"max_stock"`
	Percentage   float64 `db:"-" json:"percentage"`
}

type TopCustomer struct {
	ID            string `db:"id" json:"id"`
	Name          string `db:"name" json:"name"`
	OrderCount    int64  `db:"order_count" json:"order_count"`
	TotalSpent    int64  `db:"total_spent" json:"total_spent"`
	LastOrderDate string `db:"last_order_date" json:"last_order_date"`
}

type ProductShare struct {
	Name       string  `db:"name" json:"name"`
	Value      int64   `db:"value" json:"value"`
	Percentage float64 `db:"-" json:"percentage"`
}

// Period selects the window for category sales.
type Period string

const (
	PeriodMonth Period = "month"
	PeriodWeek  Period = "week"
)

type Service struct {
	store *localstore.Store
	now   func() time.Time
}

func New(store *localstore.Store, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, now: now}
}

// LastSixMonthsRevenue sums order totals per calendar month, oldest first,
// including months without sales.
func (s *Service) LastSixMonthsRevenue(ctx context.Context) ([]MonthlyRevenue, error) {
	now := s.now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -5, 0)

	rows, err := localstore.QueryAll[MonthlyRevenue](ctx, s.store,
		`SELECT substr(created_at, 1, 7) AS month, COALESCE(SUM(total_amount), 0) AS revenue
            FROM orders
            WHERE created_at >= ?
            GROUP BY month`, domain.FormatTime(first))
	if err != nil {
		return nil, err
	}
	byMonth := make(map[string]int64, len(rows))
	for _, r := range rows {
		byMonth[r.Month] = r.Revenue
	}

	out := make([]MonthlyRevenue, 0, 6)
	for i := 0; i < 6; i++ {
		month := first.AddDate(0, i, 0).Format("2006-01")
		out = append(out, MonthlyRevenue{Month: month, Revenue: byMonth[month]})
	}
	return out, nil
}

// CategorySales totals completed sales per category over the last month or
// week, best revenue first. Categories without sales are left out.
func (s *Service) CategorySales(ctx context.Context, period Period) ([]CategorySales, error) {
	now := s.now()
	var since time.Time
	switch period {
	case PeriodMonth, "":
		since = now.AddDate(0, -1, 0)
	case PeriodWeek:
		since = now.AddDate(0, 0, -7)
	default:
		return nil, fmt.Errorf("unknown period %q", period)
	}
	return localstore.QueryAll[CategorySales](ctx, s.store,
		`SELECT c.name AS category, SUM(oi.quantity) AS sales, SUM(oi.quantity * oi.unit_price) AS revenue
            FROM orders o
            JOIN order_items oi ON oi.order_id = o.id
            JOIN products p ON p.id = oi.product_id
            JOIN categories c ON c.id = p.category_id
            WHERE o.status = ? AND o.created_at >= ?
            GROUP BY c.id, c.name
            HAVING SUM(oi.quantity) > 0
            ORDER BY revenue DESC`, domain.OrderCompleted, domain.FormatTime(since))
}

// TopSellingProducts ranks products by units sold across all orders.
func (s *Service) TopSellingProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 6
	}
	return localstore.QueryAll[TopProduct](ctx, s.store,
		`SELECT oi.product_id AS id, COALESCE(p.name, 'Unknown') AS name,
                SUM(oi.quantity) AS sales_count, SUM(oi.quantity * oi.unit_price) AS revenue
            FROM order_items oi
            LEFT JOIN products p ON p.id = oi.product_id
            GROUP BY oi.product_id
            ORDER BY sales_count DESC, revenue DESC
            LIMIT ?`, limit)
}

// StockLevels reports each product against a nominal capacity of current
// stock plus twice its alert threshold.
func (s *Service) StockLevels(ctx context.Context) ([]StockLevel, error) {
	levels, err := localstore.QueryAll[StockLevel](ctx, s.store,
		`SELECT id, name, stock_quantity AS current_stock, stock_quantity + 2 * alert_threshold AS max_stock
            FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	for i := range levels {
		if levels[i].MaxStock > 0 {
			levels[i].Percentage = float64(levels[i].CurrentStock) / float64(levels[i].MaxStock) * 100
		}
	}
	return levels, nil
}

// TopCustomers ranks customers by the total of their completed orders.
func (s *Service) TopCustomers(ctx context.Context, limit int) ([]TopCustomer, error) {
	if limit <= 0 {
		limit = 10
	}
	return localstore.QueryAll[TopCustomer](ctx, s.store,
		`SELECT c.id, c.name, COUNT(o.id) AS order_count, SUM(o.total_amount) AS total_spent,
                MAX(o.created_at) AS last_order_date
            FROM orders o
            JOIN customers c ON c.id = o.customer_id
            WHERE o.status = ?
            GROUP BY c.id, c.name
            ORDER BY total_spent DESC
            LIMIT ?`, domain.OrderCompleted, limit)
}

// CriticalStock lists low-stock products, the most depleted relative to
// their threshold first.
func (s *Service) CriticalStock(ctx context.Context) ([]domain.Product, error) {
	return localstore.QueryAll[domain.Product](ctx, s.store,
		`SELECT id, name, description, price, stock_quantity, alert_threshold, category_id,
                supplier, image_url, created_at, updated_at
            FROM products
            WHERE stock_quantity <= alert_threshold
            ORDER BY CASE WHEN alert_threshold > 0 THEN CAST(stock_quantity AS REAL) / alert_threshold ELSE stock_quantity END, name`)
}

// SalesDistribution gives each product's share of all units sold.
func (s *Service) SalesDistribution(ctx context.Context) ([]ProductShare, error) {
	shares, err := localstore.QueryAll[ProductShare](ctx, s.store,
		`SELECT p.name, SUM(oi.quantity) AS value
            FROM order_items oi
            JOIN products p ON p.id = oi.product_id
            GROUP BY p.id, p.name
            HAVING SUM(oi.quantity) > 0
            ORDER BY value DESC`)
	if err != nil {
		return nil, err
	}
	var total int64
	for _, sh := range shares {
		total += sh.Value
	}
	for i := range shares {
		if total > 0 {
			shares[i].Percentage = float64(shares[i].Value) / float64(total) * 100
		}
	}
	return shares, nil
}

package stats_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"possync/m/internal/localstore"
	"possync/m/internal/localstore/storetest"
	"possync/m/internal/stats"
)

var clock = time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T) *localstore.Store {
	t.Helper()
	store := storetest.New(t)
	ctx := context.Background()
	stmts := []string{
		`INSERT INTO categories (id, name, created_at) VALUES ('cat-drinks', 'Drinks', '2026-01-01T00:00:00.000Z'), ('cat-food', 'Food', '2026-01-01T00:00:00.000Z')`,
		`INSERT INTO products (id, name, price, stock_quantity, alert_threshold, category_id, created_at, updated_at) VALUES
            ('tea', 'Tea', 500, 1, 4, 'cat-drinks', '2026-01-01T00:00:00.000Z', '2026-01-01T00:00:00.000Z'),
            ('cake', 'Cake', 1200, 10, 5, 'cat-food', '2026-01-01T00:00:00.000Z', '2026-01-01T00:00:00.000Z'),
            ('mug', 'Mug', 900, 1, 2, NULL, '2026-01-01T00:00:00.000Z', '2026-01-01T00:00:00.000Z')`,
		`INSERT INTO customers (id, name, created_at) VALUES ('amina', 'Amina', '2026-01-01T00:00:00.000Z'), ('bilal', 'Bilal', '2026-01-01T00:00:00.000Z')`,
		`INSERT INTO orders (id, customer_id, total_amount, status, created_by, created_at) VALUES
            ('o1', 'amina', 2200, 'completed', 'u', '2026-10-10T09:00:00.000Z'),
            ('o2', 'bilal', 500, 'completed', 'u', '2026-09-01T09:00:00.000Z'),
            ('o3', 'amina', 900, 'pending', 'u', '2026-10-12T09:00:00.000Z'),
            ('o4', 'bilal', 300, 'completed', 'u', '2026-03-01T09:00:00.000Z')`,
		`INSERT INTO order_items (id, order_id, product_id, quantity, unit_price) VALUES
            ('i1', 'o1', 'tea', 2, 500),
            ('i2', 'o1', 'cake', 1, 1200),
            ('i3', 'o2', 'tea', 1, 500),
            ('i4', 'o3', 'mug', 1, 900),
            ('i5', 'o4', 'tea', 1, 300)`,
	}
	for _, stmt := range stmts {
		_, err := store.Execute(ctx, stmt)
		require.NoError(t, err)
	}
	return store
}

func newService(t *testing.T) *stats.Service {
	return stats.New(seed(t), func() time.Time { return clock })
}

func TestLastSixMonthsRevenue(t *testing.T) {
	got, err := newService(t).LastSixMonthsRevenue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []stats.MonthlyRevenue{
		{Month: "2026-05", Revenue: 0},
		{Month: "2026-06", Revenue: 0},
		{Month: "2026-07", Revenue: 0},
		{Month: "2026-08", Revenue: 0},
		{Month: "2026-09", Revenue: 500},
		{Month: "2026-10", Revenue: 3100},
	}, got)
}

func TestCategorySales(t *testing.T) {
	svc := newService(t)

	month, err := svc.CategorySales(context.Background(), stats.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, []stats.CategorySales{
		{Category: "Food", Sales: 1, Revenue: 1200},
		{Category: "Drinks", Sales: 2, Revenue: 1000},
	}, month)

	week, err := svc.CategorySales(context.Background(), stats.PeriodWeek)
	require.NoError(t, err)
	assert.Len(t, week, 2)

	_, err = svc.CategorySales(context.Background(), "year")
	assert.Error(t, err)
}

func TestTopSellingProducts(t *testing.T) {
	got, err := newService(t).TopSellingProducts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, stats.TopProduct{ID: "tea", Name: "Tea", SalesCount: 4, Revenue: 1800}, got[0])
}

func TestTopCustomers(t *testing.T) {
	got, err := newService(t).TopCustomers(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []stats.TopCustomer{
		{ID: "amina", Name: "Amina", OrderCount: 1, TotalSpent: 2200, LastOrderDate: "2026-10-10T09:00:00.000Z"},
		{ID: "bilal", Name: "Bilal", OrderCount: 2, TotalSpent: 800, LastOrderDate: "2026-09-01T09:00:00.000Z"},
	}, got)
}

func TestStockLevelsAndCriticalStock(t *testing.T) {
	svc := newService(t)

	levels, err := svc.StockLevels(context.Background())
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, "Cake", levels[0].Name)
	assert.Equal(t, int64(20), levels[0].MaxStock)
	assert.InDelta(t, 50.0, levels[0].Percentage, 0.001)

	critical, err := svc.CriticalStock(context.Background())
	require.NoError(t, err)
	require.Len(t, critical, 2)
	assert.Equal(t, "Tea", critical[0].Name)
	assert.Equal(t, "Mug", critical[1].Name)
}

func TestSalesDistribution(t *testing.T) {
	got, err := newService(t).SalesDistribution(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Tea", got[0].Name)
	assert.InDelta(t, 66.666, got[0].Percentage, 0.01)

	var sum float64
	for _, s := range got {
		sum += s.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.001)
}

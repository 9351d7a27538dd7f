package service_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"possync/m/domain"
	"possync/m/internal/localstore"
	"possync/m/internal/service"
)

func TestCreateOrderScenario(t *testing.T) {
	svc, store := newServices(t)
	ctx := context.Background()

	customer, err := svc.Customers.Create(ctx, service.CustomerInput{Name: "Amina"})
	require.NoError(t, err)
	p1 := createProduct(t, svc, "Tea", 500, 10)
	p2 := createProduct(t, svc, "Coffee", 1200, 4)

	orderID, err := svc.Orders.Create(ctx, service.OrderInput{
		CustomerID: customer.ID,
		CreatedBy:  "user-1",
		Items: []service.OrderLine{
			{ProductID: p1.ID, Quantity: 2, UnitPrice: 500},
			{ProductID: p2.ID, Quantity: 1, UnitPrice: 1200},
		},
	})
	require.NoError(t, err)

	order, err := svc.Orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(2200), order.TotalAmount)
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.Equal(t, domain.SyncPending, order.SyncStatus)
	assert.Equal(t, "user-1", order.CreatedBy)

	got1, err := svc.Products.GetByID(ctx, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got1.StockQuantity)
	got2, err := svc.Products.GetByID(ctx, p2.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got2.StockQuantity)

	for _, tc := range []struct {
		productID string
		quantity  int64
	}{{p1.ID, -2}, {p2.ID, -1}} {
		movements, err := svc.Stock.GetProductMovements(ctx, tc.productID)
		require.NoError(t, err)
		var sales []domain.StockMovement
		for _, m := range movements {
			if m.MovementType == domain.MovementSale {
				sales = append(sales, m)
			}
		}
		require.Len(t, sales, 1)
		assert.Equal(t, tc.quantity, sales[0].Quantity)
		require.NotNil(t, sales[0].Description)
		assert.Equal(t, "Order "+orderID, *sales[0].Description)
	}

	withItems, err := svc.Orders.GetWithItems(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, withItems.Items, 2)
	assert.Equal(t, "Tea", withItems.Items[0].ProductName)
	assert.Equal(t, int64(1000), withItems.Items[0].Subtotal())
	assert.Equal(t, int64(1200), withItems.Items[1].Subtotal())

	orders, err := svc.Orders.GetCustomerOrders(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, orders, 1)

	// One batch holding every write of the order, in workflow order.
	batch := lastBatch(t, store)
	require.NotNil(t, batch)
	var got []string
	for _, e := range batch.Entries {
		got = append(got, string(e.Op)+" "+e.Table)
	}
	assert.Equal(t, []string{
		"PUT orders",
		"PUT order_items", "PATCH products", "PUT stock_movements",
		"PUT order_items", "PATCH products", "PUT stock_movements",
	}, got)
}

func TestOrderUsesSnapshotPrice(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	p := createProduct(t, svc, "Tea", 500, 10)

	orderID, err := svc.Orders.Create(ctx, service.OrderInput{
		CustomerID: "c1",
		Items:      []service.OrderLine{{ProductID: p.ID, Quantity: 3, UnitPrice: 450}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Products.Update(ctx, p.ID, service.ProductPatch{Price: int64Ptr(900)}))

	withItems, err := svc.Orders.GetWithItems(ctx, orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(1350), withItems.Order.TotalAmount)
	assert.Equal(t, int64(450), withItems.Items[0].UnitPrice)
}

func TestOrderTotal(t *testing.T) {
	assert.Equal(t, int64(0), service.OrderTotal(nil))
	assert.Equal(t, int64(2200), service.OrderTotal([]service.OrderLine{
		{Quantity: 2, UnitPrice: 500},
		{Quantity: 1, UnitPrice: 1200},
	}))
}

func TestCreateOrderRollsBackOnMissingProduct(t *testing.T) {
	svc, store := newServices(t)
	ctx := context.Background()
	p := createProduct(t, svc, "Tea", 500, 10)
	before := pending(t, store)

	_, err := svc.Orders.Create(ctx, service.OrderInput{
		CustomerID: "c1",
		Items: []service.OrderLine{
			{ProductID: p.ID, Quantity: 2, UnitPrice: 500},
			{ProductID: "missing", Quantity: 1, UnitPrice: 100},
		},
	})
	require.ErrorIs(t, err, service.ErrNotFound)

	orders, err := svc.Orders.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)

	got, err := svc.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.StockQuantity)

	movements, err := svc.Stock.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, domain.MovementAdjustment, movements[0].MovementType)
	assert.Equal(t, before, pending(t, store))
}

func TestCreateOrderValidation(t *testing.T) {
	svc, store := newServices(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   service.OrderInput
	}{
		{"no customer", service.OrderInput{Items: []service.OrderLine{{ProductID: "p", Quantity: 1}}}},
		{"no items", service.OrderInput{CustomerID: "c"}},
		{"zero quantity", service.OrderInput{CustomerID: "c", Items: []service.OrderLine{{ProductID: "p"}}}},
		{"negative price", service.OrderInput{CustomerID: "c", Items: []service.OrderLine{{ProductID: "p", Quantity: 1, UnitPrice: -1}}}},
		{"no product", service.OrderInput{CustomerID: "c", Items: []service.OrderLine{{Quantity: 1}}}},
		{"line overflow", service.OrderInput{CustomerID: "c", Items: []service.OrderLine{
			{ProductID: "p", Quantity: 2, UnitPrice: math.MaxInt64/2 + 1},
		}}},
		{"total overflow", service.OrderInput{CustomerID: "c", Items: []service.OrderLine{
			{ProductID: "p", Quantity: 1, UnitPrice: math.MaxInt64},
			{ProductID: "q", Quantity: 1, UnitPrice: 1},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Orders.Create(ctx, tt.in)
			assert.ErrorIs(t, err, service.ErrValidation)
		})
	}
	assert.Zero(t, pending(t, store))
}

func TestUpdateStatusStateMachine(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	p := createProduct(t, svc, "Tea", 500, 10)

	newOrder := func() string {
		id, err := svc.Orders.Create(ctx, service.OrderInput{
			CustomerID: "c1",
			Items:      []service.OrderLine{{ProductID: p.ID, Quantity: 1, UnitPrice: 500}},
		})
		require.NoError(t, err)
		return id
	}

	completed := newOrder()
	require.NoError(t, svc.Orders.UpdateStatus(ctx, completed, domain.OrderCompleted))
	assert.ErrorIs(t, svc.Orders.UpdateStatus(ctx, completed, domain.OrderCancelled), service.ErrInvalidTransition)
	assert.ErrorIs(t, svc.Orders.UpdateStatus(ctx, completed, domain.OrderPending), service.ErrInvalidTransition)

	cancelled := newOrder()
	require.NoError(t, svc.Orders.UpdateStatus(ctx, cancelled, domain.OrderCancelled))
	assert.ErrorIs(t, svc.Orders.UpdateStatus(ctx, cancelled, domain.OrderCompleted), service.ErrInvalidTransition)

	pendingOrder := newOrder()
	assert.ErrorIs(t, svc.Orders.UpdateStatus(ctx, pendingOrder, domain.OrderPending), service.ErrInvalidTransition)
	assert.ErrorIs(t, svc.Orders.UpdateStatus(ctx, pendingOrder, "shipped"), service.ErrValidation)
	assert.ErrorIs(t, svc.Orders.UpdateStatus(ctx, "missing", domain.OrderCompleted), service.ErrNotFound)

	order, err := svc.Orders.GetByID(ctx, completed)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, order.Status)
}

func TestUpdateStatusQueuesSingleColumnPatch(t *testing.T) {
	svc, store := newServices(t)
	ctx := context.Background()
	p := createProduct(t, svc, "Tea", 500, 10)
	id, err := svc.Orders.Create(ctx, service.OrderInput{
		CustomerID: "c1",
		Items:      []service.OrderLine{{ProductID: p.ID, Quantity: 1, UnitPrice: 500}},
	})
	require.NoError(t, err)

	require.NoError(t, svc.Orders.UpdateStatus(ctx, id, domain.OrderCompleted))

	batch := lastBatch(t, store)
	require.Len(t, batch.Entries, 1)
	assert.Equal(t, localstore.OpPatch, batch.Entries[0].Op)
	data, err := batch.Entries[0].OpData()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"status": "completed"}, data)
}

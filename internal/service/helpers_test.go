package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"possync/m/domain"
	"possync/m/internal/localstore"
	"possync/m/internal/localstore/storetest"
	"possync/m/internal/service"
)

func newServices(t *testing.T) (*service.Services, *localstore.Store) {
	t.Helper()
	store := storetest.New(t)
	return service.New(store, zap.NewNop()), store
}

func createProduct(t *testing.T, svc *service.Services, name string, price, stock int64) *domain.Product {
	t.Helper()
	p, err := svc.Products.Create(context.Background(), service.ProductInput{
		Name:           name,
		Price:          price,
		StockQuantity:  stock,
		AlertThreshold: 5,
	})
	require.NoError(t, err)
	return p
}

// lastBatch returns the newest pending batch.
func lastBatch(t *testing.T, store *localstore.Store) *localstore.CrudTransaction {
	t.Helper()
	var last *localstore.CrudTransaction
	var after int64
	for {
		batch, err := store.NextPendingTransactionAfter(context.Background(), after)
		require.NoError(t, err)
		if batch == nil {
			return last
		}
		last, after = batch, batch.ID
	}
}

func pending(t *testing.T, store *localstore.Store) int {
	t.Helper()
	n, err := store.PendingCount(context.Background())
	require.NoError(t, err)
	return n
}

func strPtr(s string) *string { return &s }

func int64Ptr(v int64) *int64 { return &v }

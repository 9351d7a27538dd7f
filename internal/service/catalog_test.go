package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"possync/m/internal/service"
)

func TestCategoryLifecycle(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	cat, err := svc.Categories.Create(ctx, "Drinks")
	require.NoError(t, err)
	require.NoError(t, svc.Categories.Update(ctx, cat.ID, "Hot drinks"))

	got, err := svc.Categories.GetByID(ctx, cat.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hot drinks", got.Name)

	_, err = svc.Categories.Create(ctx, "")
	assert.ErrorIs(t, err, service.ErrValidation)
	assert.ErrorIs(t, svc.Categories.Update(ctx, "missing", "x"), service.ErrNotFound)

	_, err = svc.Products.Create(ctx, service.ProductInput{Name: "Tea", CategoryID: &cat.ID})
	require.NoError(t, err)
	res, err := svc.Categories.SafeDelete(ctx, cat.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)

	empty, err := svc.Categories.Create(ctx, "Snacks")
	require.NoError(t, err)
	res, err = svc.Categories.SafeDelete(ctx, empty.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)

	all, err := svc.Categories.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSupplierSequentialIDs(t *testing.T) {
	svc, store := newServices(t)
	ctx := context.Background()

	first, err := svc.Suppliers.Create(ctx, service.SupplierInput{Name: "Acme"})
	require.NoError(t, err)
	second, err := svc.Suppliers.Create(ctx, service.SupplierInput{Name: "Globex", Phone: strPtr("0611")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)

	batch := lastBatch(t, store)
	assert.Equal(t, "2", batch.Entries[0].RowID)

	require.NoError(t, svc.Suppliers.Update(ctx, first.ID, service.SupplierPatch{Name: strPtr("Acme Ltd")}))
	got, err := svc.Suppliers.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Ltd", got.Name)

	err = svc.Suppliers.Update(ctx, 99, service.SupplierPatch{Name: strPtr("Nobody")})
	assert.ErrorIs(t, err, service.ErrNotFound)
	err = svc.Suppliers.Update(ctx, first.ID, service.SupplierPatch{Name: strPtr(" ")})
	assert.ErrorIs(t, err, service.ErrValidation)

	_, err = svc.Products.Create(ctx, service.ProductInput{Name: "Tea", Supplier: &first.ID})
	require.NoError(t, err)
	res, err := svc.Suppliers.SafeDelete(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, res.Success)

	res, err = svc.Suppliers.SafeDelete(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, res.Success)
	_, err = svc.Suppliers.GetByID(ctx, second.ID)
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestSupplierUpdateKeepsUnsetFields(t *testing.T) {
	svc, store := newServices(t)
	ctx := context.Background()

	sup, err := svc.Suppliers.Create(ctx, service.SupplierInput{Name: "Acme", Phone: strPtr("555")})
	require.NoError(t, err)

	require.NoError(t, svc.Suppliers.Update(ctx, sup.ID, service.SupplierPatch{Name: strPtr("Acme 2")}))

	got, err := svc.Suppliers.GetByID(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme 2", got.Name)
	require.NotNil(t, got.Phone)
	assert.Equal(t, "555", *got.Phone)

	batch := lastBatch(t, store)
	require.Len(t, batch.Entries, 1)
	data, err := batch.Entries[0].OpData()
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Acme 2"}, data)
}

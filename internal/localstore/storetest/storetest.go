// Package storetest opens throwaway in-memory stores for tests.
package storetest

import (
	"testing"

	"go.uber.org/zap"

	"possync/m/internal/database"
	"possync/m/internal/localstore"
	"possync/m/internal/migrations"
)

// New returns a migrated in-memory store that is closed with the test.
func New(t testing.TB) *localstore.Store {
	t.Helper()

	db, err := database.Connect(":memory:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.Run(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return localstore.New(db, zap.NewNop())
}

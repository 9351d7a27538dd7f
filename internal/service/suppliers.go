package service

import (
	"context"
	"strconv"
	"strings"

	"possync/m/domain"
	"possync/m/internal/localstore"
)

type SupplierInput struct {
	Name  string  `json:"name"`
	Phone *string `json:"phone"`
}

// SupplierPatch carries the fields to change; nil fields are left alone.
type SupplierPatch struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
}

// SupplierService hands out sequential ids. Suppliers are only created from
// the back office, so concurrent creation on two devices is not expected.
type SupplierService struct {
	store *localstore.Store
}

func (s *SupplierService) GetAll(ctx context.Context) ([]domain.Supplier, error) {
	return localstore.QueryAll[domain.Supplier](ctx, s.store,
		`SELECT id, name, phone, created_at FROM suppliers ORDER BY created_at DESC`)
}

func (s *SupplierService) GetByID(ctx context.Context, id int64) (*domain.Supplier, error) {
	sup, err := localstore.Get[domain.Supplier](ctx, s.store,
		`SELECT id, name, phone, created_at FROM suppliers WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if sup == nil {
		return nil, notFound("supplier", strconv.FormatInt(id, 10))
	}
	return sup, nil
}

func (s *SupplierService) Create(ctx context.Context, in SupplierInput) (*domain.Supplier, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validation("name is required")
	}
	sup := domain.Supplier{Name: in.Name, Phone: trimmed(in.Phone), CreatedAt: domain.Now()}
	err := s.store.WriteTransaction(ctx, func(tx *localstore.Tx) error {
		if err := tx.GetContext(ctx, &sup.ID, `SELECT COALESCE(MAX(id), 0) + 1 FROM suppliers`); err != nil {
			return err
		}
		_, err := tx.Execute(ctx, `INSERT INTO suppliers (id, name, phone, created_at) VALUES (?, ?, ?, ?)`,
			sup.ID, sup.Name, sup.Phone, sup.CreatedAt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &sup, nil
}

func (s *SupplierService) Update(ctx context.Context, id int64, patch SupplierPatch) error {
	var set assignments
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return validation("name cannot be empty")
		}
		set.add("name", name)
	}
	if patch.Phone != nil {
		set.add("phone", trimmed(patch.Phone))
	}
	if set.empty() {
		_, err := s.GetByID(ctx, id)
		return err
	}

	n, err := s.store.Execute(ctx, `UPDATE suppliers SET `+set.clause()+` WHERE id = ?`, append(set.args, id)...)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("supplier", strconv.FormatInt(id, 10))
	}
	return nil
}

// SafeDelete refuses to delete a supplier that products still point at.
func (s *SupplierService) SafeDelete(ctx context.Context, id int64) (DeleteResult, error) {
	return guardedDelete(ctx, s.store, "suppliers", "supplier", id, []reference{
		{table: "products", column: "supplier", noun: "products"},
	})
}

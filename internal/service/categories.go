package service

import (
	"context"
	"strings"

	"possync/m/domain"
	"possync/m/internal/localstore"
)

type CategoryService struct {
	store *localstore.Store
}

func (s *CategoryService) GetAll(ctx context.Context) ([]domain.Category, error) {
	return localstore.QueryAll[domain.Category](ctx, s.store,
		`SELECT id, name, created_at FROM categories ORDER BY created_at DESC`)
}

func (s *CategoryService) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	c, err := localstore.Get[domain.Category](ctx, s.store,
		`SELECT id, name, created_at FROM categories WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("category", id)
	}
	return c, nil
}

func (s *CategoryService) Create(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validation("name is required")
	}
	c := domain.Category{ID: newID(), Name: name, CreatedAt: domain.Now()}
	if _, err := s.store.Execute(ctx, `INSERT INTO categories (id, name, created_at) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryService) Update(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validation("name is required")
	}
	n, err := s.store.Execute(ctx, `UPDATE categories SET name = ? WHERE id = ?`, name, id)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("category", id)
	}
	return nil
}

// SafeDelete refuses to delete a category that products still belong to.
func (s *CategoryService) SafeDelete(ctx context.Context, id string) (DeleteResult, error) {
	return guardedDelete(ctx, s.store, "categories", "category", id, []reference{
		{table: "products", column: "category_id", noun: "products"},
	})
}

package service

import (
	"context"
	"strings"

	"possync/m/domain"
	"possync/m/internal/localstore"
)

type CustomerInput struct {
	Name    string  `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type CustomerPatch struct {
	Name    *string `json:"name"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
}

type CustomerService struct {
	store *localstore.Store
}

const customerColumns = `id, name, email, phone, address, created_at`

func (s *CustomerService) GetAll(ctx context.Context) ([]domain.Customer, error) {
	return localstore.QueryAll[domain.Customer](ctx, s.store,
		`SELECT `+customerColumns+` FROM customers ORDER BY created_at DESC`)
}

func (s *CustomerService) GetByID(ctx context.Context, id string) (*domain.Customer, error) {
	c, err := localstore.Get[domain.Customer](ctx, s.store,
		`SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, notFound("customer", id)
	}
	return c, nil
}

// Search matches name, email and phone. A blank query matches nothing.
func (s *CustomerService) Search(ctx context.Context, query string) ([]domain.Customer, error) {
	pattern, ok := likePattern(query)
	if !ok {
		return []domain.Customer{}, nil
	}
	return localstore.QueryAll[domain.Customer](ctx, s.store, `SELECT `+customerColumns+` FROM customers
        WHERE LOWER(name) LIKE ? ESCAPE '\'
            OR LOWER(COALESCE(email, '')) LIKE ? ESCAPE '\'
            OR LOWER(COALESCE(phone, '')) LIKE ? ESCAPE '\'
        ORDER BY name`, pattern, pattern, pattern)
}

// WithEmail lists customers that can receive email campaigns.
func (s *CustomerService) WithEmail(ctx context.Context) ([]domain.Customer, error) {
	return localstore.QueryAll[domain.Customer](ctx, s.store,
		`SELECT `+customerColumns+` FROM customers WHERE email IS NOT NULL AND email != '' ORDER BY name`)
}

func (s *CustomerService) Create(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validation("name is required")
	}
	c := domain.Customer{
		ID:        newID(),
		Name:      in.Name,
		Email:     trimmed(in.Email),
		Phone:     trimmed(in.Phone),
		Address:   trimmed(in.Address),
		CreatedAt: domain.Now(),
	}
	_, err := s.store.Execute(ctx, `INSERT INTO customers (id, name, email, phone, address, created_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Address, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update applies only the provided fields. An empty patch changes nothing.
func (s *CustomerService) Update(ctx context.Context, id string, patch CustomerPatch) error {
	var set assignments
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return validation("name cannot be empty")
		}
		set.add("name", name)
	}
	if patch.Email != nil {
		set.add("email", trimmed(patch.Email))
	}
	if patch.Phone != nil {
		set.add("phone", trimmed(patch.Phone))
	}
	if patch.Address != nil {
		set.add("address", trimmed(patch.Address))
	}
	if set.empty() {
		_, err := s.GetByID(ctx, id)
		return err
	}

	n, err := s.store.Execute(ctx, `UPDATE customers SET `+set.clause()+` WHERE id = ?`, append(set.args, id)...)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("customer", id)
	}
	return nil
}

// SafeDelete refuses to delete a customer who has orders.
func (s *CustomerService) SafeDelete(ctx context.Context, id string) (DeleteResult, error) {
	return guardedDelete(ctx, s.store, "customers", "customer", id, []reference{
		{table: "orders", column: "customer_id", noun: "orders"},
	})
}

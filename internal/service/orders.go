package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"possync/m/domain"
	"possync/m/internal/localstore"
)

type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type OrderInput struct {
	CustomerID string      `json:"customer_id"`
	Items      []OrderLine `json:"items"`
	CreatedBy  string      `json:"created_by"`
}

type OrderService struct {
	store *localstore.Store
	log   *zap.Logger
}

const orderColumns = `id, customer_id, total_amount, status, created_by, created_at, sync_status`

// OrderTotal sums quantity times the snapshot unit price of every line. The
// lines must have passed validation, which rules out overflow.
func OrderTotal(items []OrderLine) int64 {
	var total int64
	for _, item := range items {
		total += item.Quantity * item.UnitPrice
	}
	return total
}

func (in OrderInput) validate() error {
	if strings.TrimSpace(in.CustomerID) == "" {
		return validation("customer_id is required")
	}
	if len(in.Items) == 0 {
		return validation("at least one item is required")
	}
	var total int64
	for i, item := range in.Items {
		if item.ProductID == "" {
			return validation("item %d: product_id is required", i)
		}
		if item.Quantity <= 0 {
			return validation("item %d: quantity must be positive", i)
		}
		if item.UnitPrice < 0 {
			return validation("item %d: unit_price cannot be negative", i)
		}
		if item.UnitPrice != 0 && item.Quantity > math.MaxInt64/item.UnitPrice {
			return validation("item %d: amount is too large", i)
		}
		subtotal := item.Quantity * item.UnitPrice
		if total > math.MaxInt64-subtotal {
			return validation("order total is too large")
		}
		total += subtotal
	}
	return nil
}

// Create places an order: the order row, one item per line at the given
// unit price, a stock decrement and a sale movement per line. All of it
// commits together or not at all. It returns the new order id.
func (s *OrderService) Create(ctx context.Context, in OrderInput) (string, error) {
	if err := in.validate(); err != nil {
		return "", err
	}

	orderID := newID()
	now := domain.Now()
	total := OrderTotal(in.Items)

	err := s.store.WriteTransaction(ctx, func(tx *localstore.Tx) error {
		if _, err := tx.Execute(ctx, `INSERT INTO orders (`+orderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			orderID, in.CustomerID, total, domain.OrderPending, in.CreatedBy, now, domain.SyncPending); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		for _, item := range in.Items {
			if _, err := tx.Execute(ctx, `INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, created_at)
                VALUES (?, ?, ?, ?, ?, ?)`,
				newID(), orderID, item.ProductID, item.Quantity, item.UnitPrice, now); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}

			n, err := tx.Execute(ctx, `UPDATE products SET stock_quantity = stock_quantity - ?, updated_at = ? WHERE id = ?`,
				item.Quantity, now, item.ProductID)
			if err != nil {
				return fmt.Errorf("update stock: %w", err)
			}
			if n == 0 {
				return notFound("product", item.ProductID)
			}

			if _, err := tx.Execute(ctx, `INSERT INTO stock_movements (`+movementColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
				newID(), item.ProductID, -item.Quantity, domain.MovementSale, "Order "+orderID, now); err != nil {
				return fmt.Errorf("insert stock movement: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.log.Info("order created",
		zap.String("order_id", orderID),
		zap.Int("items", len(in.Items)),
		zap.Int64("total", total))
	return orderID, nil
}

// UpdateStatus moves a pending order to completed or cancelled. Both are
// final.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	if !status.Valid() {
		return validation("unknown status %q", status)
	}
	return s.store.WriteTransaction(ctx, func(tx *localstore.Tx) error {
		current, err := localstore.Get[domain.OrderStatus](ctx, tx, `SELECT status FROM orders WHERE id = ?`, id)
		if err != nil {
			return err
		}
		if current == nil {
			return notFound("order", id)
		}
		if !current.CanTransitionTo(status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, *current, status)
		}
		_, err = tx.Execute(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
		return err
	})
}

func (s *OrderService) GetAll(ctx context.Context) ([]domain.Order, error) {
	return localstore.QueryAll[domain.Order](ctx, s.store,
		`SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (s *OrderService) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	o, err := localstore.Get[domain.Order](ctx, s.store, `SELECT `+orderColumns+` FROM orders WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, notFound("order", id)
	}
	return o, nil
}

func (s *OrderService) GetWithItems(ctx context.Context, id string) (*domain.OrderWithItems, error) {
	o, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	items, err := localstore.QueryAll[domain.OrderItemDetail](ctx, s.store,
		`SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, oi.created_at,
                COALESCE(p.name, '') AS product_name
            FROM order_items oi
            LEFT JOIN products p ON p.id = oi.product_id
            WHERE oi.order_id = ?
            ORDER BY oi.rowid`, id)
	if err != nil {
		return nil, err
	}
	return &domain.OrderWithItems{Order: *o, Items: items}, nil
}

func (s *OrderService) GetCustomerOrders(ctx context.Context, customerID string) ([]domain.Order, error) {
	return localstore.QueryAll[domain.Order](ctx, s.store,
		`SELECT `+orderColumns+` FROM orders WHERE customer_id = ? ORDER BY created_at DESC`, customerID)
}

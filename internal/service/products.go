package service

import (
	"context"
	"strings"

	"possync/m/domain"
	"possync/m/internal/localstore"
)

const productSelect = `SELECT p.id, p.name, p.description, p.price, p.stock_quantity, p.alert_threshold,
            p.category_id, p.supplier, p.image_url, p.created_at, p.updated_at, s.name AS supplier_name
        FROM products p
        LEFT JOIN suppliers s ON s.id = p.supplier`

type ProductInput struct {
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	Price          int64   `json:"price"`
	StockQuantity  int64   `json:"stock_quantity"`
	AlertThreshold int64   `json:"alert_threshold"`
	CategoryID     *string `json:"category_id"`
	Supplier       *int64  `json:"supplier"`
	ImageURL       *string `json:"image_url"`
}

// ProductPatch lists the fields to change; nil fields are left alone.
type ProductPatch struct {
	Name           *string `json:"name"`
	Description    *string `json:"description"`
	Price          *int64  `json:"price"`
	AlertThreshold *int64  `json:"alert_threshold"`
	CategoryID     *string `json:"category_id"`
	Supplier       *int64  `json:"supplier"`
	ImageURL       *string `json:"image_url"`
}

type ProductService struct {
	store *localstore.Store
}

func (s *ProductService) GetAll(ctx context.Context) ([]domain.Product, error) {
	return localstore.QueryAll[domain.Product](ctx, s.store, productSelect+` ORDER BY p.created_at DESC`)
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	p, err := localstore.Get[domain.Product](ctx, s.store, productSelect+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, notFound("product", id)
	}
	return p, nil
}

func (s *ProductService) GetByCategory(ctx context.Context, categoryID string) ([]domain.Product, error) {
	return localstore.QueryAll[domain.Product](ctx, s.store, productSelect+` WHERE p.category_id = ? ORDER BY p.name`, categoryID)
}

// GetLowStock lists products at or below their alert threshold.
func (s *ProductService) GetLowStock(ctx context.Context) ([]domain.Product, error) {
	return localstore.QueryAll[domain.Product](ctx, s.store,
		productSelect+` WHERE p.stock_quantity <= p.alert_threshold ORDER BY p.stock_quantity, p.name`)
}

// Search matches name and description. A blank query matches nothing.
func (s *ProductService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	pattern, ok := likePattern(query)
	if !ok {
		return []domain.Product{}, nil
	}
	return localstore.QueryAll[domain.Product](ctx, s.store, productSelect+`
        WHERE LOWER(p.name) LIKE ? ESCAPE '\' OR LOWER(COALESCE(p.description, '')) LIKE ? ESCAPE '\'
        ORDER BY p.name`, pattern, pattern)
}

const openingStockNote = "Opening stock"

// Create inserts the product. A non-zero opening stock is recorded as an
// adjustment movement in the same transaction.
func (s *ProductService) Create(ctx context.Context, in ProductInput) (*domain.Product, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, validation("name is required")
	}
	if in.Price < 0 || in.StockQuantity < 0 || in.AlertThreshold < 0 {
		return nil, validation("price, stock_quantity and alert_threshold cannot be negative")
	}

	now := domain.Now()
	p := domain.Product{
		ID:             newID(),
		Name:           in.Name,
		Description:    trimmed(in.Description),
		Price:          in.Price,
		StockQuantity:  in.StockQuantity,
		AlertThreshold: in.AlertThreshold,
		CategoryID:     trimmed(in.CategoryID),
		Supplier:       in.Supplier,
		ImageURL:       trimmed(in.ImageURL),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err := s.store.WriteTransaction(ctx, func(tx *localstore.Tx) error {
		if _, err := tx.Execute(ctx, `INSERT INTO products (
            id, name, description, price, stock_quantity, alert_threshold,
            category_id, supplier, image_url, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.Name, p.Description, p.Price, p.StockQuantity, p.AlertThreshold,
			p.CategoryID, p.Supplier, p.ImageURL, p.CreatedAt, p.UpdatedAt); err != nil {
			return err
		}
		if p.StockQuantity == 0 {
			return nil
		}
		// Opening stock enters the ledger like any other movement.
		_, err := tx.Execute(ctx, `INSERT INTO stock_movements (`+movementColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			newID(), p.ID, p.StockQuantity, domain.MovementAdjustment, openingStockNote, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update applies the provided fields and refreshes updated_at. Stock is not
// patchable here; it only moves through stock movements and orders.
func (s *ProductService) Update(ctx context.Context, id string, patch ProductPatch) error {
	var set assignments
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return validation("name cannot be empty")
		}
		set.add("name", name)
	}
	if patch.Description != nil {
		set.add("description", trimmed(patch.Description))
	}
	if patch.Price != nil {
		if *patch.Price < 0 {
			return validation("price cannot be negative")
		}
		set.add("price", *patch.Price)
	}
	if patch.AlertThreshold != nil {
		if *patch.AlertThreshold < 0 {
			return validation("alert_threshold cannot be negative")
		}
		set.add("alert_threshold", *patch.AlertThreshold)
	}
	if patch.CategoryID != nil {
		set.add("category_id", trimmed(patch.CategoryID))
	}
	if patch.Supplier != nil {
		set.add("supplier", *patch.Supplier)
	}
	if patch.ImageURL != nil {
		set.add("image_url", trimmed(patch.ImageURL))
	}
	set.add("updated_at", domain.Now())

	n, err := s.store.Execute(ctx, `UPDATE products SET `+set.clause()+` WHERE id = ?`, append(set.args, id)...)
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound("product", id)
	}
	return nil
}

// SafeDelete refuses to delete a product that order items or stock movements
// still reference. The ledger is append-only, so a product with history stays.
func (s *ProductService) SafeDelete(ctx context.Context, id string) (DeleteResult, error) {
	return guardedDelete(ctx, s.store, "products", "product", id, []reference{
		{table: "order_items", column: "product_id", noun: "order items"},
		{table: "stock_movements", column: "product_id", noun: "stock movements"},
	})
}

package service

import (
	"context"

	"go.uber.org/zap"

	"possync/m/domain"
	"possync/m/internal/localstore"
)

type MovementInput struct {
	ProductID   string              `json:"product_id"`
	Quantity    int64               `json:"quantity"`
	Type        domain.MovementType `json:"movement_type"`
	Description *string             `json:"description"`
}

type StockService struct {
	store *localstore.Store
	log   *zap.Logger
}

const movementColumns = `id, product_id, quantity, movement_type, description, created_at`

// RecordMovement appends a movement to the ledger and applies its signed
// quantity to the product's stock in the same transaction. Sales are
// recorded by orders only.
func (s *StockService) RecordMovement(ctx context.Context, in MovementInput) (*domain.StockMovement, error) {
	if in.ProductID == "" {
		return nil, validation("product_id is required")
	}
	switch in.Type {
	case domain.MovementPurchase, domain.MovementReturn:
		if in.Quantity <= 0 {
			return nil, validation("%s quantity must be positive", in.Type)
		}
	case domain.MovementAdjustment:
		if in.Quantity == 0 {
			return nil, validation("adjustment quantity cannot be zero")
		}
	case domain.MovementSale:
		return nil, validation("sale movements are recorded by orders")
	default:
		return nil, validation("unknown movement type %q", in.Type)
	}

	now := domain.Now()
	m := domain.StockMovement{
		ID:           newID(),
		ProductID:    in.ProductID,
		Quantity:     in.Quantity,
		MovementType: in.Type,
		Description:  trimmed(in.Description),
		CreatedAt:    now,
	}
	err := s.store.WriteTransaction(ctx, func(tx *localstore.Tx) error {
		if _, err := tx.Execute(ctx, `INSERT INTO stock_movements (`+movementColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, m.ProductID, m.Quantity, m.MovementType, m.Description, m.CreatedAt); err != nil {
			return err
		}
		n, err := tx.Execute(ctx, `UPDATE products SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?`,
			m.Quantity, now, m.ProductID)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("product", m.ProductID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("stock movement recorded",
		zap.String("product_id", m.ProductID),
		zap.String("type", string(m.MovementType)),
		zap.Int64("quantity", m.Quantity))
	return &m, nil
}

func (s *StockService) GetProductMovements(ctx context.Context, productID string) ([]domain.StockMovement, error) {
	return localstore.QueryAll[domain.StockMovement](ctx, s.store,
		`SELECT `+movementColumns+` FROM stock_movements WHERE product_id = ? ORDER BY created_at DESC, id`, productID)
}

// GetAll returns the whole ledger, newest first.
func (s *StockService) GetAll(ctx context.Context) ([]domain.StockMovement, error) {
	return localstore.QueryAll[domain.StockMovement](ctx, s.store,
		`SELECT `+movementColumns+` FROM stock_movements ORDER BY created_at DESC, id`)
}

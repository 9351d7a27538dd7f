package domain

type MovementType string

const (
	MovementPurchase   MovementType = "purchase"
	MovementSale       MovementType = "sale"
	MovementAdjustment MovementType = "adjustment"
	MovementReturn     MovementType = "return"
)

func (t MovementType) Valid() bool {
	switch t {
	case MovementPurchase, MovementSale, MovementAdjustment, MovementReturn:
		return true
	}
	return false
}

// StockMovement is an append-only ledger row. Quantity is signed: negative
// for sales, positive for purchases and returns.
type StockMovement struct {
	ID           string       `db:"id" json:"id"`
	ProductID    string       `db:"product_id" json:"product_id"`
	Quantity     int64        `db:"quantity" json:"quantity"`
	MovementType MovementType `db:"movement_type" json:"movement_type"`
	Description  *string      `db:"description" json:"description,omitempty"`
	CreatedAt    string       `db:"created_at" json:"created_at"`
}

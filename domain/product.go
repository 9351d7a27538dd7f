package domain

type Product struct {
	ID             string  `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	Description    *string `db:"description" json:"description,omitempty"`
	Price          int64   `db:"price" json:"price"`
	StockQuantity  int64   `db:"stock_quantity" json:"stock_quantity"`
	AlertThreshold int64   `db:"alert_threshold" json:"alert_threshold"`
	CategoryID     *string `db:"category_id" json:"category_id,omitempty"`
	Supplier       *int64  `db:"supplier" json:"supplier,omitempty"`
	ImageURL       *string `db:"image_url" json:"image_url,omitempty"`
	CreatedAt      string  `db:"created_at" json:"created_at"`
	UpdatedAt      string  `db:"updated_at" json:"updated_at"`
	// Only populated by queries that join suppliers.
	SupplierName *string `db:"supplier_name" json:"supplier_name,omitempty"`
}

// IsLowStock reports whether the product is at or below its alert threshold.
// It is evaluated on every read and never stored.
func (p Product) IsLowStock() bool {
	return p.StockQuantity <= p.AlertThreshold
}

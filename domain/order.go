package domain

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderCompleted, OrderCancelled:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderCompleted || s == OrderCancelled
}

// CanTransitionTo encodes pending -> {completed, cancelled}.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderPending && next.Terminal()
}

type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSynced  SyncStatus = "synced"
	SyncError   SyncStatus = "error"
)

type Order struct {
	ID          string      `db:"id" json:"id"`
	CustomerID  string      `db:"customer_id" json:"customer_id"`
	TotalAmount int64       `db:"total_amount" json:"total_amount"`
	Status      OrderStatus `db:"status" json:"status"`
	CreatedBy   string      `db:"created_by" json:"created_by"`
	CreatedAt   string      `db:"created_at" json:"created_at"`
	SyncStatus  SyncStatus  `db:"sync_status" json:"sync_status"`
}

// OrderItem carries the unit price captured when the order was placed.
type OrderItem struct {
	ID        string `db:"id" json:"id"`
	OrderID   string `db:"order_id" json:"order_id"`
	ProductID string `db:"product_id" json:"product_id"`
	Quantity  int64  `db:"quantity" json:"quantity"`
	UnitPrice int64  `db:"unit_price" json:"unit_price"`
	CreatedAt string `db:"created_at" json:"created_at"`
}

// Subtotal is quantity times the snapshot unit price.
func (i OrderItem) Subtotal() int64 {
	return i.Quantity * i.UnitPrice
}

type OrderItemDetail struct {
	OrderItem
	ProductName string `db:"product_name" json:"product_name"`
}

type OrderWithItems struct {
	Order Order             `json:"order"`
	Items []OrderItemDetail `json:"items"`
}

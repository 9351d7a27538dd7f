package domain

// Supplier ids are local sequential integers, unlike every other entity.
type Supplier struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	Phone     *string `db:"phone" json:"phone,omitempty"`
	CreatedAt string  `db:"created_at" json:"created_at"`
}

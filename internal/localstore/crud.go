package localstore

import (
	"encoding/json"
	"fmt"
)

// UpdateType is the kind of a recorded local mutation.
type UpdateType string

const (
	OpPut    UpdateType = "PUT"
	OpPatch  UpdateType = "PATCH"
	OpDelete UpdateType = "DELETE"
)

// CrudEntry is one recorded local mutation waiting for upload.
type CrudEntry struct {
	ID    int64      `db:"id" json:"id"`
	TxID  int64      `db:"tx_id" json:"tx_id"`
	Op    UpdateType `db:"op" json:"op"`
	Table string     `db:"table_name" json:"table"`
	RowID string     `db:"row_id" json:"row_id"`
	// Data holds the changed columns as a JSON object; NULL for deletes.
	Data *string `db:"data" json:"data,omitempty"`
}

// OpData decodes the changed-column payload. Deletes return nil.
func (e CrudEntry) OpData() (map[string]any, error) {
	if e.Data == nil {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(*e.Data), &data); err != nil {
		return nil, fmt.Errorf("decode crud entry %d: %w", e.ID, err)
	}
	return data, nil
}

// Key identifies the row the entry targets.
func (e CrudEntry) Key() RowKey {
	return RowKey{Table: e.Table, ID: e.RowID}
}

type RowKey struct {
	Table string
	ID    string
}

// CrudTransaction is an ordered batch of entries recorded by one local
// write transaction. Entries are uploaded and confirmed together.
type CrudTransaction struct {
	ID         int64       `db:"id"`
	CreatedAt  string      `db:"created_at"`
	DeferCount int         `db:"defer_count"`
	Entries    []CrudEntry `db:"-"`
}

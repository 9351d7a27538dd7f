package migrations

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Column is one synced column. The id column is implicit.
type Column struct {
	Name string
	Type string
}

// Table describes a synced table. Every table gets crud triggers that append
// to the upload queue whenever a row is inserted, updated or deleted.
type Table struct {
	Name string
	// IDType defaults to TEXT; suppliers use sequential integers.
	IDType  string
	Columns []Column
}

// Tables is the local layout of the synced schema.
var Tables = []Table{
	{Name: "categories", Columns: []Column{
		{"name", "TEXT"},
		{"created_at", "TEXT"},
	}},
	{Name: "suppliers", IDType: "INTEGER", Columns: []Column{
		{"name", "TEXT"},
		{"phone", "TEXT"},
		{"created_at", "TEXT"},
	}},
	{Name: "products", Columns: []Column{
		{"name", "TEXT"},
		{"description", "TEXT"},
		{"price", "INTEGER NOT NULL DEFAULT 0"},
		{"stock_quantity", "INTEGER NOT NULL DEFAULT 0"},
		{"alert_threshold", "INTEGER NOT NULL DEFAULT 0"},
		{"category_id", "TEXT"},
		{"supplier", "INTEGER"},
		{"image_url", "TEXT"},
		{"created_at", "TEXT"},
		{"updated_at", "TEXT"},
	}},
	{Name: "customers", Columns: []Column{
		{"name", "TEXT"},
		{"email", "TEXT"},
		{"phone", "TEXT"},
		{"address", "TEXT"},
		{"created_at", "TEXT"},
	}},
	{Name: "orders", Columns: []Column{
		{"customer_id", "TEXT"},
		{"total_amount", "INTEGER NOT NULL DEFAULT 0"},
		{"status", "TEXT NOT NULL DEFAULT 'pending'"},
		{"created_by", "TEXT"},
		{"created_at", "TEXT"},
		{"sync_status", "TEXT NOT NULL DEFAULT 'pending'"},
	}},
	{Name: "order_items", Columns: []Column{
		{"order_id", "TEXT NOT NULL"},
		{"product_id", "TEXT NOT NULL"},
		{"quantity", "INTEGER NOT NULL"},
		{"unit_price", "INTEGER NOT NULL"},
		{"created_at", "TEXT"},
	}},
	{Name: "stock_movements", Columns: []Column{
		{"product_id", "TEXT NOT NULL"},
		{"quantity", "INTEGER NOT NULL"},
		{"movement_type", "TEXT NOT NULL"},
		{"description", "TEXT"},
		{"created_at", "TEXT"},
	}},
	// Placeholders kept so the local layout matches the backend.
	{Name: "users", Columns: []Column{
		{"email", "TEXT"},
		{"role", "TEXT"},
		{"created_at", "TEXT"},
	}},
	{Name: "reports", Columns: []Column{
		{"name", "TEXT"},
		{"payload", "TEXT"},
		{"created_at", "TEXT"},
	}},
}

// Internal tables that are never uploaded.
var internal = []string{
	`CREATE TABLE IF NOT EXISTS crud_transactions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            created_at TEXT NOT NULL,
            defer_count INTEGER NOT NULL DEFAULT 0,
            last_deferred_at TEXT
        );`,
	`CREATE TABLE IF NOT EXISTS crud_entries (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            tx_id INTEGER NOT NULL,
            op TEXT NOT NULL,
            table_name TEXT NOT NULL,
            row_id TEXT NOT NULL,
            data TEXT
        );`,
	`CREATE INDEX IF NOT EXISTS crud_entries_tx_id ON crud_entries (tx_id, id);`,
	`CREATE TABLE IF NOT EXISTS auth_session (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            access_token TEXT NOT NULL,
            refresh_token TEXT NOT NULL,
            expires_at INTEGER NOT NULL,
            user_id TEXT NOT NULL,
            email TEXT
        );`,
}

// Run creates the local schema, the upload queue and the crud triggers.
func Run(db *sqlx.DB) error {
	var schema []string
	for _, t := range Tables {
		schema = append(schema, t.createStatement())
	}
	schema = append(schema, internal...)
	for _, t := range Tables {
		schema = append(schema, t.triggerStatements()...)
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Lookup returns the synced table called name.
func Lookup(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func (t Table) idType() string {
	if t.IDType == "" {
		return "TEXT"
	}
	return t.IDType
}

func (t Table) createStatement() string {
	defs := []string{"id " + t.idType() + " PRIMARY KEY NOT NULL"}
	for _, c := range t.Columns {
		defs = append(defs, c.Name+" "+c.Type)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n            %s\n        );", t.Name, strings.Join(defs, ",\n            "))
}

// jsonObject renders json_object('col', REF.col, ...) for the given row alias.
func (t Table) jsonObject(ref string) string {
	pairs := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		pairs = append(pairs, fmt.Sprintf("'%s', %s.%s", c.Name, ref, c.Name))
	}
	return "json_object(" + strings.Join(pairs, ", ") + ")"
}

// triggerStatements records PUT on insert, PATCH with only the changed
// columns on update, and DELETE on delete. Entries belong to the newest crud
// transaction, which the store opens at the start of every write.
func (t Table) triggerStatements() []string {
	const currentTx = "(SELECT MAX(id) FROM crud_transactions)"

	insert := fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_crud_insert AFTER INSERT ON %[1]s
        FOR EACH ROW
        BEGIN
            INSERT INTO crud_entries (tx_id, op, table_name, row_id, data)
            VALUES (%[2]s, 'PUT', '%[1]s', CAST(NEW.id AS TEXT), %[3]s);
        END;`, t.Name, currentTx, t.jsonObject("NEW"))

	update := fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_crud_update AFTER UPDATE ON %[1]s
        FOR EACH ROW
        BEGIN
            INSERT INTO crud_entries (tx_id, op, table_name, row_id, data)
            SELECT %[2]s, 'PATCH', '%[1]s', CAST(NEW.id AS TEXT), diff.data
            FROM (
                SELECT json_group_object(n.key, n.value) AS data, COUNT(*) AS changed
                FROM json_each(%[3]s) AS n
                JOIN json_each(%[4]s) AS o ON o.key = n.key
                WHERE n.value IS NOT o.value
            ) AS diff
            WHERE diff.changed > 0;
        END;`, t.Name, currentTx, t.jsonObject("NEW"), t.jsonObject("OLD"))

	del := fmt.Sprintf(`CREATE TRIGGER IF NOT EXISTS %[1]s_crud_delete AFTER DELETE ON %[1]s
        FOR EACH ROW
        BEGIN
            INSERT INTO crud_entries (tx_id, op, table_name, row_id, data)
            VALUES (%[2]s, 'DELETE', '%[1]s', CAST(OLD.id AS TEXT), NULL);
        END;`, t.Name, currentTx)

	return []string{insert, update, del}
}

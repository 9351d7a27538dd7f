package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jmoiron/sqlx"
)

// Postgres writes rows straight into the backend database. Rows are passed
// as JSON and expanded with json_populate_record so column types come from
// the remote table definition.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Upsert(ctx context.Context, table, id string, data map[string]any) error {
	row := make(map[string]any, len(data)+1)
	for k, v := range data {
		row[k] = v
	}
	row["id"] = id
	cols := columns(row)

	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		if c == "id" {
			continue
		}
		q := quote(c)
		sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", q, q))
	}
	conflict := "DO NOTHING"
	if len(sets) > 0 {
		conflict = "DO UPDATE SET " + strings.Join(sets, ", ")
	}

	list := quoteAll(cols)
	query := fmt.Sprintf(`INSERT INTO %s (%s)
        SELECT %s FROM json_populate_record(NULL::%s, $1::json)
        ON CONFLICT (id) %s`,
		quote(table), list, list, quote(table), conflict)
	return p.exec(ctx, query, row)
}

func (p *Postgres) Update(ctx context.Context, table, id string, data map[string]any) error {
	cols := columns(data)
	if len(cols) == 0 {
		return nil
	}
	sets := make([]string, 0, len(cols))
	for _, c := range cols {
		q := quote(c)
		sets = append(sets, fmt.Sprintf("%s = r.%s", q, q))
	}
	row := make(map[string]any, len(data)+1)
	for k, v := range data {
		row[k] = v
	}
	row["id"] = id

	query := fmt.Sprintf(`UPDATE %s AS t SET %s
        FROM json_populate_record(NULL::%s, $1::json) AS r
        WHERE t.id = r.id`,
		quote(table), strings.Join(sets, ", "), quote(table))
	return p.exec(ctx, query, row)
}

func (p *Postgres) Delete(ctx context.Context, table, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s AS t
        USING json_populate_record(NULL::%s, $1::json) AS r
        WHERE t.id = r.id`, quote(table), quote(table))
	return p.exec(ctx, query, map[string]any{"id": id})
}

func (p *Postgres) Exists(ctx context.Context, table, column, value string) (bool, error) {
	var exists bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s::text = $1)`, quote(table), quote(column))
	if err := p.db.GetContext(ctx, &exists, query, value); err != nil {
		return false, err
	}
	return exists, nil
}

func (p *Postgres) exec(ctx context.Context, query string, row map[string]any) error {
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, query, string(payload))
	return err
}

func columns(row map[string]any) []string {
	cols := make([]string, 0, len(row))
	for k := range row {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func quoteAll(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote(n)
	}
	return strings.Join(quoted, ", ")
}

package connector_test

import (
	"context"
	"fmt"
	"sync"

	"possync/m/internal/auth"
)

type call struct {
	Op    string
	Table string
	ID    string
}

// fakeRemote is an in-memory backend keyed by table and id.
type fakeRemote struct {
	mu     sync.Mutex
	tables map[string]map[string]map[string]any
	calls  []call
	// fail, when set, is consulted before every write.
	fail func(op, table, id string) error
	// block, when set, is waited on by the next write.
	block   chan struct{}
	entered chan struct{}
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{tables: make(map[string]map[string]map[string]any)}
}

func (f *fakeRemote) before(ctx context.Context, op, table, id string) error {
	f.mu.Lock()
	f.calls = append(f.calls, call{Op: op, Table: table, ID: id})
	block, entered, fail := f.block, f.entered, f.fail
	f.block = nil
	f.mu.Unlock()

	if block != nil {
		close(entered)
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if fail != nil {
		return fail(op, table, id)
	}
	return nil
}

func (f *fakeRemote) Upsert(ctx context.Context, table, id string, data map[string]any) error {
	if err := f.before(ctx, "upsert", table, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tables[table] == nil {
		f.tables[table] = make(map[string]map[string]any)
	}
	row := map[string]any{"id": id}
	for k, v := range data {
		row[k] = v
	}
	f.tables[table][id] = row
	return nil
}

func (f *fakeRemote) Update(ctx context.Context, table, id string, data map[string]any) error {
	if err := f.before(ctx, "update", table, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tables[table][id]
	if !ok {
		return nil
	}
	for k, v := range data {
		row[k] = v
	}
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, table, id string) error {
	if err := f.before(ctx, "delete", table, id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tables[table], id)
	return nil
}

func (f *fakeRemote) Exists(_ context.Context, table, column, value string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Op: "exists", Table: table, ID: value})
	for id, row := range f.tables[table] {
		if column == "id" && id == value {
			return true, nil
		}
		if fmt.Sprint(row[column]) == value {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRemote) put(table, id string, row map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tables[table] == nil {
		f.tables[table] = make(map[string]map[string]any)
	}
	row["id"] = id
	f.tables[table][id] = row
}

func (f *fakeRemote) row(table, id string) (map[string]any, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.tables[table][id]
	return row, ok
}

func (f *fakeRemote) count(table string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[table])
}

func (f *fakeRemote) writes() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Op != "exists" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRemote) setFail(fn func(op, table, id string) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail = fn
}

type fakeCreds struct {
	err error
}

func (f fakeCreds) Credentials(context.Context) (auth.Credentials, error) {
	if f.err != nil {
		return auth.Credentials{}, f.err
	}
	return auth.Credentials{Endpoint: "https://sync.example.com", Token: "tok", UserID: "user-1"}, nil
}

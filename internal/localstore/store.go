package localstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"possync/m/domain"
)

// Querier is the read surface shared by Store and Tx.
type Querier interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
}

// QueryAll runs a read-only query and scans every row into T.
func QueryAll[T any](ctx context.Context, q Querier, query string, args ...any) ([]T, error) {
	rows := []T{}
	if err := q.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get scans a single row into T. It returns nil, nil when nothing matched.
func Get[T any](ctx context.Context, q Querier, query string, args ...any) (*T, error) {
	var row T
	err := q.GetContext(ctx, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// Store is the local database plus its durable upload queue. Every write
// goes through a crud transaction so the triggers installed by the
// migrations can attribute the entries they record.
type Store struct {
	db  *sqlx.DB
	log *zap.Logger

	mu        sync.Mutex
	listeners []func()
}

func New(db *sqlx.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

// DB exposes the underlying handle for read-only helpers and tests.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return s.db.SelectContext(ctx, dest, query, args...)
}

func (s *Store) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return s.db.GetContext(ctx, dest, query, args...)
}

// OnChange registers fn to run after each commit that queued entries.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Execute applies one write statement in its own crud transaction and
// returns the number of affected rows.
func (s *Store) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	var affected int64
	err := s.WriteTransaction(ctx, func(tx *Tx) error {
		n, err := tx.Execute(ctx, query, args...)
		affected = n
		return err
	})
	return affected, err
}

// WriteTransaction runs fn in a single local transaction. Everything fn
// writes, table rows and queued entries alike, commits or rolls back
// together. fn must only use tx; touching the Store from inside fn blocks
// on the single connection.
func (s *Store) WriteTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	s.mu.Lock()
	queued, err := s.writeTransaction(ctx, fn)
	listeners := append([]func(){}, s.listeners...)
	s.mu.Unlock()
	if err != nil {
		s.log.Debug("write transaction rolled back", zap.Error(err))
		return err
	}
	if queued {
		for _, l := range listeners {
			l()
		}
	}
	return nil
}

func (s *Store) writeTransaction(ctx context.Context, fn func(tx *Tx) error) (bool, error) {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin write transaction: %w", err)
	}
	defer sqlTx.Rollback()

	res, err := sqlTx.ExecContext(ctx, `INSERT INTO crud_transactions (created_at) VALUES (?)`, domain.Now())
	if err != nil {
		return false, fmt.Errorf("open crud transaction: %w", err)
	}
	txID, err := res.LastInsertId()
	if err != nil {
		return false, err
	}

	if err := fn(&Tx{tx: sqlTx, id: txID}); err != nil {
		return false, err
	}

	var entries int
	if err := sqlTx.GetContext(ctx, &entries, `SELECT COUNT(*) FROM crud_entries WHERE tx_id = ?`, txID); err != nil {
		return false, err
	}
	if entries == 0 {
		if _, err := sqlTx.ExecContext(ctx, `DELETE FROM crud_transactions WHERE id = ?`, txID); err != nil {
			return false, err
		}
	}

	if err := sqlTx.Commit(); err != nil {
		return false, fmt.Errorf("commit write transaction: %w", err)
	}
	return entries > 0, nil
}

// NextPendingTransaction returns the oldest batch waiting for upload, or
// nil when the queue is empty.
func (s *Store) NextPendingTransaction(ctx context.Context) (*CrudTransaction, error) {
	return s.NextPendingTransactionAfter(ctx, 0)
}

// NextPendingTransactionAfter returns the oldest batch whose id is greater
// than afterID.
func (s *Store) NextPendingTransactionAfter(ctx context.Context, afterID int64) (*CrudTransaction, error) {
	tx, err := Get[CrudTransaction](ctx, s.db,
		`SELECT id, created_at, defer_count FROM crud_transactions WHERE id > ? ORDER BY id LIMIT 1`, afterID)
	if err != nil {
		return nil, fmt.Errorf("load pending transaction: %w", err)
	}
	if tx == nil {
		return nil, nil
	}
	tx.Entries, err = QueryAll[CrudEntry](ctx, s.db,
		`SELECT id, tx_id, op, table_name, row_id, data FROM crud_entries WHERE tx_id = ? ORDER BY id`, tx.ID)
	if err != nil {
		return nil, fmt.Errorf("load crud entries: %w", err)
	}
	return tx, nil
}

// MarkTransactionComplete drops the batch and its entries for good.
func (s *Store) MarkTransactionComplete(ctx context.Context, txID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM crud_entries WHERE tx_id = ?`, txID); err != nil {
		return fmt.Errorf("delete crud entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM crud_transactions WHERE id = ?`, txID); err != nil {
		return fmt.Errorf("delete crud transaction: %w", err)
	}
	return tx.Commit()
}

// RecordDeferral notes that the batch could not be uploaded yet and returns
// how many times that has happened.
func (s *Store) RecordDeferral(ctx context.Context, txID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`UPDATE crud_transactions SET defer_count = defer_count + 1, last_deferred_at = ? WHERE id = ?`,
		domain.Now(), txID); err != nil {
		return 0, fmt.Errorf("record deferral: %w", err)
	}
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT defer_count FROM crud_transactions WHERE id = ?`, txID); err != nil {
		return 0, err
	}
	return count, nil
}

// PendingCount returns the number of batches waiting for upload.
func (s *Store) PendingCount(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM crud_transactions`)
	return count, err
}

// Tx is a write transaction handed to WriteTransaction callbacks.
type Tx struct {
	tx *sqlx.Tx
	id int64
}

// ID is the crud transaction the writes are recorded under.
func (t *Tx) ID() int64 {
	return t.id
}

// Execute applies a write statement; the triggers queue one entry per row.
func (t *Tx) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (t *Tx) SelectContext(ctx context.Context, dest any, query string, args ...any) error {
	return t.tx.SelectContext(ctx, dest, query, args...)
}

func (t *Tx) GetContext(ctx context.Context, dest any, query string, args ...any) error {
	return t.tx.GetContext(ctx, dest, query, args...)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"possync/m/internal/localstore"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(entity, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, entity, id)
}

// DeleteResult is returned by guarded deletes. When Success is false
// nothing was deleted and Reason says why.
type DeleteResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

// Services bundles one service per table over a shared store.
type Services struct {
	Categories *CategoryService
	Products   *ProductService
	Customers  *CustomerService
	Suppliers  *SupplierService
	Stock      *StockService
	Orders     *OrderService
}

func New(store *localstore.Store, log *zap.Logger) *Services {
	return &Services{
		Categories: &CategoryService{store: store},
		Products:   &ProductService{store: store},
		Customers:  &CustomerService{store: store},
		Suppliers:  &SupplierService{store: store},
		Stock:      &StockService{store: store, log: log},
		Orders:     &OrderService{store: store, log: log},
	}
}

func newID() string {
	return uuid.NewString()
}

// reference is a table whose rows point at the row being deleted.
type reference struct {
	table  string
	column string
	noun   string
}

// guardedDelete removes table.id unless a reference still points at it. The
// check and the delete share one write transaction.
func guardedDelete(ctx context.Context, store *localstore.Store, table, entity string, id any, refs []reference) (DeleteResult, error) {
	var result DeleteResult
	err := store.WriteTransaction(ctx, func(tx *localstore.Tx) error {
		var exists int
		if err := tx.GetContext(ctx, &exists, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE id = ?`, table), id); err != nil {
			return err
		}
		if exists == 0 {
			return notFound(entity, fmt.Sprint(id))
		}

		for _, ref := range refs {
			var n int
			query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ?`, ref.table, ref.column)
			if err := tx.GetContext(ctx, &n, query, id); err != nil {
				return err
			}
			if n > 0 {
				result.Reason = fmt.Sprintf("%s is still referenced by %d %s", entity, n, ref.noun)
				return nil
			}
		}

		if _, err := tx.Execute(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table), id); err != nil {
			return err
		}
		result.Success = true
		return nil
	})
	if err != nil {
		return DeleteResult{}, err
	}
	return result, nil
}

// likePattern turns a search query into a case-insensitive substring
// pattern for use with ESCAPE '\'. ok is false for a blank query.
func likePattern(query string) (pattern string, ok bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}
	escaper := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(escaper.Replace(query)) + "%", true
}

// assignments collects the SET clause of a partial update.
type assignments struct {
	cols []string
	args []any
}

func (a *assignments) add(column string, value any) {
	a.cols = append(a.cols, column+" = ?")
	a.args = append(a.args, value)
}

func (a *assignments) empty() bool {
	return len(a.cols) == 0
}

func (a *assignments) clause() string {
	return strings.Join(a.cols, ", ")
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}

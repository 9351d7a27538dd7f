package remote

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5/pgconn"
)

// Remote is the authoritative backend the connector uploads to.
type Remote interface {
	// Upsert creates the row or replaces it entirely.
	Upsert(ctx context.Context, table, id string, data map[string]any) error
	// Update sets the given columns on an existing row. A missing row is
	// not an error.
	Update(ctx context.Context, table, id string, data map[string]any) error
	// Delete removes the row. A missing row is not an error.
	Delete(ctx context.Context, table, id string) error
	// Exists reports whether any row has column = value.
	Exists(ctx context.Context, table, column, value string) (bool, error)
}

// Error is a failure reported by the backend with a Postgres error code.
type Error struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (e *Error) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("remote: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("remote: %s: %s", e.Code, e.Message)
}

// Data exceptions, integrity violations and insufficient privilege will
// never succeed on retry.
var fatalCodes = []*regexp.Regexp{
	regexp.MustCompile(`^22...$`),
	regexp.MustCompile(`^23...$`),
	regexp.MustCompile(`^42501$`),
}

// Code extracts the Postgres error code from err, or "" when there is none.
func Code(err error) string {
	var remoteErr *Error
	if errors.As(err, &remoteErr) {
		return remoteErr.Code
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// IsFatal reports whether err can never succeed when retried.
func IsFatal(err error) bool {
	code := Code(err)
	if code == "" {
		return false
	}
	for _, re := range fatalCodes {
		if re.MatchString(code) {
			return true
		}
	}
	return false
}

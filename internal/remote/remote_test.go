package remote_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"possync/m/internal/remote"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"foreign key violation", &remote.Error{Code: "23503"}, true},
		{"unique violation", &remote.Error{Code: "23505"}, true},
		{"invalid text representation", &remote.Error{Code: "22P02"}, true},
		{"insufficient privilege", &remote.Error{Code: "42501"}, true},
		{"undefined table", &remote.Error{Code: "42P01"}, false},
		{"serialization failure", &remote.Error{Code: "40001"}, false},
		{"no code", &remote.Error{Status: 502, Message: "bad gateway"}, false},
		{"network", errors.New("connection refused"), false},
		{"wrapped pg error", fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "23502"}), true},
		{"pg connection error", &pgconn.PgError{Code: "08006"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.fatal, remote.IsFatal(tt.err))
		})
	}
}

func TestCode(t *testing.T) {
	assert.Equal(t, "23503", remote.Code(fmt.Errorf("wrap: %w", &remote.Error{Code: "23503"})))
	assert.Equal(t, "", remote.Code(errors.New("plain")))
}

package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{name: "no rows", err: pgx.ErrNoRows, wantErr: domain.ErrDataNotFound},
		{name: "unique", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, wantErr: domain.ErrConflictingData},
		{name: "foreign key", err: &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}, wantErr: domain.ErrDataNotFound},
		{name: "check", err: &pgconn.PgError{Code: pgerrcode.CheckViolation}, wantErr: domain.ErrValidation},
		{
			name:    "numeric overflow",
			err:     fmt.Errorf("insert order: %w", &pgconn.PgError{Code: pgerrcode.NumericValueOutOfRange, Message: "numeric field overflow"}),
			wantErr: domain.ErrValidation,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(test.err), test.wantErr)
		})
	}

	other := errors.New("conn reset")
	assert.Equal(t, other, mapError(other))
	assert.NoError(t, mapError(nil))
}

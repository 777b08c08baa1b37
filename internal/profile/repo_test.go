package profile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestClassifySchemaErrors(t *testing.T) {
	err := classify(&pgconn.PgError{Code: pgUndefinedTable, Message: `relation "users" does not exist`})
	assert.ErrorIs(t, err, ErrTableMissing)

	err = classify(&pgconn.PgError{Code: pgUndefinedColumn, Message: `column "auth_provider" does not exist`})
	assert.ErrorIs(t, err, ErrColumnMissing)

	wrapped := fmt.Errorf("exec: %w", &pgconn.PgError{Code: pgUndefinedTable})
	assert.ErrorIs(t, classify(wrapped), ErrTableMissing)
}

func TestClassifyPassthrough(t *testing.T) {
	other := errors.New("connection refused")
	assert.Equal(t, other, classify(other))
	assert.NoError(t, classify(nil))

	// unrelated SQLSTATE stays generic
	err := classify(&pgconn.PgError{Code: "23505", Message: "duplicate key"})
	assert.NotErrorIs(t, err, ErrTableMissing)
	assert.NotErrorIs(t, err, ErrColumnMissing)
}

package db_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/newsletter/pkg/db"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	t.Run("unique violation", func(t *testing.T) {
		t.Parallel()

		err := &pgconn.PgError{Code: "23505", ConstraintName: "idempotency_records_pkey"}
		assert.True(t, db.IsUniqueViolation(err))
	})

	t.Run("wrapped unique violation", func(t *testing.T) {
		t.Parallel()

		err := fmt.Errorf("save response: %w", &pgconn.PgError{Code: "23505"})
		assert.True(t, db.IsUniqueViolation(err))
	})

	t.Run("other pg error", func(t *testing.T) {
		t.Parallel()

		err := &pgconn.PgError{Code: "23503"} // foreign_key_violation
		assert.False(t, db.IsUniqueViolation(err))
	})

	t.Run("non-pg error", func(t *testing.T) {
		t.Parallel()

		assert.False(t, db.IsUniqueViolation(errors.New("boom")))
	})

	t.Run("nil", func(t *testing.T) {
		t.Parallel()

		assert.False(t, db.IsUniqueViolation(nil))
	})
}

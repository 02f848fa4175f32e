package idempotency_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/newsletter/pkg/idempotency"
)

func TestStore_Begin_Validation(t *testing.T) {
	t.Parallel()

	store := idempotency.NewStore(nil)

	t.Run("zero actor", func(t *testing.T) {
		t.Parallel()

		_, _, err := store.Begin(context.Background(), uuid.Nil, "key-1")
		require.ErrorIs(t, err, idempotency.ErrActorRequired)
	})

	t.Run("empty key", func(t *testing.T) {
		t.Parallel()

		_, _, err := store.Begin(context.Background(), uuid.New(), "")
		require.ErrorIs(t, err, idempotency.ErrKeyRequired)
	})
}

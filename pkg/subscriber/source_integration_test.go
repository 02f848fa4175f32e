//go:build integration

package subscriber_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/newsletter/pkg/db"
	"github.com/dmitrymomot/newsletter/pkg/logger"
	"github.com/dmitrymomot/newsletter/pkg/subscriber"
)

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping PostgreSQL test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)

	require.NoError(t, db.Migrate(ctx, pool, os.DirFS("../../migrations"), "", logger.NewNope()))

	_, err = pool.Exec(ctx, `TRUNCATE issue_delivery_queue, newsletter_issues, idempotency_records, subscriptions`)
	require.NoError(t, err)

	t.Cleanup(pool.Close)
	return pool
}

func insertSubscription(t *testing.T, pool *pgxpool.Pool, email, status string) {
	t.Helper()

	_, err := pool.Exec(context.Background(), `
		INSERT INTO subscriptions (id, email, name, status)
		VALUES ($1, $2, 'Sub', $3)`, uuid.New(), email, status)
	require.NoError(t, err)
}

func TestPostgresSource_ListConfirmed(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	insertSubscription(t, pool, "a@example.com", "confirmed")
	insertSubscription(t, pool, "b@example.com", "confirmed")
	insertSubscription(t, pool, "pending@example.com", "pending_confirmation")

	// Nil logger must be tolerated; the source falls back to a no-op one.
	src := subscriber.NewPostgresSource(pool, nil)

	got, err := src.ListConfirmed(ctx)
	require.NoError(t, err)

	addrs := make([]string, len(got))
	for i, a := range got {
		addrs[i] = a.String()
	}
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, addrs)
}

func TestPostgresSource_SkipsInvalidStoredRows(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	insertSubscription(t, pool, "a@example.com", "confirmed")
	insertSubscription(t, pool, "definitely-not-an-email", "confirmed")

	src := subscriber.NewPostgresSource(pool, nil)

	got, err := src.ListConfirmed(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1, "invalid stored row skipped, not fatal")
	assert.Equal(t, "a@example.com", got[0].String())
}

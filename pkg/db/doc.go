// Package db provides the PostgreSQL plumbing shared by the newsletter core.
//
// It wraps [github.com/jackc/pgx/v5/pgxpool] with connection pooling, startup
// retries, transaction helpers, and schema migrations via
// [github.com/pressly/goose/v3]. The idempotency store, issue publisher, and
// delivery queue all operate on the pool this package produces.
//
// # Configuration
//
// Settings come from a [Config] struct tagged for environment parsing:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection retry attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//
// # Transactions
//
// [WithTx] runs a function inside a transaction, rolling back on error or
// panic. The delivery worker wraps each claim-and-process pass in it:
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		_, err := tx.Exec(ctx, "DELETE FROM issue_delivery_queue ...")
//		return err
//	})
//
// # Constraint violations
//
// The idempotency store depends on the (actor_id, idempotency_key) primary
// key to arbitrate concurrent requests. [IsUniqueViolation] recognizes the
// resulting error so callers can treat the conflict as a replay rather than
// a failure.
package db

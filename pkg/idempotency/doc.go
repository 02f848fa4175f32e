// Package idempotency records the outcome of side-effecting requests so
// client retries replay the original response instead of re-executing the
// action.
//
// Records are keyed by (actor, idempotency key) and are immutable once
// written: there is no TTL and no update path. A record is only ever created
// inside the same database transaction as the side effect it guards, so a
// crash before commit leaves nothing behind and a later retry starts fresh.
//
// # Usage
//
//	saved, op, err := store.Begin(ctx, actorID, key)
//	if err != nil { ... }
//	if saved != nil {
//		return saved // replay, do NOT re-run the action
//	}
//	defer op.Rollback(ctx)
//
//	// run the side effect on op.Tx() ...
//
//	if err := op.Save(ctx, response); err != nil { ... }
//	if err := op.Commit(ctx); err != nil { ... }
//
// When two requests race on the same fresh key, the primary key on
// (actor_id, idempotency_key) lets exactly one transaction commit. The loser
// observes [ErrConflict] from Save or Commit, rolls back (side effect
// included), and a second Begin returns the winner's saved response.
package idempotency

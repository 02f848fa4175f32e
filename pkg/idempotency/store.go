package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/newsletter/pkg/db"
)

// Header is one response header. Order is preserved on replay.
type Header struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Response is the saved outcome of a guarded request, replayed verbatim on
// retries.
type Response struct {
	Headers []Header
	Body    []byte
	Status  int
}

// Store persists idempotency records in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a Store over the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Begin starts an idempotent operation for (actorID, key).
//
// If a record already exists, its Response is returned and the returned
// Operation is nil: the caller must replay the response without re-running
// the action. Otherwise a live transaction is returned through Operation;
// the caller runs its side effect on op.Tx(), calls Save, then Commit.
func (s *Store) Begin(ctx context.Context, actorID uuid.UUID, key string) (*Response, *Operation, error) {
	if actorID == uuid.Nil {
		return nil, nil, ErrActorRequired
	}
	if key == "" {
		return nil, nil, ErrKeyRequired
	}

	saved, err := s.lookup(ctx, actorID, key)
	if err != nil {
		return nil, nil, err
	}
	if saved != nil {
		return saved, nil, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, nil, errors.Join(ErrStorage, err)
	}

	return nil, &Operation{tx: tx, actorID: actorID, key: key}, nil
}

func (s *Store) lookup(ctx context.Context, actorID uuid.UUID, key string) (*Response, error) {
	var (
		status  int
		headers []byte
		body    []byte
	)
	err := s.pool.QueryRow(ctx, `
		SELECT response_status, response_headers, response_body
		FROM idempotency_records
		WHERE actor_id = $1 AND idempotency_key = $2`,
		actorID, key,
	).Scan(&status, &headers, &body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	resp := &Response{Status: status, Body: body}
	if err := json.Unmarshal(headers, &resp.Headers); err != nil {
		return nil, errors.Join(ErrStorage, fmt.Errorf("decode headers: %w", err))
	}
	return resp, nil
}

// Operation is the in-flight half of a fresh idempotent request. It owns a
// database transaction; the guarded side effect must run on Tx() so it
// commits or rolls back together with the record.
type Operation struct {
	tx      pgx.Tx
	key     string
	actorID uuid.UUID
	saved   bool
}

// Tx exposes the transaction the side effect must run in.
func (op *Operation) Tx() pgx.Tx {
	return op.tx
}

// Save persists the response inside the operation's transaction. It must be
// called before Commit. ErrConflict means a concurrent request with the same
// key committed first; the caller should Rollback and re-Begin.
func (op *Operation) Save(ctx context.Context, resp Response) error {
	headers, err := json.Marshal(resp.Headers)
	if err != nil {
		return errors.Join(ErrStorage, fmt.Errorf("encode headers: %w", err))
	}
	if resp.Headers == nil {
		headers = []byte("[]")
	}

	_, err = op.tx.Exec(ctx, `
		INSERT INTO idempotency_records
			(actor_id, idempotency_key, response_status, response_headers, response_body)
		VALUES ($1, $2, $3, $4, $5)`,
		op.actorID, op.key, resp.Status, headers, resp.Body,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Join(ErrStorage, err)
	}

	op.saved = true
	return nil
}

// Commit commits the side effect together with the saved response.
func (op *Operation) Commit(ctx context.Context) error {
	if !op.saved {
		return ErrResponseNotSaved
	}
	if err := op.tx.Commit(ctx); err != nil {
		if db.IsUniqueViolation(err) {
			return ErrConflict
		}
		return errors.Join(ErrStorage, err)
	}
	return nil
}

// Rollback discards the operation. Safe to defer; rolling back after a
// successful Commit is a no-op.
func (op *Operation) Rollback(ctx context.Context) error {
	err := op.tx.Rollback(ctx)
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return errors.Join(ErrStorage, err)
	}
	return nil
}

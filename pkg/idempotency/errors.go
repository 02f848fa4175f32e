package idempotency

import "errors"

var (
	// ErrActorRequired indicates a zero actor ID.
	ErrActorRequired = errors.New("idempotency: actor id is required")

	// ErrKeyRequired indicates an empty idempotency key.
	ErrKeyRequired = errors.New("idempotency: key is required")

	// ErrConflict indicates a concurrent request with the same key won the
	// insert race. The caller should roll back and re-Begin to fetch the
	// winner's response.
	ErrConflict = errors.New("idempotency: concurrent request won the key")

	// ErrResponseNotSaved indicates Commit was called before Save. The
	// guarded side effect must never become visible without its record.
	ErrResponseNotSaved = errors.New("idempotency: response not saved before commit")

	// ErrStorage indicates the underlying store failed.
	ErrStorage = errors.New("idempotency: storage failure")
)

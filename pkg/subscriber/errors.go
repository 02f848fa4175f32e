package subscriber

import "errors"

var (
	// ErrEmptyEmail indicates an empty or whitespace-only address.
	ErrEmptyEmail = errors.New("subscriber: email is empty")

	// ErrInvalidEmail indicates the address failed validation.
	ErrInvalidEmail = errors.New("subscriber: invalid email address")

	// ErrListFailed indicates the confirmed-recipient query failed.
	ErrListFailed = errors.New("subscriber: failed to list confirmed recipients")
)

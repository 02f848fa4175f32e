package newsletter

import "errors"

var (
	// ErrAlreadyStarted is returned by Start when the delivery loops are
	// already running.
	ErrAlreadyStarted = errors.New("newsletter: already started")
)

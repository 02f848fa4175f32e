package delivery

import "errors"

var (
	// ErrStorage indicates the queue could not be read or updated. The
	// affected task keeps its row (the claim never completed) and is picked
	// up by a later poll.
	ErrStorage = errors.New("delivery: storage failure")

	// ErrRetryBudgetExhausted marks a task abandoned after its final failed
	// attempt. Recorded through the abandon hook for external follow-up.
	ErrRetryBudgetExhausted = errors.New("delivery: retry budget exhausted")

	// ErrIssueMissing marks a task whose parent issue row does not exist.
	// Such a task can never be sent and is abandoned immediately.
	ErrIssueMissing = errors.New("delivery: newsletter issue not found")

	// ErrInvalidRecipient marks a task whose stored address fails email
	// validation. Retrying cannot fix it; it is abandoned immediately.
	ErrInvalidRecipient = errors.New("delivery: invalid recipient address")
)

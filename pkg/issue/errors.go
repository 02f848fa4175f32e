package issue

import "errors"

var (
	// ErrEmptyTitle indicates a publish request without a title. Validation
	// failures do not consume the idempotency key.
	ErrEmptyTitle = errors.New("issue: title is required")

	// ErrEmptyBody indicates a publish request missing the text or HTML body.
	ErrEmptyBody = errors.New("issue: text and html bodies are required")

	// ErrFetchRecipients indicates the confirmed-recipient lookup failed.
	// The publish transaction is aborted; nothing is persisted.
	ErrFetchRecipients = errors.New("issue: failed to fetch recipients")

	// ErrPublishFailed indicates the publish transaction could not be
	// completed. The caller may retry with the same idempotency key.
	ErrPublishFailed = errors.New("issue: failed to publish")
)

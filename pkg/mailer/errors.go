package mailer

import "errors"

var (
	// ErrNoRecipient indicates no recipient address was set.
	ErrNoRecipient = errors.New("mailer: email must have a recipient")

	// ErrNoSubject indicates no subject was set.
	ErrNoSubject = errors.New("mailer: email must have a subject")

	// ErrNoContent indicates no HTML body was set.
	ErrNoContent = errors.New("mailer: email must have HTML content")

	// ErrRenderFailed indicates markdown rendering failed.
	ErrRenderFailed = errors.New("mailer: failed to render content")

	// ErrInvalidFrontmatter indicates malformed YAML frontmatter.
	ErrInvalidFrontmatter = errors.New("mailer: invalid frontmatter")

	// ErrSendFailed indicates the provider rejected or failed the send.
	ErrSendFailed = errors.New("mailer: failed to send email")
)

package mailer

import "context"

// Sender is the minimal contract an email provider must implement.
//
// Send must be safe to call repeatedly with an identical Email: the delivery
// worker retries transient failures and an earlier attempt may already have
// reached the provider.
type Sender interface {
	Send(ctx context.Context, email *Email) error
}

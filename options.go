package newsletter

import (
	"log/slog"

	"github.com/dmitrymomot/newsletter/pkg/delivery"
	"github.com/dmitrymomot/newsletter/pkg/mailer"
	"github.com/dmitrymomot/newsletter/pkg/subscriber"
)

type settings struct {
	log        *slog.Logger
	source     subscriber.Source
	sender     mailer.Sender
	workerOpts []delivery.Option
}

// Option configures the service.
type Option func(*settings)

// WithLogger sets the logger used by the publisher, the migrator, and the
// delivery workers. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *settings) {
		s.log = log
	}
}

// WithSource replaces the default subscriptions-table recipient source.
func WithSource(source subscriber.Source) Option {
	return func(s *settings) {
		s.source = source
	}
}

// WithSender replaces the default Resend transport.
func WithSender(sender mailer.Sender) Option {
	return func(s *settings) {
		s.sender = sender
	}
}

// WithWorkerOptions passes extra options to every delivery worker the
// service creates, e.g. delivery.WithOnAbandoned for dead-letter hooks.
func WithWorkerOptions(opts ...delivery.Option) Option {
	return func(s *settings) {
		s.workerOpts = append(s.workerOpts, opts...)
	}
}

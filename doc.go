// Package newsletter provides the delivery core for sending newsletter
// issues to confirmed subscribers: an idempotent publish operation, a
// durable PostgreSQL delivery queue, and background workers that drain it.
//
// The package is designed around the principle that publishing must be
// exactly-once from the caller's point of view while the actual sending
// is at-least-once per recipient. Publish records the issue and fans it
// out to one queue row per confirmed subscriber in a single transaction,
// keyed by an idempotency key; retries of the same request replay the
// original response without creating a second issue. Workers then claim
// queue rows one at a time with row locks, send the email, and either
// delete the row, reschedule it with exponential backoff, or abandon it
// once the retry budget runs out.
//
// # Quick Start
//
// Create a Service with newsletter.New(), start the delivery workers,
// and publish issues:
//
//	svc, err := newsletter.New(ctx, newsletter.Config{
//	    DB:       db.Config{ConnectionString: os.Getenv("DATABASE_CONN_URL")},
//	    Resend:   resend.Config{APIKey: os.Getenv("RESEND_API_KEY"), SenderEmail: "news@acme.com"},
//	    Delivery: delivery.Config{},
//	    Workers:  2,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close()
//
//	go svc.Start(ctx)
//
//	res, err := svc.Publish(ctx, issue.Params{
//	    ActorID:        actorID,
//	    IdempotencyKey: key,
//	    Title:          "March updates",
//	    TextBody:       text,
//	    HTMLBody:       html,
//	})
//
// # Composition
//
// The subpackages are usable on their own when the assembled Service is
// too coarse: [github.com/dmitrymomot/newsletter/pkg/idempotency] for the
// transactional idempotency store, [github.com/dmitrymomot/newsletter/pkg/issue]
// for the publisher, and [github.com/dmitrymomot/newsletter/pkg/delivery]
// for the queue worker. Options like [WithSource] and [WithSender] swap
// the subscriber source and email transport without touching the rest.
//
// # Shutdown
//
// Start blocks until the context is cancelled or Stop is called, waiting
// for in-flight sends to finish. Close releases the connection pool.
package newsletter

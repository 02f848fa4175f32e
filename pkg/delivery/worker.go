package delivery

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/newsletter/pkg/db"
	"github.com/dmitrymomot/newsletter/pkg/logger"
	"github.com/dmitrymomot/newsletter/pkg/mailer"
	"github.com/dmitrymomot/newsletter/pkg/subscriber"
)

// Outcome reports what a single worker pass did.
type Outcome int

const (
	// OutcomeQueueEmpty means no due task was claimable: either the queue is
	// drained or every due row is locked by another worker.
	OutcomeQueueEmpty Outcome = iota

	// OutcomeTaskProcessed means one task reached a decision: delivered,
	// rescheduled, or abandoned.
	OutcomeTaskProcessed
)

// Task identifies one pending delivery.
type Task struct {
	Recipient  string
	IssueID    uuid.UUID
	RetryCount int
}

// Worker claims and processes delivery tasks one at a time.
type Worker struct {
	pool   *pgxpool.Pool
	sender mailer.Sender
	log    *slog.Logger
	id     string
	cfg    Config

	onDelivered func(Task)
	onAbandoned func(Task, error)
}

// Option configures a Worker.
type Option func(*Worker)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(w *Worker) {
		if log != nil {
			w.log = log
		}
	}
}

// WithWorkerID overrides the generated worker identifier used in logs.
func WithWorkerID(id string) Option {
	return func(w *Worker) {
		if id != "" {
			w.id = id
		}
	}
}

// WithOnDelivered registers a callback invoked after a task is delivered
// and its row deleted. The callback runs on the worker goroutine.
func WithOnDelivered(fn func(Task)) Option {
	return func(w *Worker) {
		w.onDelivered = fn
	}
}

// WithOnAbandoned registers a callback invoked when a task is removed
// without being delivered. The error describes the terminal failure.
func WithOnAbandoned(fn func(Task, error)) Option {
	return func(w *Worker) {
		w.onAbandoned = fn
	}
}

// NewWorker creates a delivery worker over the given pool and transport.
func NewWorker(pool *pgxpool.Pool, sender mailer.Sender, cfg Config, opts ...Option) *Worker {
	w := &Worker{
		pool:   pool,
		sender: sender,
		cfg:    cfg.withDefaults(),
		log:    logger.NewNope(),
		id:     uuid.NewString(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ProcessOne claims at most one due task and drives it to a decision.
//
// The claim, the send attempt, and the resulting row mutation happen under
// one transaction holding an exclusive lock on the task row; SKIP LOCKED
// keeps concurrent workers from ever waiting on each other. A storage error
// before the claim completes leaves the row untouched for the next poll.
func (w *Worker) ProcessOne(ctx context.Context) (Outcome, error) {
	var (
		outcome Outcome
		after   func() // logging and hooks, deferred until the tx commits
	)

	err := db.WithTx(ctx, w.pool, func(tx pgx.Tx) error {
		var task Task
		err := tx.QueryRow(ctx, `
			SELECT newsletter_issue_id, subscriber_email, retry_count
			FROM issue_delivery_queue
			WHERE execute_after <= now()
			FOR UPDATE SKIP LOCKED
			LIMIT 1`,
		).Scan(&task.IssueID, &task.Recipient, &task.RetryCount)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil // outcome stays OutcomeQueueEmpty
		}
		if err != nil {
			return errors.Join(ErrStorage, err)
		}

		email, err := w.buildEmail(ctx, tx, task)
		if err != nil {
			if errors.Is(err, ErrStorage) {
				// Not a verdict on the task, just a failed read: roll back
				// and leave the row for the next poll.
				return err
			}
			// Unsendable regardless of retries: missing issue or a
			// recipient that no longer validates.
			after, err = w.abandon(ctx, tx, task, err)
			if err != nil {
				return err
			}
			outcome = OutcomeTaskProcessed
			return nil
		}

		if sendErr := w.sender.Send(ctx, email); sendErr != nil {
			if task.RetryCount >= w.cfg.MaxRetries {
				after, err = w.abandon(ctx, tx, task, errors.Join(ErrRetryBudgetExhausted, sendErr))
			} else {
				after, err = w.reschedule(ctx, tx, task, sendErr)
			}
			if err != nil {
				return err
			}
			outcome = OutcomeTaskProcessed
			return nil
		}

		if _, err := tx.Exec(ctx, `
			DELETE FROM issue_delivery_queue
			WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
			task.IssueID, task.Recipient,
		); err != nil {
			return errors.Join(ErrStorage, err)
		}

		after = func() {
			w.log.InfoContext(ctx, "newsletter delivered",
				slog.String("worker_id", w.id),
				slog.String("issue_id", task.IssueID.String()),
				slog.String("recipient", task.Recipient),
				slog.Int("retry_count", task.RetryCount),
			)
			if w.onDelivered != nil {
				w.onDelivered(task)
			}
		}
		outcome = OutcomeTaskProcessed
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrStorage) {
			err = errors.Join(ErrStorage, err)
		}
		return OutcomeQueueEmpty, err
	}

	if after != nil {
		after()
	}
	return outcome, nil
}

// buildEmail loads the parent issue and assembles the outbound message.
func (w *Worker) buildEmail(ctx context.Context, tx pgx.Tx, task Task) (*mailer.Email, error) {
	if _, err := subscriber.ParseEmail(task.Recipient); err != nil {
		return nil, errors.Join(ErrInvalidRecipient, err)
	}

	var title, text, html string
	err := tx.QueryRow(ctx, `
		SELECT title, text_content, html_content
		FROM newsletter_issues
		WHERE id = $1`, task.IssueID,
	).Scan(&title, &text, &html)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrIssueMissing
	}
	if err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return &mailer.Email{
		To:      task.Recipient,
		Subject: title,
		HTML:    html,
		Text:    text,
	}, nil
}

// abandon removes the task permanently. Delivery to this recipient is
// handed off to human follow-up; the worker never retries. The returned
// callback records the failure and must run after the tx commits.
func (w *Worker) abandon(ctx context.Context, tx pgx.Tx, task Task, cause error) (func(), error) {
	if _, err := tx.Exec(ctx, `
		DELETE FROM issue_delivery_queue
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		task.IssueID, task.Recipient,
	); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return func() {
		w.log.ErrorContext(ctx, "delivery abandoned",
			slog.String("worker_id", w.id),
			slog.String("issue_id", task.IssueID.String()),
			slog.String("recipient", task.Recipient),
			slog.Int("retry_count", task.RetryCount),
			slog.String("error", cause.Error()),
		)
		if w.onAbandoned != nil {
			w.onAbandoned(task, cause)
		}
	}, nil
}

// reschedule pushes the task back with an incremented retry count and a
// later execute_after, releasing the row for a future pass.
func (w *Worker) reschedule(ctx context.Context, tx pgx.Tx, task Task, cause error) (func(), error) {
	delay := backoff(task.RetryCount, w.cfg.BackoffBase, w.cfg.BackoffCap, w.cfg.JitterFraction)

	if _, err := tx.Exec(ctx, `
		UPDATE issue_delivery_queue
		SET retry_count = retry_count + 1,
		    execute_after = now() + ($3 * interval '1 millisecond')
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		task.IssueID, task.Recipient, delay.Milliseconds(),
	); err != nil {
		return nil, errors.Join(ErrStorage, err)
	}

	return func() {
		w.log.WarnContext(ctx, "delivery failed, rescheduled",
			slog.String("worker_id", w.id),
			slog.String("issue_id", task.IssueID.String()),
			slog.String("recipient", task.Recipient),
			slog.Int("retry_count", task.RetryCount+1),
			slog.Duration("delay", delay),
			slog.String("error", cause.Error()),
		)
	}, nil
}

// Run polls the queue until ctx is cancelled. After an empty pass or a
// storage error it sleeps for the poll interval; cancellation is observed
// between passes, never mid-send.
func (w *Worker) Run(ctx context.Context) error {
	w.log.InfoContext(ctx, "delivery worker started",
		slog.String("worker_id", w.id),
		slog.Duration("poll_interval", w.cfg.PollInterval),
	)

	for {
		outcome, err := w.ProcessOne(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				w.log.InfoContext(ctx, "delivery worker stopped", slog.String("worker_id", w.id))
				return ctx.Err()
			}
			w.log.ErrorContext(ctx, "delivery pass failed",
				slog.String("worker_id", w.id),
				slog.String("error", err.Error()),
			)
			if err := w.idle(ctx); err != nil {
				return err
			}
		case outcome == OutcomeQueueEmpty:
			if err := w.idle(ctx); err != nil {
				return err
			}
		}
	}
}

func (w *Worker) idle(ctx context.Context) error {
	timer := time.NewTimer(w.cfg.PollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		w.log.InfoContext(ctx, "delivery worker stopped", slog.String("worker_id", w.id))
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

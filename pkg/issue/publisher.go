package issue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/newsletter/pkg/idempotency"
	"github.com/dmitrymomot/newsletter/pkg/logger"
	"github.com/dmitrymomot/newsletter/pkg/mailer"
	"github.com/dmitrymomot/newsletter/pkg/sanitizer"
	"github.com/dmitrymomot/newsletter/pkg/subscriber"
)

// Publisher creates newsletter issues and their delivery fan-out.
type Publisher struct {
	pool     *pgxpool.Pool
	source   subscriber.Source
	store    *idempotency.Store
	renderer *mailer.Renderer
	log      *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Publisher) {
		if log != nil {
			p.log = log
		}
	}
}

// NewPublisher creates a Publisher over the given pool, recipient source,
// and idempotency store.
func NewPublisher(pool *pgxpool.Pool, source subscriber.Source, store *idempotency.Store, opts ...Option) *Publisher {
	p := &Publisher{
		pool:     pool,
		source:   source,
		store:    store,
		renderer: mailer.NewRenderer(),
		log:      logger.NewNope(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Params describes one publish request.
type Params struct {
	ActorID        uuid.UUID // Identity of the publishing caller
	IdempotencyKey string    // Client-supplied retry token
	Title          string
	TextBody       string
	HTMLBody       string
}

// Result is the outcome of a publish call. On a replay the response is the
// one saved by the original request, byte for byte.
type Result struct {
	Response idempotency.Response
	IssueID  uuid.UUID
	Replayed bool
}

// successBody is the JSON shape of the synthesized publish response.
type successBody struct {
	IssueID uuid.UUID `json:"issue_id"`
}

// Publish validates the request, creates the issue row, fans it out into one
// delivery task per confirmed recipient, and records the response under the
// idempotency key, all in one transaction. Identical retries replay the
// original response and create nothing.
func (p *Publisher) Publish(ctx context.Context, params Params) (Result, error) {
	// Fail fast on malformed input. A validation error must not consume the
	// idempotency key, so this happens before Begin.
	switch {
	case params.Title == "":
		return Result{}, ErrEmptyTitle
	case params.TextBody == "", params.HTMLBody == "":
		return Result{}, ErrEmptyBody
	}

	result, err := p.publishOnce(ctx, params)
	if errors.Is(err, idempotency.ErrConflict) {
		// A concurrent request with the same key committed first. Re-Begin
		// fetches its saved response; this request then behaves like any
		// other replay.
		return p.replay(ctx, params)
	}
	return result, err
}

func (p *Publisher) publishOnce(ctx context.Context, params Params) (Result, error) {
	saved, op, err := p.store.Begin(ctx, params.ActorID, params.IdempotencyKey)
	if err != nil {
		return Result{}, err
	}
	if saved != nil {
		return replayResult(*saved), nil
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = op.Rollback(ctx) }()

	issueID := uuid.New()
	htmlBody := sanitizer.NewsletterHTML(params.HTMLBody)

	if _, err := op.Tx().Exec(ctx, `
		INSERT INTO newsletter_issues (id, title, text_content, html_content)
		VALUES ($1, $2, $3, $4)`,
		issueID, params.Title, params.TextBody, htmlBody,
	); err != nil {
		return Result{}, errors.Join(ErrPublishFailed, err)
	}

	// The recipient set is read once, at publish time. Later subscribers are
	// not retroactively included in this issue.
	recipients, err := p.source.ListConfirmed(ctx)
	if err != nil {
		return Result{}, errors.Join(ErrFetchRecipients, err)
	}

	if err := p.fanOut(ctx, op.Tx(), issueID, recipients); err != nil {
		return Result{}, errors.Join(ErrPublishFailed, err)
	}

	body, err := json.Marshal(successBody{IssueID: issueID})
	if err != nil {
		return Result{}, errors.Join(ErrPublishFailed, err)
	}
	resp := idempotency.Response{
		Status:  200,
		Headers: []idempotency.Header{{Name: "Content-Type", Value: "application/json"}},
		Body:    body,
	}

	if err := op.Save(ctx, resp); err != nil {
		return Result{}, err
	}
	if err := op.Commit(ctx); err != nil {
		return Result{}, err
	}

	p.log.InfoContext(ctx, "newsletter issue published",
		slog.String("issue_id", issueID.String()),
		slog.Int("recipients", len(recipients)),
	)

	return Result{IssueID: issueID, Response: resp}, nil
}

// fanOut bulk-inserts one delivery task per recipient. retry_count and
// execute_after take their column defaults (0 and now), so every task is
// immediately due.
func (p *Publisher) fanOut(ctx context.Context, tx pgx.Tx, issueID uuid.UUID, recipients []subscriber.EmailAddress) error {
	if len(recipients) == 0 {
		return nil
	}

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{"issue_delivery_queue"},
		[]string{"newsletter_issue_id", "subscriber_email"},
		pgx.CopyFromSlice(len(recipients), func(i int) ([]any, error) {
			return []any{issueID, recipients[i].String()}, nil
		}),
	)
	if err != nil {
		return err
	}
	if copied != int64(len(recipients)) {
		return fmt.Errorf("fan-out wrote %d of %d tasks", copied, len(recipients))
	}
	return nil
}

func (p *Publisher) replay(ctx context.Context, params Params) (Result, error) {
	saved, op, err := p.store.Begin(ctx, params.ActorID, params.IdempotencyKey)
	if err != nil {
		return Result{}, err
	}
	if op != nil {
		// The conflicting transaction disappeared between the conflict and
		// this lookup; surface the conflict rather than publishing twice.
		_ = op.Rollback(ctx)
		return Result{}, idempotency.ErrConflict
	}
	return replayResult(*saved), nil
}

func replayResult(resp idempotency.Response) Result {
	result := Result{Response: resp, Replayed: true}
	var body successBody
	if err := json.Unmarshal(resp.Body, &body); err == nil {
		result.IssueID = body.IssueID
	}
	return result
}

package issue

import (
	"context"

	"github.com/google/uuid"
)

// MarkdownParams describes a publish request authored as markdown with
// optional YAML frontmatter. A "Subject" frontmatter key overrides Title.
type MarkdownParams struct {
	ActorID        uuid.UUID
	IdempotencyKey string
	Title          string
	Content        []byte
}

// PublishMarkdown renders markdown content into HTML plus a plain-text
// alternative and publishes the result through Publish, with the same
// idempotency and fan-out guarantees.
func (p *Publisher) PublishMarkdown(ctx context.Context, params MarkdownParams) (Result, error) {
	rendered, err := p.renderer.Render(params.Content)
	if err != nil {
		return Result{}, err
	}

	title := params.Title
	if rendered.Subject != "" {
		title = rendered.Subject
	}

	return p.Publish(ctx, Params{
		ActorID:        params.ActorID,
		IdempotencyKey: params.IdempotencyKey,
		Title:          title,
		TextBody:       rendered.Text,
		HTMLBody:       rendered.HTML,
	})
}

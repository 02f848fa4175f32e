package issue_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/newsletter/pkg/issue"
)

func TestPublisher_Publish_Validation(t *testing.T) {
	t.Parallel()

	// Validation happens before any dependency is touched, so a Publisher
	// with nil collaborators is enough here.
	p := issue.NewPublisher(nil, nil, nil)

	valid := issue.Params{
		ActorID:        uuid.New(),
		IdempotencyKey: "key-1",
		Title:          "Hi",
		TextBody:       "t",
		HTMLBody:       "<p>h</p>",
	}

	t.Run("empty title", func(t *testing.T) {
		t.Parallel()

		params := valid
		params.Title = ""
		_, err := p.Publish(context.Background(), params)
		require.ErrorIs(t, err, issue.ErrEmptyTitle)
	})

	t.Run("empty text body", func(t *testing.T) {
		t.Parallel()

		params := valid
		params.TextBody = ""
		_, err := p.Publish(context.Background(), params)
		require.ErrorIs(t, err, issue.ErrEmptyBody)
	})

	t.Run("empty html body", func(t *testing.T) {
		t.Parallel()

		params := valid
		params.HTMLBody = ""
		_, err := p.Publish(context.Background(), params)
		require.ErrorIs(t, err, issue.ErrEmptyBody)
	})
}

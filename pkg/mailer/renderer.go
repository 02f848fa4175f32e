package mailer

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Renderer converts markdown newsletter content into HTML with a plain-text
// alternative. Safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// NewRenderer creates a markdown renderer with table and typography support
// enabled, which covers the formatting newsletters commonly use.
func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM, extension.Typographer),
		),
	}
}

// RenderResult holds the rendered bodies and any frontmatter metadata.
type RenderResult struct {
	Metadata map[string]any
	Subject  string // From the frontmatter "Subject" key, if present
	HTML     string
	Text     string // The markdown body itself, used as the plain-text part
}

// Render processes markdown content with optional YAML frontmatter.
func (r *Renderer) Render(content []byte) (*RenderResult, error) {
	metadata, body, err := splitFrontmatter(content)
	if err != nil {
		return nil, err
	}

	var html bytes.Buffer
	if err := r.md.Convert(body, &html); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRenderFailed, err)
	}

	subject, _ := metadata["Subject"].(string)

	return &RenderResult{
		Metadata: metadata,
		Subject:  strings.TrimSpace(subject),
		HTML:     html.String(),
		Text:     string(body),
	}, nil
}

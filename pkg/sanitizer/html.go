// Package sanitizer strips dangerous markup from newsletter HTML bodies
// before they are persisted and fanned out to recipients.
package sanitizer

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	newsletterPolicy *bluemonday.Policy
	textPolicy       *bluemonday.Policy
	initOnce         sync.Once
)

func initPolicies() {
	initOnce.Do(func() {
		// Newsletter bodies need more than comment-grade formatting:
		// headings, images, and tables are all normal email content.
		// Scripts, event handlers, and javascript: URLs are stripped.
		newsletterPolicy = bluemonday.UGCPolicy()
		newsletterPolicy.AllowAttrs("width", "height", "alt").OnElements("img")
		newsletterPolicy.AllowAttrs("align").OnElements("p", "div", "td", "th")
		newsletterPolicy.RequireNoFollowOnLinks(false)

		textPolicy = bluemonday.StrictPolicy()
	})
}

// NewsletterHTML sanitizes an HTML newsletter body, keeping formatting that
// email clients render (headings, lists, tables, images, links) while
// removing anything executable.
func NewsletterHTML(s string) string {
	initPolicies()
	return newsletterPolicy.Sanitize(s)
}

// PlainText strips all markup, leaving text content only.
func PlainText(s string) string {
	initPolicies()
	return textPolicy.Sanitize(s)
}

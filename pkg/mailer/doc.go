// Package mailer defines the outbound email contract used by the delivery
// worker, plus a markdown renderer for authoring newsletter content.
//
// The [Sender] interface is the only thing the core requires from an email
// provider. The resend subpackage ships a production adapter; tests use an
// in-memory fake. Senders must tolerate being called repeatedly with
// identical arguments, because the delivery worker retries failed sends.
//
// [Renderer] converts markdown with optional YAML frontmatter into an HTML
// body and a plain-text alternative:
//
//	---
//	Subject: March updates
//	---
//	Hello **world**!
//
// Rendered HTML is returned as-is; the issue publisher is responsible for
// sanitizing it before storage.
package mailer

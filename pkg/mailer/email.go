package mailer

import "fmt"

// Recipient formats a name and address into RFC 5322 form. With an empty
// name it returns the bare address.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Email is a fully prepared outbound message.
type Email struct {
	Headers map[string]string // Custom headers
	To      string            // Recipient address (required)
	Subject string            // Subject line (required)
	HTML    string            // HTML body (required)
	Text    string            // Plain-text alternative
	From    string            // Override the provider's default sender
	ReplyTo string            // Reply-to address
}

// Validate checks the fields every provider requires.
func (e *Email) Validate() error {
	switch {
	case e.To == "":
		return ErrNoRecipient
	case e.Subject == "":
		return ErrNoSubject
	case e.HTML == "":
		return ErrNoContent
	}
	return nil
}

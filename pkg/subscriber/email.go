package subscriber

import (
	"net/mail"
	"strings"
)

// Maximum total length of an address per RFC 3696 erratum 1690.
const maxEmailLength = 254

// EmailAddress is a validated subscriber address. The zero value is invalid;
// construct one with ParseEmail.
type EmailAddress struct {
	addr string
}

// ParseEmail validates s as a bare email address (no display name) and
// returns it as an EmailAddress.
func ParseEmail(s string) (EmailAddress, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return EmailAddress{}, ErrEmptyEmail
	}
	if len(s) > maxEmailLength {
		return EmailAddress{}, ErrInvalidEmail
	}

	parsed, err := mail.ParseAddress(s)
	if err != nil {
		return EmailAddress{}, ErrInvalidEmail
	}
	// mail.ParseAddress accepts "Name <addr>" forms; stored subscriber
	// addresses must be the bare address.
	if parsed.Name != "" || parsed.Address != s {
		return EmailAddress{}, ErrInvalidEmail
	}

	// The domain part must look like a host, not a quoted or local-only
	// token. mail.ParseAddress already guarantees exactly one unquoted "@".
	domain := s[strings.LastIndex(s, "@")+1:]
	if !strings.Contains(domain, ".") || strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return EmailAddress{}, ErrInvalidEmail
	}

	return EmailAddress{addr: s}, nil
}

// String returns the validated address.
func (e EmailAddress) String() string {
	return e.addr
}

// IsZero reports whether the address was never parsed.
func (e EmailAddress) IsZero() bool {
	return e.addr == ""
}

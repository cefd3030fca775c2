package domain

import (
	"fmt"
	"strings"
)

// ─── Owner Identities ───────────────────────────────────────────────────────
// A balance is keyed by an owner identity: either one agent (derived from
// their email) or their whole brokerage (derived from the email's domain).
// The two namespaces are prefixed so they can never collide syntactically.

const (
	personalPrefix = "user:"
	domainPrefix   = "team:"
)

// PersonalIdentity derives the individual owner identity from an email.
// Emails are case-normalized; an address without exactly one "@" with
// non-empty local and domain parts is rejected.
func PersonalIdentity(email string) (string, error) {
	local, dom, err := splitEmail(email)
	if err != nil {
		return "", err
	}
	return personalPrefix + local + "@" + dom, nil
}

// DomainIdentity derives the shared owner identity from an email's domain.
func DomainIdentity(email string) (string, error) {
	_, dom, err := splitEmail(email)
	if err != nil {
		return "", err
	}
	return domainPrefix + dom, nil
}

// ValidOwner reports whether s is a well-formed owner identity.
func ValidOwner(s string) bool {
	return strings.HasPrefix(s, personalPrefix) && len(s) > len(personalPrefix) ||
		strings.HasPrefix(s, domainPrefix) && len(s) > len(domainPrefix)
}

func splitEmail(email string) (local, dom string, err error) {
	e := strings.ToLower(strings.TrimSpace(email))
	at := strings.IndexByte(e, '@')
	if at <= 0 || at != strings.LastIndexByte(e, '@') || at == len(e)-1 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidOwner, email)
	}
	return e[:at], e[at+1:], nil
}

package domain

import (
	"strings"
	"testing"
)

func TestPersonalIdentity(t *testing.T) {
	tests := []struct {
		email   string
		want    string
		wantErr bool
	}{
		{"agent@brokerage.com", "user:agent@brokerage.com", false},
		{"  Agent@Brokerage.COM ", "user:agent@brokerage.com", false},
		{"no-at-sign", "", true},
		{"@nodomain", "", true},
		{"nolocal@", "", true},
		{"two@at@signs", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got, err := PersonalIdentity(tt.email)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q, got %q", tt.email, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("PersonalIdentity(%q) = %q, want %q", tt.email, got, tt.want)
			}
		})
	}
}

func TestDomainIdentity(t *testing.T) {
	got, err := DomainIdentity("Agent@Brokerage.COM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "team:brokerage.com" {
		t.Errorf("DomainIdentity = %q, want %q", got, "team:brokerage.com")
	}
}

// The personal and domain namespaces must never collide syntactically,
// even for adversarial inputs like an email whose local part is a domain.
func TestIdentityNamespacesDisjoint(t *testing.T) {
	personal, err := PersonalIdentity("brokerage.com@brokerage.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	domainOwner, err := DomainIdentity("anyone@brokerage.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if personal == domainOwner {
		t.Fatalf("personal %q collides with domain %q", personal, domainOwner)
	}
	if !strings.HasPrefix(personal, "user:") || !strings.HasPrefix(domainOwner, "team:") {
		t.Errorf("unexpected prefixes: %q / %q", personal, domainOwner)
	}
}

func TestValidOwner(t *testing.T) {
	tests := []struct {
		owner string
		want  bool
	}{
		{"user:agent@brokerage.com", true},
		{"team:brokerage.com", true},
		{"user:", false},
		{"team:", false},
		{"agent@brokerage.com", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ValidOwner(tt.owner); got != tt.want {
			t.Errorf("ValidOwner(%q) = %v, want %v", tt.owner, got, tt.want)
		}
	}
}

package model

import "strings"

// AgentDirectory maps agent email addresses to display names. The set is
// closed: it is loaded from configuration at startup and never edited.
type AgentDirectory map[string]string

// DisplayName resolves an agent email to its display name, falling back
// to the email itself for unknown senders.
func (d AgentDirectory) DisplayName(email string) string {
	if name, ok := d[strings.ToLower(email)]; ok {
		return name
	}
	return email
}

// HasEmail reports whether the address belongs to a known agent.
func (d AgentDirectory) HasEmail(email string) bool {
	_, ok := d[strings.ToLower(email)]
	return ok
}

// Emails returns the agent addresses in map order, for query building.
func (d AgentDirectory) Emails() []string {
	emails := make([]string, 0, len(d))
	for email := range d {
		emails = append(emails, email)
	}
	return emails
}

// BlockLists holds the static denylists applied during normalization:
// name substrings that identify staff or known non-clients, client email
// domains owned by the operator, and staff aliases that must never be
// recorded as a referring agent.
type BlockLists struct {
	Names        []string
	EmailDomains []string
	StaffAliases []string
}

// BlocksName reports whether the candidate client name contains any
// blocked substring, case-insensitively.
func (b BlockLists) BlocksName(name string) bool {
	lower := strings.ToLower(name)
	for _, blocked := range b.Names {
		if strings.Contains(lower, strings.ToLower(blocked)) {
			return true
		}
	}
	return false
}

// BlocksEmailDomain reports whether the (already lowercased) email falls
// under an operator-owned domain.
func (b BlockLists) BlocksEmailDomain(email string) bool {
	for _, domain := range b.EmailDomains {
		if strings.Contains(email, strings.ToLower(domain)) {
			return true
		}
	}
	return false
}

// IsStaffAlias reports whether the referring-agent value exactly matches
// a disallowed staff alias, case-insensitively.
func (b BlockLists) IsStaffAlias(agent string) bool {
	for _, alias := range b.StaffAliases {
		if strings.EqualFold(agent, alias) {
			return true
		}
	}
	return false
}

package gmail

import (
	"fmt"
	"sort"
	"strings"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

// SearchOptions describes one referral-email search. Label sets come from
// configuration; the zero value of AgentEmail means "all known agents".
type SearchOptions struct {
	AgentEmail            string
	After                 string // YYYY/MM/DD
	Before                string // YYYY/MM/DD
	IncludedLabels        []string
	ExcludedLabels        []string
	AllowDrive            bool
	IgnoreDefaultExcludes bool
}

// BuildQuery assembles the Gmail search string: sender filter, date bounds,
// label inclusion (OR) and exclusion, and an attachment-presence filter.
// The query is opaque to everything downstream.
func BuildQuery(opts SearchOptions, agents model.AgentDirectory) string {
	var parts []string

	if opts.AgentEmail != "" {
		parts = append(parts, "from:"+opts.AgentEmail)
	} else {
		emails := agents.Emails()
		sort.Strings(emails)
		froms := make([]string, len(emails))
		for i, email := range emails {
			froms[i] = "from:" + email
		}
		parts = append(parts, "("+strings.Join(froms, " OR ")+")")
	}

	if opts.After != "" {
		parts = append(parts, "after:"+opts.After)
	}
	if opts.Before != "" {
		parts = append(parts, "before:"+opts.Before)
	}

	if len(opts.IncludedLabels) > 0 {
		labels := make([]string, len(opts.IncludedLabels))
		for i, label := range opts.IncludedLabels {
			labels[i] = "label:" + label
		}
		parts = append(parts, "("+strings.Join(labels, " OR ")+")")
	}

	if !opts.IgnoreDefaultExcludes {
		for _, label := range opts.ExcludedLabels {
			parts = append(parts, fmt.Sprintf("-label:%s", label))
		}
	}

	if opts.AllowDrive {
		parts = append(parts, "(has:attachment OR has:drive)")
	} else {
		parts = append(parts, "has:attachment")
	}

	return strings.Join(parts, " ")
}

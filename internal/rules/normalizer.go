// Package rules cleans and validates raw extraction output against the
// static block lists and agent directory, producing a canonical lead.
package rules

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

var nonDigits = regexp.MustCompile(`\D`)

// Normalizer applies the ordered cleaning rules. It is a pure function of
// its input and the static configuration; it performs no I/O and never
// fails — invalid fields become null, optionally dragging confidence down.
type Normalizer struct {
	agents model.AgentDirectory
	blocks model.BlockLists
	now    func() time.Time
}

func NewNormalizer(agents model.AgentDirectory, blocks model.BlockLists) *Normalizer {
	return &Normalizer{agents: agents, blocks: blocks, now: time.Now}
}

// WithClock overrides the timestamp source. Used by tests.
func (n *Normalizer) WithClock(now func() time.Time) *Normalizer {
	n.now = now
	return n
}

// Normalize converts a raw extraction into a canonical lead. Rule order
// matters: later rules act on fields already nulled by earlier ones.
// Confidence only ever degrades.
func (n *Normalizer) Normalize(raw *model.RawLead) *model.Lead {
	lead := model.NewLead(raw.ThreadID)
	lead.Confidence = parseConfidence(raw.Confidence)

	lead.ClientName = raw.ClientName
	lead.ClientEmail = raw.ClientEmail
	lead.ReferringAgent = raw.ReferringAgent
	lead.ApplicationNumber = raw.ApplicationNumber.StringPtr()
	lead.PolicyNumbers = raw.PolicyNumbers
	lead.ZipCode = raw.ZipCode.StringPtr()
	lead.DateOfBirth = raw.DateOfBirth
	lead.Dependents = raw.Dependents.StringPtr()
	lead.ContactNotes = raw.ContactNotes
	lead.HouseholdSize = parseInt(raw.HouseholdSize)

	// Rule 1: email. Lowercase, then drop operator domains and exact
	// agent addresses — those are never the client.
	if lead.ClientEmail != nil && *lead.ClientEmail != "" {
		email := strings.ToLower(strings.TrimSpace(*lead.ClientEmail))
		lead.ClientEmail = &email
		if n.blocks.BlocksEmailDomain(email) {
			lead.ClientEmail = nil
			lead.Confidence = lead.Confidence.AtMost(model.ConfidenceLow)
		}
		if lead.ClientEmail != nil && n.agents.HasEmail(email) {
			lead.ClientEmail = nil
			lead.Confidence = lead.Confidence.AtMost(model.ConfidenceLow)
		}
	} else {
		lead.ClientEmail = nil
	}

	// Rule 2: phone. Exactly 10 digits, or 11 with a leading 1.
	if phone := raw.ClientPhone.String(); phone != "" {
		digits := nonDigits.ReplaceAllString(phone, "")
		switch {
		case len(digits) == 10:
			formatted := digits[:3] + "-" + digits[3:6] + "-" + digits[6:]
			lead.ClientPhone = &formatted
		case len(digits) == 11 && digits[0] == '1':
			formatted := digits[1:4] + "-" + digits[4:7] + "-" + digits[7:]
			lead.ClientPhone = &formatted
		default:
			lead.ClientPhone = nil
			lead.Confidence = lead.Confidence.AtMost(model.ConfidenceLow)
		}
	}

	// Rule 3: premium-like amounts. Unparseable values null out silently.
	lead.MonthlyPremium = parseMoney(raw.MonthlyPremium)
	lead.ACAPremium = parseMoney(raw.ACAPremium)
	lead.InitiationFee = parseMoney(raw.InitiationFee)

	// Rule 4: income, with the shorthand "20k" meaning 20000.
	lead.AnnualIncome = parseIncome(raw.AnnualIncome)

	// Rule 5: client name against the blocked-name substrings.
	if lead.ClientName != nil && n.blocks.BlocksName(*lead.ClientName) {
		lead.ClientName = nil
		lead.Confidence = lead.Confidence.AtMost(model.ConfidenceLow)
	}

	// Rule 6: staff aliases are removed from referring_agent without a
	// downgrade — the agent is simply not identified.
	if lead.ReferringAgent != nil && n.blocks.IsStaffAlias(*lead.ReferringAgent) {
		lead.ReferringAgent = nil
	}

	// Rule 7: stamp the extraction time and derive the review status.
	lead.ExtractedAt = n.now()
	if lead.Confidence == model.ConfidenceHigh {
		lead.Status = model.StatusReadyToContact
	} else {
		lead.Status = model.StatusPendingReview
	}

	return lead
}

func parseConfidence(c model.Confidence) model.Confidence {
	switch c {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
		return c
	}
	return model.ConfidenceMedium
}

// parseMoney strips currency noise ("$1,250.00/month") and parses a decimal.
func parseMoney(f *model.Flex) *float64 {
	if f == nil || *f == "" {
		return nil
	}
	clean := strings.TrimSpace(string(*f))
	clean = strings.ReplaceAll(clean, "$", "")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, "/month", "")
	clean = strings.TrimSpace(clean)
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil
	}
	return &value
}

// parseIncome strips currency noise and expands a trailing k multiplier.
func parseIncome(f *model.Flex) *int {
	if f == nil || *f == "" {
		return nil
	}
	clean := strings.TrimSpace(string(*f))
	clean = strings.ReplaceAll(clean, "$", "")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.ReplaceAll(clean, "/year", "")
	clean = strings.ReplaceAll(clean, "k", "000")
	clean = strings.ReplaceAll(clean, "K", "000")
	clean = strings.TrimSpace(clean)
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return nil
	}
	income := int(value)
	return &income
}

func parseInt(f *model.Flex) *int {
	if f == nil || *f == "" {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(*f)), 64)
	if err != nil {
		return nil
	}
	n := int(value)
	return &n
}

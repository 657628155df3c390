package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

var testAgents = model.AgentDirectory{
	"danielberman.ushealth@gmail.com": "Daniel Berman",
	"jordang.ushealth@gmail.com":      "Jordan Gassner",
}

var testBlocks = model.BlockLists{
	Names: []string{
		"christopher shannahan", "chris shannahan", "tanya centore", "sevy",
		"daniel berman", "health advisor",
	},
	EmailDomains: []string{"@cjsinsurancesolutions.com", "@tdcempoweredhealth.com"},
	StaffAliases: []string{"christopher shannahan", "chris shannahan", "tanya centore", "sevy"},
}

func newTestNormalizer() *Normalizer {
	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return NewNormalizer(testAgents, testBlocks).WithClock(func() time.Time { return fixed })
}

func strPtr(s string) *string { return &s }

func flexPtr(s string) *model.Flex {
	f := model.Flex(s)
	return &f
}

func baseRaw() *model.RawLead {
	return &model.RawLead{
		ClientName:  strPtr("Jane Smith"),
		ClientPhone: flexPtr("555-123-4567"),
		ThreadID:    "thread-1",
		Confidence:  model.ConfidenceHigh,
	}
}

func TestNormalizePhoneCanonicalization(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		want       *string
		confidence model.Confidence
	}{
		{"formatted", "(555) 123-4567", strPtr("555-123-4567"), model.ConfidenceHigh},
		{"eleven digits with country code", "15551234567", strPtr("555-123-4567"), model.ConfidenceHigh},
		{"already canonical", "555-123-4567", strPtr("555-123-4567"), model.ConfidenceHigh},
		{"dotted", "555.123.4567", strPtr("555-123-4567"), model.ConfidenceHigh},
		{"too short", "12345", nil, model.ConfidenceLow},
		{"eleven digits no leading one", "25551234567", nil, model.ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := baseRaw()
			raw.ClientPhone = flexPtr(tt.input)
			lead := newTestNormalizer().Normalize(raw)

			if tt.want == nil {
				assert.Nil(t, lead.ClientPhone)
			} else {
				require.NotNil(t, lead.ClientPhone)
				assert.Equal(t, *tt.want, *lead.ClientPhone)
			}
			assert.Equal(t, tt.confidence, lead.Confidence)
		})
	}
}

func TestNormalizeEmailBlocking(t *testing.T) {
	t.Run("operator domain blocked", func(t *testing.T) {
		raw := baseRaw()
		raw.ClientEmail = strPtr("agent@cjsinsurancesolutions.com")
		lead := newTestNormalizer().Normalize(raw)

		assert.Nil(t, lead.ClientEmail)
		assert.Equal(t, model.ConfidenceLow, lead.Confidence)
	})

	t.Run("regular client email kept and lowercased", func(t *testing.T) {
		raw := baseRaw()
		raw.ClientEmail = strPtr("Jane@Gmail.com")
		lead := newTestNormalizer().Normalize(raw)

		require.NotNil(t, lead.ClientEmail)
		assert.Equal(t, "jane@gmail.com", *lead.ClientEmail)
		assert.Equal(t, model.ConfidenceHigh, lead.Confidence)
	})

	t.Run("exact agent email blocked", func(t *testing.T) {
		raw := baseRaw()
		raw.ClientEmail = strPtr("danielberman.ushealth@gmail.com")
		lead := newTestNormalizer().Normalize(raw)

		assert.Nil(t, lead.ClientEmail)
		assert.Equal(t, model.ConfidenceLow, lead.Confidence)
	})
}

func TestNormalizePremiums(t *testing.T) {
	raw := baseRaw()
	raw.MonthlyPremium = flexPtr("$1,250.00/month")
	raw.ACAPremium = flexPtr("350")
	lead := newTestNormalizer().Normalize(raw)

	require.NotNil(t, lead.MonthlyPremium)
	assert.Equal(t, 1250.00, *lead.MonthlyPremium)
	require.NotNil(t, lead.ACAPremium)
	assert.Equal(t, 350.0, *lead.ACAPremium)
	assert.Equal(t, model.ConfidenceHigh, lead.Confidence)
}

func TestNormalizeUnparsablePremiumNullsWithoutDowngrade(t *testing.T) {
	raw := baseRaw()
	raw.MonthlyPremium = flexPtr("call me")
	lead := newTestNormalizer().Normalize(raw)

	assert.Nil(t, lead.MonthlyPremium)
	assert.Equal(t, model.ConfidenceHigh, lead.Confidence)
}

func TestNormalizeIncome(t *testing.T) {
	tests := []struct {
		input string
		want  *int
	}{
		{"20k", intPtr(20000)},
		{"45K", intPtr(45000)},
		{"$45,000/year", intPtr(45000)},
		{"52000", intPtr(52000)},
		{"unknown", nil},
	}

	for _, tt := range tests {
		raw := baseRaw()
		raw.AnnualIncome = flexPtr(tt.input)
		lead := newTestNormalizer().Normalize(raw)

		if tt.want == nil {
			assert.Nil(t, lead.AnnualIncome, "input %q", tt.input)
			assert.Equal(t, model.ConfidenceHigh, lead.Confidence)
		} else {
			require.NotNil(t, lead.AnnualIncome, "input %q", tt.input)
			assert.Equal(t, *tt.want, *lead.AnnualIncome, "input %q", tt.input)
		}
	}
}

func intPtr(i int) *int { return &i }

func TestNormalizeBlockedNames(t *testing.T) {
	tests := []struct {
		name    string
		blocked bool
	}{
		{"Daniel Berman", true},
		{"daniel berman jr", true},
		{"Health Advisor Team", true},
		{"Jane Smith", false},
	}

	for _, tt := range tests {
		raw := baseRaw()
		raw.ClientName = strPtr(tt.name)
		lead := newTestNormalizer().Normalize(raw)

		if tt.blocked {
			assert.Nil(t, lead.ClientName, "name %q", tt.name)
			assert.Equal(t, model.ConfidenceLow, lead.Confidence, "name %q", tt.name)
		} else {
			require.NotNil(t, lead.ClientName, "name %q", tt.name)
			assert.Equal(t, model.ConfidenceHigh, lead.Confidence)
		}
	}
}

func TestNormalizeStaffAliasRemovedWithoutDowngrade(t *testing.T) {
	raw := baseRaw()
	raw.ReferringAgent = strPtr("Chris Shannahan")
	lead := newTestNormalizer().Normalize(raw)

	assert.Nil(t, lead.ReferringAgent)
	assert.Equal(t, model.ConfidenceHigh, lead.Confidence)
}

func TestNormalizeConfidenceNeverUpgrades(t *testing.T) {
	raw := baseRaw()
	raw.Confidence = model.ConfidenceLow
	lead := newTestNormalizer().Normalize(raw)
	assert.Equal(t, model.ConfidenceLow, lead.Confidence)

	raw = baseRaw()
	raw.Confidence = model.Confidence("wild guess")
	lead = newTestNormalizer().Normalize(raw)
	assert.Equal(t, model.ConfidenceMedium, lead.Confidence)
}

func TestNormalizeStatusDerivation(t *testing.T) {
	lead := newTestNormalizer().Normalize(baseRaw())
	assert.Equal(t, model.StatusReadyToContact, lead.Status)

	raw := baseRaw()
	raw.Confidence = model.ConfidenceMedium
	lead = newTestNormalizer().Normalize(raw)
	assert.Equal(t, model.StatusPendingReview, lead.Status)
}

func TestNormalizeStampsExtractionTime(t *testing.T) {
	lead := newTestNormalizer().Normalize(baseRaw())
	assert.Equal(t, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC), lead.ExtractedAt)
}

// Normalizing already-canonical output a second time must change nothing.
func TestNormalizeIdempotence(t *testing.T) {
	n := newTestNormalizer()

	raw := baseRaw()
	raw.ClientEmail = strPtr("Jane@Gmail.com")
	raw.ClientPhone = flexPtr("(555) 123-4567")
	raw.MonthlyPremium = flexPtr("$250.00/month")
	raw.AnnualIncome = flexPtr("20k")
	first := n.Normalize(raw)

	again := &model.RawLead{
		ClientName:     first.ClientName,
		ClientPhone:    flexPtr(*first.ClientPhone),
		ClientEmail:    first.ClientEmail,
		MonthlyPremium: flexPtr("250"),
		AnnualIncome:   flexPtr("20000"),
		ThreadID:       first.ThreadID,
		Confidence:     first.Confidence,
	}
	second := n.Normalize(again)

	assert.Equal(t, *first.ClientName, *second.ClientName)
	assert.Equal(t, *first.ClientPhone, *second.ClientPhone)
	assert.Equal(t, *first.ClientEmail, *second.ClientEmail)
	assert.Equal(t, *first.MonthlyPremium, *second.MonthlyPremium)
	assert.Equal(t, *first.AnnualIncome, *second.AnnualIncome)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestNormalizeRuleFailuresNeverAbort(t *testing.T) {
	raw := &model.RawLead{
		ClientName:     strPtr("Tanya Centore"),
		ClientPhone:    flexPtr("nope"),
		ClientEmail:    strPtr("someone@tdcempoweredhealth.com"),
		MonthlyPremium: flexPtr("n/a"),
		AnnualIncome:   flexPtr("???"),
		ReferringAgent: strPtr("Sevy"),
		ThreadID:       "thread-9",
		Confidence:     model.ConfidenceHigh,
	}
	lead := newTestNormalizer().Normalize(raw)

	assert.Nil(t, lead.ClientName)
	assert.Nil(t, lead.ClientPhone)
	assert.Nil(t, lead.ClientEmail)
	assert.Nil(t, lead.MonthlyPremium)
	assert.Nil(t, lead.AnnualIncome)
	assert.Nil(t, lead.ReferringAgent)
	assert.Equal(t, model.ConfidenceLow, lead.Confidence)
	assert.Equal(t, "thread-9", lead.ThreadID)
}

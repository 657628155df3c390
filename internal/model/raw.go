package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Flex is a JSON value that the extraction model may return as either a
// string or a bare number. It is held as its string form until the
// normalizer parses it.
type Flex string

func (f *Flex) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = Flex(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*f = Flex(n.String())
		return nil
	}
	var v bool
	if err := json.Unmarshal(b, &v); err == nil {
		*f = Flex(strconv.FormatBool(v))
		return nil
	}
	return fmt.Errorf("unsupported JSON value for string field: %s", string(b))
}

func (f *Flex) String() string {
	if f == nil {
		return ""
	}
	return string(*f)
}

// StringPtr returns the value as an optional string, treating empty as missing.
func (f *Flex) StringPtr() *string {
	if f == nil || *f == "" {
		return nil
	}
	s := string(*f)
	return &s
}

// StringList accepts a JSON array of strings, a single string, or null.
// Some referral formats carry one policy number as a bare string.
type StringList []string

func (l *StringList) UnmarshalJSON(b []byte) error {
	var many []string
	if err := json.Unmarshal(b, &many); err == nil {
		*l = many
		return nil
	}
	var one Flex
	if err := json.Unmarshal(b, &one); err == nil {
		if one != "" {
			*l = []string{string(one)}
		}
		return nil
	}
	return fmt.Errorf("unsupported JSON value for string list: %s", string(b))
}

// RawLead is the extraction model's output parsed at the engine boundary,
// before any cleaning. Field values are kept verbatim; the normalizer owns
// all parsing and validation.
type RawLead struct {
	ClientName        *string    `json:"client_name"`
	ClientPhone       *Flex      `json:"client_phone"`
	ClientEmail       *string    `json:"client_email"`
	MonthlyPremium    *Flex      `json:"monthly_premium"`
	ACAPremium        *Flex      `json:"aca_premium"`
	InitiationFee     *Flex      `json:"initiation_fee"`
	AnnualIncome      *Flex      `json:"annual_income"`
	ReferringAgent    *string    `json:"referring_agent"`
	ApplicationNumber *Flex      `json:"application_number"`
	PolicyNumbers     StringList `json:"policy_numbers"`
	HouseholdSize     *Flex      `json:"household_size"`
	ZipCode           *Flex      `json:"zip_code"`
	DateOfBirth       *string    `json:"date_of_birth"`
	Dependents        *Flex      `json:"dependents"`
	ContactNotes      *string    `json:"contact_notes"`
	ThreadID          string     `json:"thread_id"`
	Confidence        Confidence `json:"confidence"`
}

// Package export writes extracted leads to CSV files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

// Columns is the fixed export order. List-valued fields are joined with
// ", "; internal-only fields (attachments, duplicate linkage id, status)
// are not exported.
var Columns = []string{
	"client_name", "client_phone", "client_email",
	"monthly_premium", "aca_premium", "annual_income",
	"referring_agent", "application_number", "policy_numbers",
	"household_size", "zip_code", "date_of_birth", "dependents",
	"contact_notes", "thread_id", "confidence", "is_duplicate",
	"extracted_at",
}

// WriteLeads writes one row per lead to dir/filename. An empty filename
// gets a timestamped default.
func WriteLeads(leads []*model.Lead, dir, filename string) (string, error) {
	if filename == "" {
		filename = fmt.Sprintf("leads_export_%s.csv", time.Now().Format("20060102_150405"))
	}
	path := filepath.Join(dir, filename)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(Columns); err != nil {
		return "", err
	}
	for _, lead := range leads {
		if err := writer.Write(Row(lead)); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", err
	}
	return path, nil
}

// Row renders a lead in the fixed column order.
func Row(lead *model.Lead) []string {
	return []string{
		str(lead.ClientName),
		str(lead.ClientPhone),
		str(lead.ClientEmail),
		floatStr(lead.MonthlyPremium),
		floatStr(lead.ACAPremium),
		intStr(lead.AnnualIncome),
		str(lead.ReferringAgent),
		str(lead.ApplicationNumber),
		strings.Join(lead.PolicyNumbers, ", "),
		intStr(lead.HouseholdSize),
		str(lead.ZipCode),
		str(lead.DateOfBirth),
		str(lead.Dependents),
		str(lead.ContactNotes),
		lead.ThreadID,
		string(lead.Confidence),
		strconv.FormatBool(lead.IsDuplicate),
		lead.ExtractedAt.UTC().Format(time.RFC3339),
	}
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func floatStr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', 2, 64)
}

func intStr(i *int) string {
	if i == nil {
		return ""
	}
	return strconv.Itoa(*i)
}

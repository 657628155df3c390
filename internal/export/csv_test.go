package export

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

func exportLead() *model.Lead {
	name := "Jane Smith"
	phone := "555-123-4567"
	email := "jane@gmail.com"
	premium := 250.0
	income := 45000
	agent := "Daniel Berman"

	lead := model.NewLead("thread-1")
	lead.ClientName = &name
	lead.ClientPhone = &phone
	lead.ClientEmail = &email
	lead.MonthlyPremium = &premium
	lead.AnnualIncome = &income
	lead.ReferringAgent = &agent
	lead.PolicyNumbers = []string{"P-100", "P-200"}
	lead.Confidence = model.ConfidenceHigh
	lead.ExtractedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return lead
}

func TestRow(t *testing.T) {
	row := Row(exportLead())
	require.Len(t, row, len(Columns))

	byColumn := make(map[string]string, len(Columns))
	for i, col := range Columns {
		byColumn[col] = row[i]
	}

	assert.Equal(t, "Jane Smith", byColumn["client_name"])
	assert.Equal(t, "555-123-4567", byColumn["client_phone"])
	assert.Equal(t, "250.00", byColumn["monthly_premium"])
	assert.Equal(t, "", byColumn["aca_premium"])
	assert.Equal(t, "45000", byColumn["annual_income"])
	assert.Equal(t, "P-100, P-200", byColumn["policy_numbers"])
	assert.Equal(t, "thread-1", byColumn["thread_id"])
	assert.Equal(t, "high", byColumn["confidence"])
	assert.Equal(t, "false", byColumn["is_duplicate"])
	assert.Equal(t, "2025-06-01T12:00:00Z", byColumn["extracted_at"])
}

func TestWriteLeads(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteLeads([]*model.Lead{exportLead()}, dir, "out.csv")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.csv"), path)

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, Columns, records[0])
	assert.Equal(t, "Jane Smith", records[1][0])
}

func TestWriteLeadsDefaultFilename(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteLeads(nil, dir, "")
	require.NoError(t, err)
	base := filepath.Base(path)
	assert.True(t, strings.HasPrefix(base, "leads_export_"))
	assert.True(t, strings.HasSuffix(base, ".csv"))
}

func TestWriteLeadsCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "exports")

	path, err := WriteLeads([]*model.Lead{exportLead()}, dir, "out.csv")
	require.NoError(t, err)
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

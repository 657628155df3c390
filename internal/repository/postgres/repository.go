package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

const leadColumns = `id, client_name, client_phone, client_email, monthly_premium,
	aca_premium, annual_income, referring_agent, application_number,
	policy_numbers, household_size, zip_code, date_of_birth, dependents,
	contact_notes, thread_id, confidence, drive_folder_url, is_duplicate,
	status, extracted_at, created_at, updated_at`

type PostgresLeadRepository struct {
	db *sql.DB
}

func NewPostgresLeadRepository(db *sql.DB) *PostgresLeadRepository {
	return &PostgresLeadRepository{db: db}
}

func (r *PostgresLeadRepository) Insert(ctx context.Context, lead *model.Lead) (string, error) {
	query := `
		INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id`
	var id string
	err := r.db.QueryRowContext(ctx, query,
		lead.ID, lead.ClientName, lead.ClientPhone, lead.ClientEmail,
		lead.MonthlyPremium, lead.ACAPremium, lead.AnnualIncome,
		lead.ReferringAgent, lead.ApplicationNumber, pq.Array(lead.PolicyNumbers),
		lead.HouseholdSize, lead.ZipCode, lead.DateOfBirth, lead.Dependents,
		lead.ContactNotes, lead.ThreadID, string(lead.Confidence),
		lead.DriveFolderURL, lead.IsDuplicate, lead.Status,
		lead.ExtractedAt, lead.CreatedAt, lead.UpdatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert lead: %w", err)
	}
	return id, nil
}

func (r *PostgresLeadRepository) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	return scanLead(row)
}

func (r *PostgresLeadRepository) FindByPhone(ctx context.Context, phone string) (*model.Lead, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE client_phone = $1 LIMIT 1`, phone)
	return scanLead(row)
}

func (r *PostgresLeadRepository) FindByThreadID(ctx context.Context, threadID string) (*model.Lead, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE thread_id = $1`, threadID)
	return scanLead(row)
}

func (r *PostgresLeadRepository) FindAll(ctx context.Context) ([]*model.Lead, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads ORDER BY extracted_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

func (r *PostgresLeadRepository) FindByAgent(ctx context.Context, agentName string) ([]*model.Lead, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE referring_agent = $1 ORDER BY extracted_at DESC`,
		agentName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

func (r *PostgresLeadRepository) FindByStatus(ctx context.Context, status string) ([]*model.Lead, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE status = $1 ORDER BY extracted_at DESC`,
		status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanLeads(rows)
}

func (r *PostgresLeadRepository) ProcessedThreadIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT thread_id FROM leads`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

func (r *PostgresLeadRepository) UpdateStatus(ctx context.Context, id, status string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE leads SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("lead %s not found", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*model.Lead, error) {
	lead := &model.Lead{}
	var confidence string
	var policyNumbers pq.StringArray
	err := row.Scan(
		&lead.ID, &lead.ClientName, &lead.ClientPhone, &lead.ClientEmail,
		&lead.MonthlyPremium, &lead.ACAPremium, &lead.AnnualIncome,
		&lead.ReferringAgent, &lead.ApplicationNumber, &policyNumbers,
		&lead.HouseholdSize, &lead.ZipCode, &lead.DateOfBirth, &lead.Dependents,
		&lead.ContactNotes, &lead.ThreadID, &confidence,
		&lead.DriveFolderURL, &lead.IsDuplicate, &lead.Status,
		&lead.ExtractedAt, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	lead.Confidence = model.Confidence(confidence)
	lead.PolicyNumbers = policyNumbers
	return lead, nil
}

func scanLeads(rows *sql.Rows) ([]*model.Lead, error) {
	var leads []*model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

type PostgresAttachmentRepository struct {
	db *sql.DB
}

func NewPostgresAttachmentRepository(db *sql.DB) *PostgresAttachmentRepository {
	return &PostgresAttachmentRepository{db: db}
}

func (r *PostgresAttachmentRepository) Insert(ctx context.Context, attachment *model.Attachment) error {
	query := `
		INSERT INTO attachments (id, lead_id, filename, mime_type, local_path,
			attachment_id, message_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		attachment.ID, attachment.LeadID, attachment.Filename,
		attachment.MimeType, attachment.LocalPath, attachment.AttachmentID,
		attachment.MessageID, attachment.CreatedAt)
	return err
}

func (r *PostgresAttachmentRepository) FindByLeadID(ctx context.Context, leadID string) ([]model.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, lead_id, filename, mime_type, local_path, attachment_id,
			message_id, created_at
		FROM attachments WHERE lead_id = $1`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attachments []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.LeadID, &a.Filename, &a.MimeType,
			&a.LocalPath, &a.AttachmentID, &a.MessageID, &a.CreatedAt); err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, rows.Err()
}

// InitializeDatabase creates the leads and attachments tables. thread_id
// carries the uniqueness constraint used for dedup; attachments cascade
// with their lead.
func InitializeDatabase(db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS leads (
			id VARCHAR(255) PRIMARY KEY,
			client_name TEXT,
			client_phone TEXT,
			client_email TEXT,
			monthly_premium NUMERIC,
			aca_premium NUMERIC,
			annual_income INTEGER,
			referring_agent TEXT,
			application_number TEXT,
			policy_numbers TEXT[],
			household_size INTEGER,
			zip_code TEXT,
			date_of_birth TEXT,
			dependents TEXT,
			contact_notes TEXT,
			thread_id TEXT UNIQUE NOT NULL,
			confidence TEXT CHECK (confidence IN ('high', 'medium', 'low')),
			drive_folder_url TEXT,
			is_duplicate BOOLEAN DEFAULT FALSE,
			status TEXT DEFAULT 'pending_review',
			extracted_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
			updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id VARCHAR(255) PRIMARY KEY,
			lead_id VARCHAR(255) REFERENCES leads(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			mime_type TEXT,
			local_path TEXT,
			attachment_id TEXT,
			message_id TEXT,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_client_phone ON leads(client_phone)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_referring_agent ON leads(referring_agent)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_status ON leads(status)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_extracted_at ON leads(extracted_at)`,
		`CREATE INDEX IF NOT EXISTS idx_leads_is_duplicate ON leads(is_duplicate)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_lead_id ON attachments(lead_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

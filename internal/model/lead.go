package model

import (
	"time"

	"github.com/google/uuid"
)

// Confidence is the coarse trust tier assigned to an extracted lead.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// rank orders confidence tiers so downgrades can be enforced.
func (c Confidence) rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	}
	return 0
}

// AtMost returns the lower of the two tiers. Confidence never upgrades
// within a single pass.
func (c Confidence) AtMost(other Confidence) Confidence {
	if other.rank() < c.rank() {
		return other
	}
	return c
}

// Lead status values stored alongside the record.
const (
	StatusReadyToContact = "ready_to_contact"
	StatusPendingReview  = "pending_review"
	StatusSkipped        = "skipped"
)

// Lead is the canonical unit of work: one normalized client record
// extracted from a single Gmail thread.
type Lead struct {
	ID                string       `json:"id"`
	ClientName        *string      `json:"client_name"`
	ClientPhone       *string      `json:"client_phone"`
	ClientEmail       *string      `json:"client_email"`
	MonthlyPremium    *float64     `json:"monthly_premium"`
	ACAPremium        *float64     `json:"aca_premium"`
	InitiationFee     *float64     `json:"initiation_fee,omitempty"`
	AnnualIncome      *int         `json:"annual_income"`
	ReferringAgent    *string      `json:"referring_agent"`
	ApplicationNumber *string      `json:"application_number"`
	PolicyNumbers     []string     `json:"policy_numbers"`
	HouseholdSize     *int         `json:"household_size"`
	ZipCode           *string      `json:"zip_code"`
	DateOfBirth       *string      `json:"date_of_birth"`
	Dependents        *string      `json:"dependents"`
	ContactNotes      *string      `json:"contact_notes"`
	ThreadID          string       `json:"thread_id"`
	Confidence        Confidence   `json:"confidence"`
	DriveFolderURL    *string      `json:"drive_folder_url"`
	IsDuplicate       bool         `json:"is_duplicate"`
	DuplicateID       *string      `json:"duplicate_id"`
	Status            string       `json:"status"`
	Attachments       []Attachment `json:"attachments"`
	ExtractedAt       time.Time    `json:"extracted_at"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

func NewLead(threadID string) *Lead {
	now := time.Now()
	return &Lead{
		ID:         uuid.New().String(),
		ThreadID:   threadID,
		Confidence: ConfidenceLow,
		Status:     StatusPendingReview,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Attachment is a file downloaded from a thread message. It is persisted
// only when its parent lead is persisted.
type Attachment struct {
	ID           string    `json:"id"`
	LeadID       string    `json:"lead_id"`
	Filename     string    `json:"filename"`
	MimeType     string    `json:"mime_type"`
	LocalPath    string    `json:"local_path"`
	AttachmentID string    `json:"attachment_id"`
	MessageID    string    `json:"message_id"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewAttachment(filename, mimeType, localPath, attachmentID, messageID string) Attachment {
	return Attachment{
		ID:           uuid.New().String(),
		Filename:     filename,
		MimeType:     mimeType,
		LocalPath:    localPath,
		AttachmentID: attachmentID,
		MessageID:    messageID,
		CreatedAt:    time.Now(),
	}
}

// HasRequiredFields reports whether the lead can be persisted at all.
// Name and phone are the only hard requirements.
func (l *Lead) HasRequiredFields() bool {
	return l.ClientName != nil && *l.ClientName != "" &&
		l.ClientPhone != nil && *l.ClientPhone != ""
}

// StringOrEmpty dereferences an optional string field for display.
func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

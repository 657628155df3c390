package repository

import (
	"context"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

// LeadRepository defines the persistent store for extracted leads. Lookup
// methods return (nil, nil) when no row matches; an error always means the
// store itself failed.
type LeadRepository interface {
	Insert(ctx context.Context, lead *model.Lead) (string, error)
	FindByID(ctx context.Context, id string) (*model.Lead, error)
	FindByPhone(ctx context.Context, phone string) (*model.Lead, error)
	FindByThreadID(ctx context.Context, threadID string) (*model.Lead, error)
	FindAll(ctx context.Context) ([]*model.Lead, error)
	FindByAgent(ctx context.Context, agentName string) ([]*model.Lead, error)
	FindByStatus(ctx context.Context, status string) ([]*model.Lead, error)
	ProcessedThreadIDs(ctx context.Context) (map[string]struct{}, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// AttachmentRepository stores attachment rows belonging to persisted leads.
// Rows cascade-delete with their lead.
type AttachmentRepository interface {
	Insert(ctx context.Context, attachment *model.Attachment) error
	FindByLeadID(ctx context.Context, leadID string) ([]model.Attachment, error)
}

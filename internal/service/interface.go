package service

import (
	"context"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

// GmailClient is the message source: search results, full threads, and
// attachment payloads, keyed by opaque identifiers.
type GmailClient interface {
	Search(ctx context.Context, query string, limit int) ([]model.MessageSummary, int, error)
	ReadThread(ctx context.Context, threadID string, full bool) (*model.Thread, error)
	DownloadAttachment(ctx context.Context, messageID, attachmentID, destPath string) error
}

// LeadExtractor produces a raw lead record from a thread.
type LeadExtractor interface {
	Extract(ctx context.Context, thread *model.Thread, agentEmail string) (*model.RawLead, error)
}

// Notifier posts a high-value lead alert. Implementations log and swallow
// their own failures; a notification must never fail the pipeline.
type Notifier interface {
	Notify(ctx context.Context, lead *model.Lead)
}

// DriveUploader stores a lead's attachments in remote file storage and
// returns a browsable folder URL.
type DriveUploader interface {
	UploadLeadFolder(ctx context.Context, threadID string, attachments []model.Attachment) (string, error)
}

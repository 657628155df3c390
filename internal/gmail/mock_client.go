package gmail

import (
	"context"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

// MockClient is a mock message source for testing and dry runs. With no
// func fields set it behaves as a null source returning empty results.
type MockClient struct {
	SearchFunc             func(ctx context.Context, query string, limit int) ([]model.MessageSummary, int, error)
	ReadThreadFunc         func(ctx context.Context, threadID string, full bool) (*model.Thread, error)
	DownloadAttachmentFunc func(ctx context.Context, messageID, attachmentID, destPath string) error
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Search(ctx context.Context, query string, limit int) ([]model.MessageSummary, int, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, limit)
	}
	return []model.MessageSummary{}, 0, nil
}

func (m *MockClient) ReadThread(ctx context.Context, threadID string, full bool) (*model.Thread, error) {
	if m.ReadThreadFunc != nil {
		return m.ReadThreadFunc(ctx, threadID, full)
	}
	return &model.Thread{ID: threadID}, nil
}

func (m *MockClient) DownloadAttachment(ctx context.Context, messageID, attachmentID, destPath string) error {
	if m.DownloadAttachmentFunc != nil {
		return m.DownloadAttachmentFunc(ctx, messageID, attachmentID, destPath)
	}
	return nil
}

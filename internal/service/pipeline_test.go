package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/repository/memory"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/rules"
)

// mockSource is a message source with per-test overrides.
type mockSource struct {
	SearchFunc             func(ctx context.Context, query string, limit int) ([]model.MessageSummary, int, error)
	ReadThreadFunc         func(ctx context.Context, threadID string, full bool) (*model.Thread, error)
	DownloadAttachmentFunc func(ctx context.Context, messageID, attachmentID, destPath string) error
}

func (m *mockSource) Search(ctx context.Context, query string, limit int) ([]model.MessageSummary, int, error) {
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, limit)
	}
	return []model.MessageSummary{}, 0, nil
}

func (m *mockSource) ReadThread(ctx context.Context, threadID string, full bool) (*model.Thread, error) {
	if m.ReadThreadFunc != nil {
		return m.ReadThreadFunc(ctx, threadID, full)
	}
	return &model.Thread{ID: threadID, Messages: []model.Message{{ID: threadID + "-m1", ThreadID: threadID}}}, nil
}

func (m *mockSource) DownloadAttachment(ctx context.Context, messageID, attachmentID, destPath string) error {
	if m.DownloadAttachmentFunc != nil {
		return m.DownloadAttachmentFunc(ctx, messageID, attachmentID, destPath)
	}
	return nil
}

type mockExtractor struct {
	ExtractFunc func(ctx context.Context, thread *model.Thread, agentEmail string) (*model.RawLead, error)
	calls       int
}

func (m *mockExtractor) Extract(ctx context.Context, thread *model.Thread, agentEmail string) (*model.RawLead, error) {
	m.calls++
	if m.ExtractFunc != nil {
		return m.ExtractFunc(ctx, thread, agentEmail)
	}
	// A distinct phone per call keeps unrelated threads from colliding in
	// the duplicate check.
	return rawLeadFor(thread.ID, fmt.Sprintf("555-%03d-%04d", m.calls, m.calls)), nil
}

func rawLeadFor(threadID, phone string) *model.RawLead {
	name := "Client " + threadID
	premium := model.Flex("250.00")
	flexPhone := model.Flex(phone)
	return &model.RawLead{
		ClientName:     &name,
		ClientPhone:    &flexPhone,
		MonthlyPremium: &premium,
		ThreadID:       threadID,
		Confidence:     model.ConfidenceHigh,
	}
}

type recordingNotifier struct {
	notified []*model.Lead
}

func (n *recordingNotifier) Notify(ctx context.Context, lead *model.Lead) {
	n.notified = append(n.notified, lead)
}

type mockUploader struct {
	UploadLeadFolderFunc func(ctx context.Context, threadID string, attachments []model.Attachment) (string, error)
}

func (m *mockUploader) UploadLeadFolder(ctx context.Context, threadID string, attachments []model.Attachment) (string, error) {
	if m.UploadLeadFolderFunc != nil {
		return m.UploadLeadFolderFunc(ctx, threadID, attachments)
	}
	return "", nil
}

type pipelineFixture struct {
	source      *mockSource
	extractor   *mockExtractor
	leads       *memory.InMemoryLeadRepository
	attachments *memory.InMemoryAttachmentRepository
	notifier    *recordingNotifier
	uploader    *mockUploader
	pauses      []time.Duration
	pipeline    *Pipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		source:      &mockSource{},
		extractor:   &mockExtractor{},
		leads:       memory.NewInMemoryLeadRepository(),
		attachments: memory.NewInMemoryAttachmentRepository(),
		notifier:    &recordingNotifier{},
		uploader:    &mockUploader{},
	}
	logger := zap.NewNop()
	normalizer := rules.NewNormalizer(model.AgentDirectory{}, model.BlockLists{})
	resolver := NewDuplicateResolver(f.leads, logger)
	f.pipeline = NewPipeline(
		f.source, f.extractor, normalizer, resolver,
		f.leads, f.attachments, f.notifier, f.uploader,
		t.TempDir(), 200.00, logger,
	).WithSleep(func(d time.Duration) { f.pauses = append(f.pauses, d) })
	return f
}

func summariesFor(threadIDs ...string) []model.MessageSummary {
	summaries := make([]model.MessageSummary, 0, len(threadIDs))
	for i, tid := range threadIDs {
		summaries = append(summaries, model.MessageSummary{ID: fmt.Sprintf("msg-%d", i), ThreadID: tid})
	}
	return summaries
}

func searchReturning(threadIDs ...string) func(ctx context.Context, query string, limit int) ([]model.MessageSummary, int, error) {
	return func(ctx context.Context, query string, limit int) ([]model.MessageSummary, int, error) {
		s := summariesFor(threadIDs...)
		return s, len(s), nil
	}
}

func TestProcessBatchAutoPersistsAndNotifies(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.SearchFunc = searchReturning("t1", "t2")

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 2, stats.Persisted)
	// Premium 250 clears the 200 threshold on both.
	assert.Equal(t, 2, stats.Notified)
	assert.Len(t, f.notifier.notified, 2)

	stored, err := f.leads.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	assert.Equal(t, model.StatusReadyToContact, stored[0].Status)
}

func TestProcessBatchOneFailureDoesNotAbort(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.SearchFunc = searchReturning("t1", "t2", "t3", "t4", "t5")
	f.extractor.ExtractFunc = func(ctx context.Context, thread *model.Thread, agentEmail string) (*model.RawLead, error) {
		if thread.ID == "t3" {
			return nil, fmt.Errorf("parse lead json: unexpected end of input")
		}
		return rawLeadFor(thread.ID, fmt.Sprintf("555-123-000%s", thread.ID[1:])), nil
	}

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)

	assert.Len(t, results, 4)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 4, stats.Persisted)
	// Generic failure class pauses before the next item.
	require.Len(t, f.pauses, 1)
	assert.Equal(t, genericPause, f.pauses[0])

	// The items after the failure were still processed.
	for _, tid := range []string{"t4", "t5"} {
		lead, err := f.leads.FindByThreadID(context.Background(), tid)
		require.NoError(t, err)
		assert.NotNil(t, lead, "thread %s", tid)
	}
}

func TestProcessBatchPauseClassByError(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.SearchFunc = searchReturning("t1", "t2")
	f.extractor.ExtractFunc = func(ctx context.Context, thread *model.Thread, agentEmail string) (*model.RawLead, error) {
		if thread.ID == "t1" {
			return nil, fmt.Errorf("rate_limit_exceeded")
		}
		return nil, fmt.Errorf("maximum context length exceeded")
	}

	_, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Failed)
	require.Len(t, f.pauses, 2)
	assert.Equal(t, rateLimitPause, f.pauses[0])
	assert.Equal(t, tokenLimitPause, f.pauses[1])
}

func TestProcessBatchPrefiltersStoredThreads(t *testing.T) {
	f := newPipelineFixture(t)
	storedLead(t, f.leads, "t1", "555-000-0001")
	f.source.SearchFunc = searchReturning("t1", "t2")

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Found)
	assert.Equal(t, 1, stats.AlreadyDone)
	assert.Len(t, results, 1)
	assert.Equal(t, "t2", results[0].ThreadID)
	assert.Equal(t, 1, f.extractor.calls, "no extraction spent on stored threads")
}

func TestProcessBatchDedupsWithinBatch(t *testing.T) {
	f := newPipelineFixture(t)
	// Two messages from the same conversation appear in one result set.
	f.source.SearchFunc = searchReturning("t1", "t1", "t2")

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)

	assert.Len(t, results, 2)
	assert.Equal(t, 2, f.extractor.calls)
	assert.Equal(t, 1, stats.AlreadyDone)
}

func TestProcessBatchReportOnly(t *testing.T) {
	f := newPipelineFixture(t)
	storedLead(t, f.leads, "t1", "555-000-0001")
	f.source.SearchFunc = searchReturning("t1", "t2", "t3")

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeReportOnly})
	require.NoError(t, err)

	assert.Nil(t, results)
	assert.Equal(t, 3, stats.Found)
	assert.Equal(t, 1, stats.AlreadyDone)
	assert.Equal(t, 0, f.extractor.calls, "report mode spends no extraction calls")
}

func TestProcessBatchSkipsMultiMessageThreads(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.SearchFunc = searchReturning("t1")
	f.source.ReadThreadFunc = func(ctx context.Context, threadID string, full bool) (*model.Thread, error) {
		return &model.Thread{ID: threadID, Messages: []model.Message{
			{ID: "m1", ThreadID: threadID},
			{ID: "m2", ThreadID: threadID},
		}}, nil
	}

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto, SkipMultiMessage: true})
	require.NoError(t, err)

	assert.Empty(t, results)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, f.extractor.calls)
}

func TestProcessBatchManualModeQueues(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.SearchFunc = searchReturning("t1")

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeManual})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 1, stats.Queued)
	assert.Equal(t, 0, stats.Persisted)
	assert.Empty(t, f.notifier.notified)

	stored, err := f.leads.FindByThreadID(context.Background(), "t1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, model.StatusPendingReview, stored.Status)
}

func TestProcessBatchDuplicateSkippedInAutoMode(t *testing.T) {
	f := newPipelineFixture(t)
	existing := storedLead(t, f.leads, "t-old", "555-123-4567")
	f.source.SearchFunc = searchReturning("t-new")
	f.extractor.ExtractFunc = func(ctx context.Context, thread *model.Thread, agentEmail string) (*model.RawLead, error) {
		return rawLeadFor(thread.ID, "555-123-4567"), nil
	}

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.True(t, results[0].IsDuplicate)
	require.NotNil(t, results[0].DuplicateID)
	assert.Equal(t, existing.ID, *results[0].DuplicateID)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Persisted)

	// The duplicate was reported but never stored.
	stored, err := f.leads.FindByThreadID(context.Background(), "t-new")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestProcessBatchMissingRequiredFieldsNotPersisted(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.SearchFunc = searchReturning("t1")
	f.extractor.ExtractFunc = func(ctx context.Context, thread *model.Thread, agentEmail string) (*model.RawLead, error) {
		raw := rawLeadFor(thread.ID, "555-123-4567")
		raw.ClientName = nil
		return raw, nil
	}

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.Equal(t, 0, stats.Persisted)
	assert.Equal(t, 1, stats.Skipped)

	stored, err := f.leads.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestProcessBatchDownloadsAndStoresAttachments(t *testing.T) {
	f := newPipelineFixture(t)
	f.source.SearchFunc = searchReturning("t1")
	f.source.ReadThreadFunc = func(ctx context.Context, threadID string, full bool) (*model.Thread, error) {
		return &model.Thread{ID: threadID, Messages: []model.Message{{
			ID:       "m1",
			ThreadID: threadID,
			Payload: &model.MessagePart{
				MimeType: "multipart/mixed",
				Parts: []*model.MessagePart{
					{MimeType: "text/plain"},
					{MimeType: "application/pdf", Filename: "policy.pdf", AttachmentID: "att-1"},
				},
			},
		}}}, nil
	}
	f.uploader.UploadLeadFolderFunc = func(ctx context.Context, threadID string, attachments []model.Attachment) (string, error) {
		return "https://drive.google.com/drive/folders/abc", nil
	}

	results, _, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)
	require.Len(t, results, 1)

	lead := results[0]
	require.Len(t, lead.Attachments, 1)
	assert.Equal(t, "policy.pdf", lead.Attachments[0].Filename)
	require.NotNil(t, lead.DriveFolderURL)
	assert.Equal(t, "https://drive.google.com/drive/folders/abc", *lead.DriveFolderURL)

	rows, err := f.attachments.FindByLeadID(context.Background(), lead.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, lead.ID, rows[0].LeadID)
}

func TestProcessBatchEmptySearch(t *testing.T) {
	f := newPipelineFixture(t)

	results, stats, err := f.pipeline.ProcessBatch(context.Background(), BatchOptions{Mode: ModeAuto})
	require.NoError(t, err)
	assert.Nil(t, results)
	assert.Equal(t, 0, stats.Found)
}

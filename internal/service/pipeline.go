// Package service contains the lead pipeline: duplicate resolution,
// disposition, and the batch coordinator tying source, extractor,
// normalizer, store, and sinks together.
package service

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/extract"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/repository"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/rules"
)

// Pauses applied between items after a failure, by failure class.
const (
	rateLimitPause  = 65 * time.Second
	tokenLimitPause = 5 * time.Second
	genericPause    = 30 * time.Second
)

// BatchOptions describes one processing run. Query is the opaque Gmail
// search string, already assembled by the caller.
type BatchOptions struct {
	Query            string
	AgentEmail       string
	MaxResults       int
	Mode             Mode
	SkipMultiMessage bool
}

// BatchStats summarizes every item's fate in a run.
type BatchStats struct {
	Found       int
	AlreadyDone int
	Processed   int
	Persisted   int
	Notified    int
	Queued      int
	Skipped     int
	Failed      int
}

type Pipeline struct {
	gmail       GmailClient
	extractor   LeadExtractor
	normalizer  *rules.Normalizer
	resolver    *DuplicateResolver
	leads       repository.LeadRepository
	attachments repository.AttachmentRepository
	notifier    Notifier
	uploader    DriveUploader
	logger      *zap.Logger

	attachmentsDir     string
	highValueThreshold float64
	sleep              func(time.Duration)
}

func NewPipeline(
	gmail GmailClient,
	extractor LeadExtractor,
	normalizer *rules.Normalizer,
	resolver *DuplicateResolver,
	leads repository.LeadRepository,
	attachments repository.AttachmentRepository,
	notifier Notifier,
	uploader DriveUploader,
	attachmentsDir string,
	highValueThreshold float64,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		gmail:              gmail,
		extractor:          extractor,
		normalizer:         normalizer,
		resolver:           resolver,
		leads:              leads,
		attachments:        attachments,
		notifier:           notifier,
		uploader:           uploader,
		attachmentsDir:     attachmentsDir,
		highValueThreshold: highValueThreshold,
		logger:             logger,
		sleep:              time.Sleep,
	}
}

// WithSleep overrides the inter-item pause function. Used by tests.
func (p *Pipeline) WithSleep(sleep func(time.Duration)) *Pipeline {
	p.sleep = sleep
	return p
}

// ProcessBatch runs the full pipeline over one search result set. Items
// are processed strictly sequentially; a failing item is logged, paused
// over, and never aborts the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, opts BatchOptions) ([]*model.Lead, BatchStats, error) {
	var stats BatchStats

	summaries, _, err := p.gmail.Search(ctx, opts.Query, opts.MaxResults)
	if err != nil {
		return nil, stats, err
	}
	stats.Found = len(summaries)
	if len(summaries) == 0 {
		p.logger.Info("no messages found")
		return nil, stats, nil
	}

	threadIDs := p.filterWorkList(ctx, summaries)
	stats.AlreadyDone = stats.Found - len(threadIDs)
	if stats.AlreadyDone > 0 {
		p.logger.Info("skipped already-processed threads",
			zap.Int("skipped", stats.AlreadyDone))
	}

	if opts.Mode == ModeReportOnly {
		p.logger.Info("report",
			zap.Int("total_found", stats.Found),
			zap.Int("already_processed", stats.AlreadyDone),
			zap.Int("new_to_process", len(threadIDs)))
		return nil, stats, nil
	}
	if len(threadIDs) == 0 {
		p.logger.Info("all messages already processed")
		return nil, stats, nil
	}

	p.logger.Info("processing new threads", zap.Int("count", len(threadIDs)))

	var results []*model.Lead
	for _, threadID := range threadIDs {
		lead, err := p.processThread(ctx, threadID, opts, &stats)
		if err != nil {
			stats.Failed++
			p.logger.Error("failed to process thread",
				zap.String("thread_id", threadID),
				zap.Error(err))
			p.pauseAfterError(err)
			continue
		}
		if lead != nil {
			results = append(results, lead)
		}
	}

	p.logger.Info("batch complete",
		zap.Int("extracted", len(results)),
		zap.Int("persisted", stats.Persisted),
		zap.Int("queued", stats.Queued),
		zap.Int("skipped", stats.Skipped),
		zap.Int("failed", stats.Failed))
	return results, stats, nil
}

// filterWorkList drops threads already in the store and dedups the batch
// by thread id, first occurrence winning.
func (p *Pipeline) filterWorkList(ctx context.Context, summaries []model.MessageSummary) []string {
	processed := p.resolver.ProcessedThreadIDs(ctx)

	seen := make(map[string]struct{})
	var threadIDs []string
	for _, summary := range summaries {
		tid := summary.ThreadID
		if tid == "" {
			continue
		}
		if _, done := processed[tid]; done {
			continue
		}
		if _, dup := seen[tid]; dup {
			continue
		}
		seen[tid] = struct{}{}
		threadIDs = append(threadIDs, tid)
	}
	return threadIDs
}

// processThread runs one item end to end: fetch, extract, normalize,
// resolve duplicates, decide, and act. A nil lead with nil error means the
// item was skipped before extraction.
func (p *Pipeline) processThread(ctx context.Context, threadID string, opts BatchOptions, stats *BatchStats) (*model.Lead, error) {
	thread, err := p.gmail.ReadThread(ctx, threadID, true)
	if err != nil {
		return nil, err
	}

	if opts.SkipMultiMessage && len(thread.Messages) > 1 {
		p.logger.Info("skipping multi-message conversation",
			zap.String("thread_id", threadID))
		stats.Skipped++
		return nil, nil
	}

	raw, err := p.extractor.Extract(ctx, thread, opts.AgentEmail)
	if err != nil {
		return nil, err
	}
	stats.Processed++

	lead := p.normalizer.Normalize(raw)

	lead.Attachments = p.downloadAttachments(ctx, thread)
	if p.uploader != nil && len(lead.Attachments) > 0 {
		if url, err := p.uploader.UploadLeadFolder(ctx, threadID, lead.Attachments); err != nil {
			p.logger.Error("drive upload failed",
				zap.String("thread_id", threadID),
				zap.Error(err))
		} else if url != "" {
			lead.DriveFolderURL = &url
		}
	}

	duplicate := p.resolver.FindDuplicate(ctx, lead.ClientPhone, threadID)
	if duplicate != nil {
		lead.IsDuplicate = true
		lead.DuplicateID = &duplicate.ID
	}

	action := Decide(lead, duplicate, opts.Mode, p.highValueThreshold)
	switch action {
	case ActionSkip:
		stats.Skipped++
		p.logger.Info("skipping lead",
			zap.String("thread_id", threadID),
			zap.Bool("duplicate", lead.IsDuplicate))
	case ActionQueueForReview:
		lead.Status = model.StatusPendingReview
		if p.persist(ctx, lead) {
			stats.Queued++
		} else {
			stats.Skipped++
		}
	case ActionPersist:
		if p.persist(ctx, lead) {
			stats.Persisted++
		} else {
			stats.Skipped++
		}
	case ActionNotifyAndPersist:
		if p.persist(ctx, lead) {
			stats.Persisted++
			stats.Notified++
			p.notifier.Notify(ctx, lead)
		} else {
			stats.Skipped++
		}
	}

	p.logger.Info("extracted lead",
		zap.String("thread_id", threadID),
		zap.String("client", model.StringOrEmpty(lead.ClientName)),
		zap.String("confidence", string(lead.Confidence)),
		zap.String("action", string(action)))
	return lead, nil
}

// downloadAttachments pulls every named part in the thread to local disk.
// Individual failures are logged and the rest still download.
func (p *Pipeline) downloadAttachments(ctx context.Context, thread *model.Thread) []model.Attachment {
	var attachments []model.Attachment

	for i := range thread.Messages {
		msg := &thread.Messages[i]
		if msg.Payload == nil {
			continue
		}
		for _, part := range msg.Payload.Parts {
			if part.Filename == "" || part.AttachmentID == "" {
				continue
			}
			localPath := filepath.Join(p.attachmentsDir, thread.ID, part.Filename)
			if err := p.gmail.DownloadAttachment(ctx, msg.ID, part.AttachmentID, localPath); err != nil {
				p.logger.Error("failed to download attachment",
					zap.String("filename", part.Filename),
					zap.Error(err))
				continue
			}
			attachments = append(attachments,
				model.NewAttachment(part.Filename, part.MimeType, localPath, part.AttachmentID, msg.ID))
		}
	}
	return attachments
}

// persist writes the lead and its attachments. The required-field gate
// turns a save without name or phone into a logged no-op; store errors are
// logged and swallowed so the batch continues.
func (p *Pipeline) persist(ctx context.Context, lead *model.Lead) bool {
	if !lead.HasRequiredFields() {
		p.logger.Warn("skipping save, missing required fields",
			zap.String("thread_id", lead.ThreadID),
			zap.Bool("has_name", lead.ClientName != nil),
			zap.Bool("has_phone", lead.ClientPhone != nil))
		return false
	}

	id, err := p.leads.Insert(ctx, lead)
	if err != nil {
		p.logger.Error("failed to save lead",
			zap.String("thread_id", lead.ThreadID),
			zap.Error(err))
		return false
	}

	for i := range lead.Attachments {
		lead.Attachments[i].LeadID = id
		if err := p.attachments.Insert(ctx, &lead.Attachments[i]); err != nil {
			p.logger.Error("failed to save attachment",
				zap.String("filename", lead.Attachments[i].Filename),
				zap.Error(err))
		}
	}

	p.logger.Info("saved lead",
		zap.String("client", model.StringOrEmpty(lead.ClientName)),
		zap.String("id", id))
	return true
}

// pauseAfterError applies the per-class pause before the next item: a full
// backoff window after rate limiting, a short one after an oversized
// prompt, a generic one otherwise.
func (p *Pipeline) pauseAfterError(err error) {
	switch {
	case extract.IsRateLimit(err):
		p.logger.Info("rate limit hit, pausing before next thread",
			zap.Duration("pause", rateLimitPause))
		p.sleep(rateLimitPause)
	case extract.IsTokenLimit(err):
		p.logger.Warn("thread exceeds token limit even after trimming",
			zap.Duration("pause", tokenLimitPause))
		p.sleep(tokenLimitPause)
	default:
		p.sleep(genericPause)
	}
}

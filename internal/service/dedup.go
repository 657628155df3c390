package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/repository"
)

// DuplicateResolver checks the store for an existing lead matching the
// phone number or the thread identity. Store failures degrade to "no
// duplicate" so a flaky lookup never blocks the pipeline.
type DuplicateResolver struct {
	leads  repository.LeadRepository
	logger *zap.Logger
}

func NewDuplicateResolver(leads repository.LeadRepository, logger *zap.Logger) *DuplicateResolver {
	return &DuplicateResolver{leads: leads, logger: logger}
}

// FindDuplicate runs both existence checks; a phone match takes precedence
// over a thread match.
func (r *DuplicateResolver) FindDuplicate(ctx context.Context, phone *string, threadID string) *model.Lead {
	if phone != nil && *phone != "" {
		existing, err := r.leads.FindByPhone(ctx, *phone)
		if err != nil {
			r.logger.Error("duplicate check by phone failed", zap.Error(err))
		} else if existing != nil {
			r.logger.Warn("duplicate found by phone",
				zap.String("phone", *phone),
				zap.String("existing_id", existing.ID))
			return existing
		}
	}

	existing, err := r.leads.FindByThreadID(ctx, threadID)
	if err != nil {
		r.logger.Error("duplicate check by thread failed", zap.Error(err))
		return nil
	}
	if existing != nil {
		r.logger.Warn("thread already processed",
			zap.String("thread_id", threadID),
			zap.String("existing_id", existing.ID))
	}
	return existing
}

// ProcessedThreadIDs returns the identity set of already-stored threads so
// a work batch can be pre-filtered before any extraction call is spent.
// Fails open to an empty set.
func (r *DuplicateResolver) ProcessedThreadIDs(ctx context.Context) map[string]struct{} {
	ids, err := r.leads.ProcessedThreadIDs(ctx)
	if err != nil {
		r.logger.Error("failed to load processed thread ids", zap.Error(err))
		return map[string]struct{}{}
	}
	return ids
}

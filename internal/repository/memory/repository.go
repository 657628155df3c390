package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/imthebreezy247/ACA-Renewals-stomp-campaign/internal/model"
)

// InMemoryLeadRepository keeps leads in a map. Used for tests and dry runs
// when no DATABASE_URL is configured.
type InMemoryLeadRepository struct {
	leads map[string]*model.Lead
	mutex sync.RWMutex
}

func NewInMemoryLeadRepository() *InMemoryLeadRepository {
	return &InMemoryLeadRepository{
		leads: make(map[string]*model.Lead),
	}
}

func (r *InMemoryLeadRepository) Insert(ctx context.Context, lead *model.Lead) (string, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, existing := range r.leads {
		if existing.ThreadID == lead.ThreadID {
			return "", fmt.Errorf("lead for thread %s already exists", lead.ThreadID)
		}
	}

	copied := *lead
	r.leads[lead.ID] = &copied
	return lead.ID, nil
}

func (r *InMemoryLeadRepository) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	lead, exists := r.leads[id]
	if !exists {
		return nil, nil
	}
	copied := *lead
	return &copied, nil
}

func (r *InMemoryLeadRepository) FindByPhone(ctx context.Context, phone string) (*model.Lead, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, lead := range r.leads {
		if lead.ClientPhone != nil && *lead.ClientPhone == phone {
			copied := *lead
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *InMemoryLeadRepository) FindByThreadID(ctx context.Context, threadID string) (*model.Lead, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, lead := range r.leads {
		if lead.ThreadID == threadID {
			copied := *lead
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *InMemoryLeadRepository) FindAll(ctx context.Context) ([]*model.Lead, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.collect(func(*model.Lead) bool { return true }), nil
}

func (r *InMemoryLeadRepository) FindByAgent(ctx context.Context, agentName string) ([]*model.Lead, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.collect(func(l *model.Lead) bool {
		return l.ReferringAgent != nil && *l.ReferringAgent == agentName
	}), nil
}

func (r *InMemoryLeadRepository) FindByStatus(ctx context.Context, status string) ([]*model.Lead, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.collect(func(l *model.Lead) bool { return l.Status == status }), nil
}

func (r *InMemoryLeadRepository) collect(match func(*model.Lead) bool) []*model.Lead {
	var leads []*model.Lead
	for _, lead := range r.leads {
		if match(lead) {
			copied := *lead
			leads = append(leads, &copied)
		}
	}
	sort.Slice(leads, func(i, j int) bool {
		return leads[i].ExtractedAt.After(leads[j].ExtractedAt)
	})
	return leads
}

func (r *InMemoryLeadRepository) ProcessedThreadIDs(ctx context.Context) (map[string]struct{}, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	ids := make(map[string]struct{}, len(r.leads))
	for _, lead := range r.leads {
		ids[lead.ThreadID] = struct{}{}
	}
	return ids, nil
}

func (r *InMemoryLeadRepository) UpdateStatus(ctx context.Context, id, status string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	lead, exists := r.leads[id]
	if !exists {
		return fmt.Errorf("lead %s not found", id)
	}
	lead.Status = status
	lead.UpdatedAt = time.Now()
	return nil
}

// InMemoryAttachmentRepository stores attachment rows keyed by lead id.
type InMemoryAttachmentRepository struct {
	attachments map[string][]model.Attachment
	mutex       sync.RWMutex
}

func NewInMemoryAttachmentRepository() *InMemoryAttachmentRepository {
	return &InMemoryAttachmentRepository{
		attachments: make(map[string][]model.Attachment),
	}
}

func (r *InMemoryAttachmentRepository) Insert(ctx context.Context, attachment *model.Attachment) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.attachments[attachment.LeadID] = append(r.attachments[attachment.LeadID], *attachment)
	return nil
}

func (r *InMemoryAttachmentRepository) FindByLeadID(ctx context.Context, leadID string) ([]model.Attachment, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	attachments := make([]model.Attachment, len(r.attachments[leadID]))
	copy(attachments, r.attachments[leadID])
	return attachments, nil
}

package persistence

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
)

type integrationKey struct {
	companyID string
	platform  model.Platform
}

// IntegrationRepositoryMemory keeps records in process. Used for local runs
// and as the reference behaviour in tests.
type IntegrationRepositoryMemory struct {
	mu      sync.RWMutex
	nextID  int64
	records map[integrationKey]model.IntegrationRecord
}

func NewIntegrationRepositoryMemory() *IntegrationRepositoryMemory {
	return &IntegrationRepositoryMemory{records: make(map[integrationKey]model.IntegrationRecord)}
}

func (r *IntegrationRepositoryMemory) Upsert(ctx context.Context, rec *model.IntegrationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	key := integrationKey{rec.CompanyID, rec.Platform}
	stored, ok := r.records[key]
	if !ok {
		r.nextID++
		stored = model.IntegrationRecord{
			ID:        strconv.FormatInt(r.nextID, 10),
			CompanyID: rec.CompanyID,
			Platform:  rec.Platform,
			Settings:  rec.Settings,
			CreatedAt: now,
		}
	}
	stored.Credentials = rec.Credentials.Clone()
	stored.IsActive = true
	stored.UpdatedAt = now
	r.records[key] = stored

	*rec = detach(stored)
	return nil
}

func (r *IntegrationRepositoryMemory) Get(ctx context.Context, companyID string, platform model.Platform) (*model.IntegrationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[integrationKey{companyID, platform}]
	if !ok {
		return nil, fmt.Errorf("integration %s/%s: %w", companyID, platform, model.ErrNotFound)
	}
	out := detach(rec)
	return &out, nil
}

func (r *IntegrationRepositoryMemory) ListByCompany(ctx context.Context, companyID string) ([]*model.IntegrationRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*model.IntegrationRecord
	for key, rec := range r.records {
		if key.companyID == companyID {
			rec := detach(rec)
			out = append(out, &rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

// detach returns a copy callers may mutate without touching the stored record.
func detach(rec model.IntegrationRecord) model.IntegrationRecord {
	rec.Credentials = rec.Credentials.Clone()
	return rec
}

// Len is the number of stored records.
func (r *IntegrationRepositoryMemory) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

var _ repository.IIntegration = (*IntegrationRepositoryMemory)(nil)

package repository

import (
	"context"

	"github.com/mido200912/Ai-Thor/domain/model"
)

// IIntegration is the credential store. Upsert replaces the credentials of an
// existing (company, platform) record in a single write and keeps its settings.
type IIntegration interface {
	Upsert(ctx context.Context, rec *model.IntegrationRecord) error
	Get(ctx context.Context, companyID string, platform model.Platform) (*model.IntegrationRecord, error)
	ListByCompany(ctx context.Context, companyID string) ([]*model.IntegrationRecord, error)
}

// ICompany is the company directory owned by the company CRUD subsystem.
type ICompany interface {
	Exists(ctx context.Context, companyID string) (bool, error)
}

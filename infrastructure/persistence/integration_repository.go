package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
)

// IntegrationRepository is the Postgres credential store.
type IntegrationRepository struct{ db *sql.DB }

func NewIntegrationRepository(db *sql.DB) *IntegrationRepository {
	return &IntegrationRepository{db: db}
}

// EnsureIntegrationSchema creates the integrations table and its unique key.
func EnsureIntegrationSchema(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS integrations (
	id BIGSERIAL PRIMARY KEY,
	company_id TEXT NOT NULL,
	platform TEXT NOT NULL,
	access_token TEXT NOT NULL,
	refresh_token TEXT NULL,
	user_access_token TEXT NULL,
	page_id TEXT NULL,
	page_name TEXT NULL,
	ad_account_id TEXT NULL,
	shop_url TEXT NULL,
	webhook_secret TEXT NULL,
	scopes TEXT NOT NULL DEFAULT '',
	expires_at TIMESTAMPTZ NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	auto_reply BOOLEAN NOT NULL DEFAULT TRUE,
	sync_products BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT ux_integrations_company_platform UNIQUE (company_id, platform)
)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create integrations: %w", err)
	}
	return nil
}

// Upsert replaces every credential column of the (company, platform) row in
// one statement. Settings and created_at are only written on insert.
func (r *IntegrationRepository) Upsert(ctx context.Context, rec *model.IntegrationRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	q := `INSERT INTO integrations (company_id, platform, access_token, refresh_token, user_access_token, page_id, page_name, ad_account_id, shop_url, webhook_secret, scopes, expires_at, is_active, auto_reply, sync_products, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$16)
		  ON CONFLICT (company_id, platform) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			user_access_token=EXCLUDED.user_access_token,
			page_id=EXCLUDED.page_id,
			page_name=EXCLUDED.page_name,
			ad_account_id=EXCLUDED.ad_account_id,
			shop_url=EXCLUDED.shop_url,
			webhook_secret=EXCLUDED.webhook_secret,
			scopes=EXCLUDED.scopes,
			expires_at=EXCLUDED.expires_at,
			is_active=TRUE,
			updated_at=EXCLUDED.updated_at
		  RETURNING id, auto_reply, sync_products, created_at`
	var id int64
	err := r.db.QueryRowContext(ctx, q, upsertArgs(rec)...).
		Scan(&id, &rec.Settings.AutoReply, &rec.Settings.SyncProducts, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert integration %s/%s: %w", rec.CompanyID, rec.Platform, err)
	}
	rec.ID = fmt.Sprint(id)
	rec.IsActive = true
	return nil
}

func (r *IntegrationRepository) Get(ctx context.Context, companyID string, platform model.Platform) (*model.IntegrationRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+integrationColumns+` FROM integrations WHERE company_id=$1 AND platform=$2`, companyID, platform.String())
	rec, err := scanIntegration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("integration %s/%s: %w", companyID, platform, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *IntegrationRepository) ListByCompany(ctx context.Context, companyID string) ([]*model.IntegrationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+integrationColumns+` FROM integrations WHERE company_id=$1 ORDER BY platform`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIntegrations(rows)
}

func collectIntegrations(rows *sql.Rows) ([]*model.IntegrationRecord, error) {
	var out []*model.IntegrationRecord
	for rows.Next() {
		rec, err := scanIntegration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ repository.IIntegration = (*IntegrationRepository)(nil)

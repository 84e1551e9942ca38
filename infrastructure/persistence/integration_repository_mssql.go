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

type IntegrationRepositoryMSSQL struct{ db *sql.DB }

func NewIntegrationRepositoryMSSQL(db *sql.DB) *IntegrationRepositoryMSSQL {
	return &IntegrationRepositoryMSSQL{db: db}
}

// EnsureIntegrationSchemaMSSQL creates the integrations table for SQL Server if it does not exist.
func EnsureIntegrationSchemaMSSQL(ctx context.Context, db *sql.DB) error {
	ddl := `IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.integrations') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[integrations] (
        id BIGINT IDENTITY(1,1) PRIMARY KEY,
        company_id NVARCHAR(128) NOT NULL,
        platform NVARCHAR(32) NOT NULL,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NULL,
        user_access_token NVARCHAR(MAX) NULL,
        page_id NVARCHAR(128) NULL,
        page_name NVARCHAR(255) NULL,
        ad_account_id NVARCHAR(128) NULL,
        shop_url NVARCHAR(255) NULL,
        webhook_secret NVARCHAR(255) NULL,
        scopes NVARCHAR(MAX) NOT NULL,
        expires_at DATETIME2 NULL,
        is_active BIT NOT NULL,
        auto_reply BIT NOT NULL,
        sync_products BIT NOT NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
    CREATE UNIQUE INDEX UX_integrations_company_platform ON dbo.[integrations](company_id, platform);
END`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create integrations (mssql): %w", err)
	}
	return nil
}

// Upsert uses MERGE under HOLDLOCK so two concurrent first links cannot both insert.
func (r *IntegrationRepositoryMSSQL) Upsert(ctx context.Context, rec *model.IntegrationRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	q := `MERGE dbo.[integrations] WITH (HOLDLOCK) AS target
USING (VALUES (@p1, @p2)) AS src(company_id, platform)
ON target.company_id = src.company_id AND target.platform = src.platform
WHEN MATCHED THEN UPDATE SET
    access_token=@p3,
    refresh_token=@p4,
    user_access_token=@p5,
    page_id=@p6,
    page_name=@p7,
    ad_account_id=@p8,
    shop_url=@p9,
    webhook_secret=@p10,
    scopes=@p11,
    expires_at=@p12,
    is_active=@p13,
    updated_at=@p16
WHEN NOT MATCHED THEN
    INSERT (company_id, platform, access_token, refresh_token, user_access_token, page_id, page_name, ad_account_id, shop_url, webhook_secret, scopes, expires_at, is_active, auto_reply, sync_products, created_at, updated_at)
    VALUES (@p1,@p2,@p3,@p4,@p5,@p6,@p7,@p8,@p9,@p10,@p11,@p12,@p13,@p14,@p15,@p16,@p16)
OUTPUT inserted.id, inserted.auto_reply, inserted.sync_products, inserted.created_at;`
	var id int64
	err := r.db.QueryRowContext(ctx, q, upsertArgs(rec)...).
		Scan(&id, &rec.Settings.AutoReply, &rec.Settings.SyncProducts, &rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("merge integration %s/%s: %w", rec.CompanyID, rec.Platform, err)
	}
	rec.ID = fmt.Sprint(id)
	rec.IsActive = true
	return nil
}

func (r *IntegrationRepositoryMSSQL) Get(ctx context.Context, companyID string, platform model.Platform) (*model.IntegrationRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+integrationColumns+` FROM dbo.[integrations] WHERE company_id=@p1 AND platform=@p2`, companyID, platform.String())
	rec, err := scanIntegration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("integration %s/%s: %w", companyID, platform, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *IntegrationRepositoryMSSQL) ListByCompany(ctx context.Context, companyID string) ([]*model.IntegrationRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+integrationColumns+` FROM dbo.[integrations] WHERE company_id=@p1 ORDER BY platform`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectIntegrations(rows)
}

var _ repository.IIntegration = (*IntegrationRepositoryMSSQL)(nil)

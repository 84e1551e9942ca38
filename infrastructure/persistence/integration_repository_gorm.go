package persistence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// integrationRow is the gorm mapping of the integrations table.
type integrationRow struct {
	ID              uint64  `gorm:"primaryKey;autoIncrement"`
	CompanyID       string  `gorm:"size:128;not null;uniqueIndex:ux_integrations_company_platform"`
	Platform        string  `gorm:"size:32;not null;uniqueIndex:ux_integrations_company_platform"`
	AccessToken     string  `gorm:"type:text;not null"`
	RefreshToken    *string `gorm:"type:text"`
	UserAccessToken *string `gorm:"type:text"`
	PageID          *string `gorm:"size:128"`
	PageName        *string `gorm:"size:255"`
	AdAccountID     *string `gorm:"size:128"`
	ShopURL         *string `gorm:"size:255"`
	WebhookSecret   *string `gorm:"size:255"`
	Scopes          string  `gorm:"type:text;not null"`
	ExpiresAt       *time.Time
	IsActive        bool `gorm:"not null"`
	AutoReply       bool `gorm:"not null"`
	SyncProducts    bool `gorm:"not null"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (integrationRow) TableName() string { return "integrations" }

func newIntegrationRow(rec *model.IntegrationRecord) *integrationRow {
	c := rec.Credentials
	return &integrationRow{
		CompanyID:       rec.CompanyID,
		Platform:        rec.Platform.String(),
		AccessToken:     c.AccessToken,
		RefreshToken:    c.RefreshToken,
		UserAccessToken: c.UserAccessToken,
		PageID:          c.PageID,
		PageName:        c.PageName,
		AdAccountID:     c.AdAccountID,
		ShopURL:         c.ShopURL,
		WebhookSecret:   c.WebhookSecret,
		Scopes:          c.Scopes,
		ExpiresAt:       c.ExpiresAt,
		IsActive:        true,
		AutoReply:       rec.Settings.AutoReply,
		SyncProducts:    rec.Settings.SyncProducts,
		CreatedAt:       rec.UpdatedAt,
		UpdatedAt:       rec.UpdatedAt,
	}
}

func (r *integrationRow) record() *model.IntegrationRecord {
	return &model.IntegrationRecord{
		ID:        strconv.FormatUint(r.ID, 10),
		CompanyID: r.CompanyID,
		Platform:  model.Platform(r.Platform),
		Credentials: model.Credentials{
			AccessToken:     r.AccessToken,
			RefreshToken:    r.RefreshToken,
			UserAccessToken: r.UserAccessToken,
			PageID:          r.PageID,
			PageName:        r.PageName,
			AdAccountID:     r.AdAccountID,
			ShopURL:         r.ShopURL,
			WebhookSecret:   r.WebhookSecret,
			Scopes:          r.Scopes,
			ExpiresAt:       r.ExpiresAt,
		},
		IsActive:  r.IsActive,
		Settings:  model.Settings{AutoReply: r.AutoReply, SyncProducts: r.SyncProducts},
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// credentialColumns are overwritten on conflict; settings and created_at are not.
var credentialColumns = []string{
	"access_token", "refresh_token", "user_access_token", "page_id", "page_name",
	"ad_account_id", "shop_url", "webhook_secret", "scopes", "expires_at",
	"is_active", "updated_at",
}

// IntegrationRepositoryGorm is the MySQL credential store.
type IntegrationRepositoryGorm struct{ db *gorm.DB }

func NewIntegrationRepositoryGorm(db *gorm.DB) *IntegrationRepositoryGorm {
	return &IntegrationRepositoryGorm{db: db}
}

func EnsureIntegrationSchemaGorm(db *gorm.DB) error {
	if err := db.AutoMigrate(&integrationRow{}); err != nil {
		return fmt.Errorf("migrate integrations: %w", err)
	}
	return nil
}

func (r *IntegrationRepositoryGorm) Upsert(ctx context.Context, rec *model.IntegrationRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	row := newIntegrationRow(rec)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "company_id"}, {Name: "platform"}},
		DoUpdates: clause.AssignmentColumns(credentialColumns),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("upsert integration %s/%s: %w", rec.CompanyID, rec.Platform, err)
	}
	// MySQL reports no usable id on the update path, so read the row back.
	stored, err := r.Get(ctx, rec.CompanyID, rec.Platform)
	if err != nil {
		return err
	}
	rec.ID = stored.ID
	rec.IsActive = stored.IsActive
	rec.Settings = stored.Settings
	rec.CreatedAt = stored.CreatedAt
	return nil
}

func (r *IntegrationRepositoryGorm) Get(ctx context.Context, companyID string, platform model.Platform) (*model.IntegrationRecord, error) {
	var row integrationRow
	err := r.db.WithContext(ctx).Where("company_id = ? AND platform = ?", companyID, platform.String()).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("integration %s/%s: %w", companyID, platform, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return row.record(), nil
}

func (r *IntegrationRepositoryGorm) ListByCompany(ctx context.Context, companyID string) ([]*model.IntegrationRecord, error) {
	var rows []integrationRow
	if err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("platform").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*model.IntegrationRecord, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].record())
	}
	return out, nil
}

var _ repository.IIntegration = (*IntegrationRepositoryGorm)(nil)

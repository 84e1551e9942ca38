package persistence

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
)

const integrationColumns = `id, company_id, platform, access_token, refresh_token, user_access_token, page_id, page_name, ad_account_id, shop_url, webhook_secret, scopes, expires_at, is_active, auto_reply, sync_products, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntegration(row rowScanner) (*model.IntegrationRecord, error) {
	var (
		id        int64
		platform  string
		expiresAt sql.NullTime
	)
	var refresh, userToken, pageID, pageName, adAccount, shopURL, webhookSecret sql.NullString
	rec := &model.IntegrationRecord{}
	err := row.Scan(&id, &rec.CompanyID, &platform, &rec.Credentials.AccessToken,
		&refresh, &userToken, &pageID, &pageName, &adAccount, &shopURL, &webhookSecret,
		&rec.Credentials.Scopes, &expiresAt, &rec.IsActive,
		&rec.Settings.AutoReply, &rec.Settings.SyncProducts, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.ID = strconv.FormatInt(id, 10)
	rec.Platform = model.Platform(platform)
	rec.Credentials.RefreshToken = fromNullString(refresh)
	rec.Credentials.UserAccessToken = fromNullString(userToken)
	rec.Credentials.PageID = fromNullString(pageID)
	rec.Credentials.PageName = fromNullString(pageName)
	rec.Credentials.AdAccountID = fromNullString(adAccount)
	rec.Credentials.ShopURL = fromNullString(shopURL)
	rec.Credentials.WebhookSecret = fromNullString(webhookSecret)
	if expiresAt.Valid {
		t := expiresAt.Time
		rec.Credentials.ExpiresAt = &t
	}
	return rec, nil
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// upsertArgs are the 16 positional values shared by the SQL upserts, in
// integrationColumns order without id.
func upsertArgs(rec *model.IntegrationRecord) []any {
	c := rec.Credentials
	return []any{
		rec.CompanyID, rec.Platform.String(), c.AccessToken,
		toNullString(c.RefreshToken), toNullString(c.UserAccessToken),
		toNullString(c.PageID), toNullString(c.PageName), toNullString(c.AdAccountID),
		toNullString(c.ShopURL), toNullString(c.WebhookSecret),
		c.Scopes, toNullTime(c.ExpiresAt), true,
		rec.Settings.AutoReply, rec.Settings.SyncProducts, rec.UpdatedAt,
	}
}

package repository

import (
	"context"
	"net/url"

	"github.com/mido200912/Ai-Thor/domain/model"
)

// IMetaProvider talks to the Meta Graph API (Facebook, Instagram, WhatsApp).
type IMetaProvider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*model.MetaGrant, error)
	VerifyWebhook(body []byte, signatureHeader string) error
}

// IShopifyProvider talks to a single shop's Admin OAuth endpoints.
type IShopifyProvider interface {
	NormalizeShop(shop string) (string, error)
	AuthCodeURL(shop, state string) string
	ExchangeCode(ctx context.Context, shop, code string) (*model.ShopifyGrant, error)
	VerifyCallback(query url.Values) error
	VerifyWebhook(body []byte, hmacHeader string) error
}

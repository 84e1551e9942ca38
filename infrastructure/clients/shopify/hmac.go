package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/mido200912/Ai-Thor/domain/model"
)

const (
	HmacHeader      = "X-Shopify-Hmac-Sha256"
	TopicHeader     = "X-Shopify-Topic"
	ShopHeader      = "X-Shopify-Shop-Domain"
	WebhookIDHeader = "X-Shopify-Webhook-Id"
)

// VerifyCallback checks the hmac query parameter Shopify adds to the OAuth
// redirect. A missing or wrong hmac is a validation failure.
func (c *Client) VerifyCallback(query url.Values) error {
	given := query.Get("hmac")
	if given == "" {
		return model.NewValidationError("hmac", "missing callback signature")
	}
	want := hex.EncodeToString(sign(c.cfg.APISecret, []byte(CallbackMessage(query))))
	if !hmac.Equal([]byte(strings.ToLower(given)), []byte(want)) {
		return model.NewValidationError("hmac", "callback signature mismatch")
	}
	return nil
}

// CallbackMessage is the sorted "k=v&k=v" string Shopify signs, without the
// hmac and signature parameters.
func CallbackMessage(query url.Values) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "hmac" || k == "signature" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+strings.Join(query[k], ","))
	}
	return strings.Join(parts, "&")
}

// SignCallback returns the hex hmac for a callback query, as Shopify computes it.
func SignCallback(secret string, query url.Values) string {
	return hex.EncodeToString(sign(secret, []byte(CallbackMessage(query))))
}

// VerifyWebhook checks the base64 X-Shopify-Hmac-Sha256 header against the body.
func (c *Client) VerifyWebhook(body []byte, hmacHeader string) error {
	return VerifyWebhookSignature(c.cfg.APISecret, body, hmacHeader)
}

func VerifyWebhookSignature(secret string, body []byte, hmacHeader string) error {
	if secret == "" {
		return fmt.Errorf("shopify: no api secret configured: %w", model.ErrInvalidSignature)
	}
	got, err := base64.StdEncoding.DecodeString(strings.TrimSpace(hmacHeader))
	if err != nil || len(got) == 0 {
		return fmt.Errorf("shopify: malformed hmac header: %w", model.ErrInvalidSignature)
	}
	if !hmac.Equal(got, sign(secret, body)) {
		return fmt.Errorf("shopify: hmac mismatch: %w", model.ErrInvalidSignature)
	}
	return nil
}

// SignWebhook returns the base64 header value for body.
func SignWebhook(secret string, body []byte) string {
	return base64.StdEncoding.EncodeToString(sign(secret, body))
}

func sign(secret string, msg []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(msg)
	return mac.Sum(nil)
}

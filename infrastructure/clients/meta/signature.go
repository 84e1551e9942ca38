package meta

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mido200912/Ai-Thor/domain/model"
)

// SignatureHeader carries the app-secret HMAC of a webhook body.
const SignatureHeader = "X-Hub-Signature-256"

// VerifyWebhook checks a "sha256=<hex>" X-Hub-Signature-256 value against the body.
func (c *Client) VerifyWebhook(body []byte, signatureHeader string) error {
	return VerifySignature(c.cfg.AppSecret, body, signatureHeader)
}

func VerifySignature(secret string, body []byte, signatureHeader string) error {
	if secret == "" {
		return fmt.Errorf("meta: no app secret configured: %w", model.ErrInvalidSignature)
	}
	sig, ok := strings.CutPrefix(strings.TrimSpace(signatureHeader), "sha256=")
	if !ok || sig == "" {
		return fmt.Errorf("meta: malformed signature header: %w", model.ErrInvalidSignature)
	}
	got, err := hex.DecodeString(sig)
	if err != nil {
		return fmt.Errorf("meta: signature is not hex: %w", model.ErrInvalidSignature)
	}
	if !hmac.Equal(got, Sign(secret, body)) {
		return fmt.Errorf("meta: signature mismatch: %w", model.ErrInvalidSignature)
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 of body.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

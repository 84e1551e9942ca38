package repository

import (
	"context"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
)

// INonceStore remembers issued state nonces until they are consumed once.
type INonceStore interface {
	Remember(ctx context.Context, nonce string, ttl time.Duration) error
	// Consume reports whether the nonce was outstanding and removes it.
	Consume(ctx context.Context, nonce string) (bool, error)
}

// IStateIssuer issues and verifies signed single-use OAuth state tokens.
type IStateIssuer interface {
	Issue(ctx context.Context, companyID string, platform model.Platform, shop string) (string, error)
	// Verify rejects a state issued for another platform or shop without
	// consuming it. Meta states carry an empty shop.
	Verify(ctx context.Context, token string, platform model.Platform, shop string) (*model.StateClaims, error)
}

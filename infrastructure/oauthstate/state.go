package oauthstate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mido200912/Ai-Thor/domain/model"
	"github.com/mido200912/Ai-Thor/domain/repository"
	"github.com/mido200912/Ai-Thor/infrastructure/logger"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrMissingSecret = errors.New("oauthstate: signing secret is required")

type stateClaims struct {
	CompanyID string `json:"cid"`
	Platform  string `json:"plt"`
	Shop      string `json:"shop,omitempty"`
	jwt.StandardClaims
}

// Issuer signs OAuth state tokens bound to a company and platform and makes
// each one usable exactly once through the nonce store.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	nonces repository.INonceStore
	now    func() time.Time
}

func NewIssuer(secret string, ttl time.Duration, nonces repository.INonceStore) (*Issuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if nonces == nil {
		return nil, errors.New("oauthstate: nonce store is required")
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Issuer{secret: []byte(secret), ttl: ttl, nonces: nonces, now: time.Now}, nil
}

func (i *Issuer) Issue(ctx context.Context, companyID string, platform model.Platform, shop string) (string, error) {
	nonce := uuid.NewString()
	now := i.now()
	claims := stateClaims{
		CompanyID: companyID,
		Platform:  platform.String(),
		Shop:      shop,
		StandardClaims: jwt.StandardClaims{
			Id:        nonce,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(i.ttl).Unix(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	if err := i.nonces.Remember(ctx, nonce, i.ttl); err != nil {
		return "", fmt.Errorf("remember state nonce: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry, then that the state was issued for the
// given platform and shop, and only then consumes the nonce. A state shown to
// the wrong callback stays usable for the right one. Every failure except a
// nonce store fault is a validation error; the cause is only logged.
func (i *Issuer) Verify(ctx context.Context, token string, platform model.Platform, shop string) (*model.StateClaims, error) {
	var claims stateClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		logger.GetLogger().WithField("error", err).Warn("rejected oauth state token")
		return nil, model.NewValidationError("state", "invalid or expired state")
	}
	if claims.Id == "" || claims.CompanyID == "" {
		return nil, model.NewValidationError("state", "state is missing required claims")
	}
	issuedFor, err := model.ParsePlatform(claims.Platform)
	if err != nil {
		return nil, model.NewValidationError("state", "state names an unknown platform")
	}
	if issuedFor != platform {
		logger.GetLogger().WithFields(logrus.Fields{"company_id": claims.CompanyID, "platform": platform}).Warn("oauth state presented to the wrong callback")
		return nil, model.NewValidationError("state", "state was issued for another platform")
	}
	if claims.Shop != shop {
		logger.GetLogger().WithFields(logrus.Fields{"company_id": claims.CompanyID, "shop": shop}).Warn("oauth state presented for another shop")
		return nil, model.NewValidationError("state", "state was issued for another shop")
	}

	fresh, err := i.nonces.Consume(ctx, claims.Id)
	if err != nil {
		return nil, fmt.Errorf("consume state nonce: %w", err)
	}
	if !fresh {
		logger.GetLogger().WithField("company_id", claims.CompanyID).Warn("oauth state replayed")
		return nil, model.NewValidationError("state", "state already used")
	}

	return &model.StateClaims{
		Nonce:     claims.Id,
		CompanyID: claims.CompanyID,
		Platform:  issuedFor,
		Shop:      claims.Shop,
		ExpiresAt: time.Unix(claims.ExpiresAt, 0).UTC(),
	}, nil
}

var _ repository.IStateIssuer = (*Issuer)(nil)

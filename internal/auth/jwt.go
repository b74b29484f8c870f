package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingTenant = errors.New("token carries no tenant")
	ErrNoSigningKey  = errors.New("signing key is empty")
)

// Claims is the bearer token payload. The tenant id is the only thing the
// sync core needs from the caller.
type Claims struct {
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 bearer tokens.
type Tokens struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

func NewTokens(signingKey string, ttl time.Duration) (*Tokens, error) {
	if signingKey == "" {
		return nil, ErrNoSigningKey
	}
	return &Tokens{key: []byte(signingKey), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for tenant. subject identifies the device or user and
// may be empty.
func (t *Tokens) Issue(tenant, subject string) (string, error) {
	if tenant == "" {
		return "", ErrMissingTenant
	}

	now := t.now()
	claims := Claims{
		TenantID: tenant,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.key)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return t.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.TenantID == "" {
		return nil, ErrMissingTenant
	}

	return claims, nil
}

package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/studymate/studymate/pkg/cryptox"
)

// Default token TTLs. Short access tokens bound the window a stolen token is
// useful for; the refresh TTL bounds how long a session can stay idle.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Token use markers. A refresh token must never pass an access-token check,
// even though both are signed with the same key.
const (
	UseAccess  = "access"
	UseRefresh = "refresh"
)

// Claims is the signed payload carried by both token classes. The subject is
// the principal id; email rides along so a verified token is enough to build
// the credential payload without a store read.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the principal the token was minted for.
	Email string `json:"email,omitempty"`

	// TokenUse distinguishes access from refresh tokens (see UseAccess/UseRefresh).
	TokenUse string `json:"token_use,omitempty"`
}

// NewClaims builds minimally-correct claims for a token of the given use.
func NewClaims(subject, email, use string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:    email,
		TokenUse: use,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	jti, _ := cryptox.GenerateToken(cryptox.TokenSize128)
	return jti
}

// ValidateIssuer checks if the issuer matches the expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil // nothing to enforce
	}

	if c.Issuer != expected {
		return ErrIssuer
	}

	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
// Verify deliberately does not call this: cryptographic validity and liveness
// are separate questions, and the caller owns the second one.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryAt(time.Now().UTC())
}

// ValidateExpiryAt is ValidateExpiry against an explicit clock, for tests.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}

	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}

	return nil
}

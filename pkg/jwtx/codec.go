package jwtx

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Codec mints and verifies Ed25519-signed tokens with a single process-wide
// key. The key is immutable after construction, so a Codec is safe for
// concurrent use without locking.
type Codec struct {
	kid    string
	key    ed25519.PrivateKey
	pub    ed25519.PublicKey
	issuer string
}

// NewCodec loads an Ed25519 private key from PKCS8 PEM bytes. A bad key is a
// configuration error the caller should treat as fatal at startup.
func NewCodec(kid string, pemKey []byte, issuer string) (*Codec, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}

	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not Ed25519 private key")
	}

	return &Codec{
		kid:    kid,
		key:    key,
		pub:    key.Public().(ed25519.PublicKey),
		issuer: issuer,
	}, nil
}

func (c *Codec) KID() string    { return c.kid }
func (c *Codec) Alg() string    { return jwt.SigningMethodEdDSA.Alg() }
func (c *Codec) Issuer() string { return c.issuer }

// Mint signs the claims and returns the compact token string.
func (c *Codec) Mint(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	t.Header["kid"] = c.kid
	return t.SignedString(c.key)
}

// Verify checks the signature and decodes the claims. It does NOT judge
// liveness: expired tokens verify fine here and the caller decides what an
// expired-but-genuine token means (see Claims.ValidateExpiry).
func (c *Codec) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	token, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		if kid, _ := t.Header["kid"].(string); kid != c.kid {
			return nil, fmt.Errorf("jwtx: unknown kid %q", kid)
		}
		return c.pub, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, fmt.Errorf("%w: %s", ErrMalformed, err)
		}
		return Claims{}, fmt.Errorf("%w: %s", ErrInvalidSig, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrMalformed
	}

	if err := claims.ValidateIssuer(c.issuer); err != nil {
		return Claims{}, err
	}

	return *claims, nil
}

// Validate does a quick sanity check that the codec actually holds a keypair.
func (c *Codec) Validate() error {
	if c.key == nil || c.pub == nil {
		return errors.New("jwtx: nil Ed25519 key")
	}
	if len(c.key) != ed25519.PrivateKeySize {
		return errors.New("jwtx: invalid Ed25519 private key size")
	}
	if len(c.pub) != ed25519.PublicKeySize {
		return errors.New("jwtx: invalid Ed25519 public key size")
	}
	return nil
}

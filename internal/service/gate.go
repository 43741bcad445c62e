package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/store"
	"github.com/studymate/studymate/pkg/cryptox"
	"github.com/studymate/studymate/pkg/jwtx"
)

// AccessGate answers one question: does this bearer token identify a live
// principal right now? The same gate backs the HTTP middleware and the
// websocket handshake, so a credential is either good everywhere or good
// nowhere.
type AccessGate struct {
	Codec *jwtx.Codec
	Store store.Store
}

// Authenticate verifies the token cryptographically, checks it is an access
// token that has not expired, confirms the ledger still considers it live,
// and resolves the principal.
//
// Rejections (bad signature, wrong use, expired, revoked, unknown subject)
// come back as ErrTokenRevoked so callers can't tell which check failed.
// A ledger or directory fault is a distinct wrapped error: the caller must
// treat it as an outage, never as anonymous.
func (g *AccessGate) Authenticate(ctx context.Context, rawToken string) (domain.User, error) {
	claims, err := g.Codec.Verify(rawToken)
	if err != nil {
		return domain.User{}, ErrTokenRevoked
	}
	if claims.TokenUse != jwtx.UseAccess {
		return domain.User{}, ErrTokenRevoked
	}
	if err := claims.ValidateExpiry(); err != nil {
		return domain.User{}, ErrTokenRevoked
	}

	fp := cryptox.FingerprintToken(rawToken)
	live, err := g.Store.Tokens().IsLive(ctx, fp, store.ByAccessToken)
	if err != nil {
		return domain.User{}, fmt.Errorf("access gate: ledger lookup: %w", err)
	}
	if !live {
		return domain.User{}, ErrTokenRevoked
	}

	u, err := g.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrTokenRevoked
		}
		return domain.User{}, fmt.Errorf("access gate: user lookup: %w", err)
	}

	return u, nil
}

package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/store"
	"github.com/studymate/studymate/pkg/cryptox"
	"github.com/studymate/studymate/pkg/idx"
	"github.com/studymate/studymate/pkg/jwtx"
	"github.com/studymate/studymate/pkg/slogx"
)

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUserNotFound       = errors.New("user_not_found")
	ErrDuplicateEmail     = errors.New("duplicate_email")
	ErrDuplicateUsername  = errors.New("duplicate_username")
	ErrTokenRevoked       = errors.New("token_revoked")
	ErrNotChatMember      = errors.New("not_chat_member")
	ErrNotOwner           = errors.New("not_owner")
)

// AuthService owns the credential lifecycle: registration, login, refresh
// rotation, and logout. Both halves of every issued pair are signed tokens;
// the ledger tracks them by fingerprint so possession of the database never
// yields a usable credential.
type AuthService struct {
	Codec      *jwtx.Codec
	Store      store.Store
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RegisterParams struct {
	Email    string
	Password string
	Name     string
	Username string
}

// Register creates a new account. It does not issue credentials; callers that
// want a logged-in flow follow up with Login.
func (s *AuthService) Register(ctx context.Context, p RegisterParams) (domain.User, error) {
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Username = strings.TrimSpace(p.Username)

	if exists, err := s.Store.Users().ExistsByEmail(ctx, p.Email); err != nil {
		return domain.User{}, err
	} else if exists {
		return domain.User{}, ErrDuplicateEmail
	}

	if exists, err := s.Store.Users().ExistsByUsername(ctx, p.Username); err != nil {
		return domain.User{}, err
	} else if exists {
		return domain.User{}, ErrDuplicateUsername
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := time.Now()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     p.Username,
		Email:        p.Email,
		Name:         strings.TrimSpace(p.Name),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		// The existence checks above race with concurrent registrations;
		// the unique indexes are the authority. Re-check to name the field
		// that actually collided.
		if errors.Is(err, store.ErrAlreadyExists) {
			if exists, checkErr := s.Store.Users().ExistsByEmail(ctx, p.Email); checkErr == nil && exists {
				return domain.User{}, ErrDuplicateEmail
			}
			return domain.User{}, ErrDuplicateUsername
		}
		return domain.User{}, err
	}

	return u, nil
}

// Login verifies the password and issues a fresh pair. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.TokenPair, domain.User, error) {
	l := slogx.FromContext(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.User{}, ErrInvalidCredentials
		}
		return nil, domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		l.Info("login password verification failed", slog.String("user_id", u.ID))
		return nil, domain.User{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return nil, domain.User{}, err
	}
	return pair, u, nil
}

// Refresh rotates the pair: the presented refresh token must be a live,
// unexpired refresh credential, and every prior live pair for the user is
// revoked when the new one is written.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, domain.User, error) {
	claims, err := s.Codec.Verify(refreshToken)
	if err != nil {
		return nil, domain.User{}, ErrTokenRevoked
	}
	if claims.TokenUse != jwtx.UseRefresh {
		return nil, domain.User{}, ErrTokenRevoked
	}
	if err := claims.ValidateExpiry(); err != nil {
		return nil, domain.User{}, ErrTokenRevoked
	}

	fp := cryptox.FingerprintToken(refreshToken)
	live, err := s.Store.Tokens().IsLive(ctx, fp, store.ByRefreshToken)
	if err != nil {
		return nil, domain.User{}, err
	}
	if !live {
		return nil, domain.User{}, ErrTokenRevoked
	}

	u, err := s.Store.Users().GetUserByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domain.User{}, ErrTokenRevoked
		}
		return nil, domain.User{}, err
	}

	pair, err := s.issuePair(ctx, u)
	if err != nil {
		return nil, domain.User{}, err
	}
	return pair, u, nil
}

// Logout revokes the record matching the presented access token. Unknown and
// already-revoked tokens are a no-op, so logout is always idempotent.
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	fp := cryptox.FingerprintToken(accessToken)
	return s.Store.Tokens().RevokeByAccessHash(ctx, fp)
}

// issuePair mints a new access+refresh pair and writes it to the ledger,
// revoking every prior live pair for the user in the same transaction so
// exactly one pair is live per user at any moment.
func (s *AuthService) issuePair(ctx context.Context, u domain.User) (*domain.TokenPair, error) {
	now := time.Now()

	accessToken, err := s.Codec.Mint(jwtx.NewClaims(u.ID, u.Email, jwtx.UseAccess, s.AccessTTL, s.Codec.Issuer(), now))
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.Codec.Mint(jwtx.NewClaims(u.ID, u.Email, jwtx.UseRefresh, s.RefreshTTL, s.Codec.Issuer(), now))
	if err != nil {
		return nil, err
	}

	rec := domain.TokenRecord{
		ID:          idx.New().String(),
		UserID:      u.ID,
		AccessHash:  cryptox.FingerprintToken(accessToken),
		RefreshHash: cryptox.FingerprintToken(refreshToken),
	}

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Tokens().RevokeAllUserTokens(ctx, u.ID); err != nil {
			return err
		}
		return tx.Tokens().CreateTokenRecord(ctx, rec)
	})
	if err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.AccessTTL,
	}, nil
}

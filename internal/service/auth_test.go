package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/store"
	"github.com/studymate/studymate/internal/store/drivers/sqlite"
	"github.com/studymate/studymate/pkg/cryptox"
	"github.com/studymate/studymate/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "service-test-*")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func newTestAuthService(t *testing.T) *AuthService {
	t.Helper()

	// A file-backed database, like production: every pool connection must see
	// the same schema, or concurrent requests would each get their own empty
	// in-memory database.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)",
		filepath.Join(t.TempDir(), "service-test.db"))
	s, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	pemKey, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	codec, err := jwtx.NewCodec("test-key", pemKey, "studymate-test")
	require.NoError(t, err)

	return &AuthService{
		Codec:      codec,
		Store:      s,
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
}

func registerAndLogin(t *testing.T, svc *AuthService) (*domain.TokenPair, string) {
	t.Helper()
	ctx := context.Background()

	u, err := svc.Register(ctx, RegisterParams{
		Email:    "alice@example.com",
		Password: "correct horse battery staple",
		Name:     "Alice",
		Username: "alice",
	})
	require.NoError(t, err)

	pair, _, err := svc.Login(ctx, "alice@example.com", "correct horse battery staple")
	require.NoError(t, err)
	return pair, u.ID
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)

	_, err := svc.Register(ctx, RegisterParams{
		Email: "alice@example.com", Password: "pw", Name: "Alice", Username: "alice",
	})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterParams{
		Email: "alice@example.com", Password: "pw", Name: "Other", Username: "other",
	})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = svc.Register(ctx, RegisterParams{
		Email: "other@example.com", Password: "pw", Name: "Other", Username: "alice",
	})
	require.ErrorIs(t, err, ErrDuplicateUsername)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)
	registerAndLogin(t, svc)

	_, _, err := svc.Login(ctx, "alice@example.com", "wrong password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	// Unknown email is indistinguishable from a wrong password.
	_, _, err = svc.Login(ctx, "nobody@example.com", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesAndInvalidatesOldPair(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)
	pair, _ := registerAndLogin(t, svc)

	rotated, _, err := svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.AccessToken, rotated.AccessToken)
	require.NotEqual(t, pair.RefreshToken, rotated.RefreshToken)

	// The consumed refresh token is dead.
	_, _, err = svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenRevoked)

	// So is the access token it was issued alongside.
	live, err := svc.Store.Tokens().IsLive(ctx, cryptox.FingerprintToken(pair.AccessToken), store.ByAccessToken)
	require.NoError(t, err)
	require.False(t, live)

	// The rotated pair works.
	_, _, err = svc.Refresh(ctx, rotated.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)
	pair, _ := registerAndLogin(t, svc)

	// An access token is signed by the same key but carries the wrong use.
	_, _, err := svc.Refresh(ctx, pair.AccessToken)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestLoginKeepsSingleLiveSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)
	first, userID := registerAndLogin(t, svc)

	second, _, err := svc.Login(ctx, "alice@example.com", "correct horse battery staple")
	require.NoError(t, err)

	n, err := svc.Store.Tokens().CountLiveUserTokens(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	live, err := svc.Store.Tokens().IsLive(ctx, cryptox.FingerprintToken(first.AccessToken), store.ByAccessToken)
	require.NoError(t, err)
	require.False(t, live, "first session should be revoked by the second login")

	live, err = svc.Store.Tokens().IsLive(ctx, cryptox.FingerprintToken(second.AccessToken), store.ByAccessToken)
	require.NoError(t, err)
	require.True(t, live)
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)
	pair, userID := registerAndLogin(t, svc)

	require.NoError(t, svc.Logout(ctx, pair.AccessToken))

	n, err := svc.Store.Tokens().CountLiveUserTokens(ctx, userID)
	require.NoError(t, err)
	require.Zero(t, n)

	// Second logout with the same token, and one with garbage: both no-ops.
	require.NoError(t, svc.Logout(ctx, pair.AccessToken))
	require.NoError(t, svc.Logout(ctx, "not-a-token"))
}

func TestExpiredRefreshTokenRejected(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)
	svc.RefreshTTL = -time.Minute // already expired when minted

	pair, _ := registerAndLogin(t, svc)

	_, _, err := svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenRevoked)
}

func TestConcurrentLoginsKeepSingleLiveSession(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)
	_, userID := registerAndLogin(t, svc)

	// Racing logins each revoke-all-then-insert inside one transaction, and
	// sqlite has a single writer, so whichever commits last owns the only
	// live pair.
	const logins = 8
	var wg sync.WaitGroup
	errs := make([]error, logins)
	for i := 0; i < logins; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = svc.Login(ctx, "alice@example.com", "correct horse battery staple")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "login %d", i)
	}

	n, err := svc.Store.Tokens().CountLiveUserTokens(ctx, userID)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestConcurrentRegistrationsNameTheCollidingField(t *testing.T) {
	ctx := context.Background()
	svc := newTestAuthService(t)

	// All racers want the same username with distinct emails. Exactly one
	// wins; every loser must be told the username collided, whether the
	// pre-check or the unique index caught it.
	const racers = 6
	var wg sync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, RegisterParams{
				Email:    fmt.Sprintf("sam%d@example.com", i),
				Password: "pw",
				Name:     "Sam",
				Username: "sam",
			})
		}(i)
	}
	wg.Wait()

	var won int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		require.ErrorIs(t, err, ErrDuplicateUsername)
	}
	require.Equal(t, 1, won)
}

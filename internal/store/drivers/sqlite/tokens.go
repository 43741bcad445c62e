package sqlite

import (
	"context"
	"time"

	"github.com/studymate/studymate/internal/domain"
	"github.com/studymate/studymate/internal/store"
)

type tokensRepo struct {
	db dbtx
}

func (r *tokensRepo) CreateTokenRecord(ctx context.Context, t domain.TokenRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tokens (id, user_id, access_hash, refresh_hash)
		VALUES (?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccessHash, t.RefreshHash)
	return mapConstraint(err)
}

func (r *tokensRepo) IsLive(ctx context.Context, fingerprint string, by store.TokenField) (bool, error) {
	col := "access_hash"
	if by == store.ByRefreshToken {
		col = "refresh_hash"
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM tokens
		WHERE `+col+` = ? AND revoked = FALSE`, fingerprint)

	var n int
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *tokensRepo) RevokeAllUserTokens(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tokens SET revoked = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE user_id = ? AND revoked = FALSE`, userID)
	return err
}

func (r *tokensRepo) RevokeByAccessHash(ctx context.Context, accessHash string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tokens SET revoked = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE access_hash = ? AND revoked = FALSE`, accessHash)
	return err
}

func (r *tokensRepo) RevokeStaleTokens(ctx context.Context, before time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tokens SET revoked = TRUE, updated_at = CURRENT_TIMESTAMP
		WHERE revoked = FALSE AND created_at < ?`, before.UTC())
	return err
}

func (r *tokensRepo) CountLiveUserTokens(ctx context.Context, userID string) (int, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM tokens
		WHERE user_id = ? AND revoked = FALSE`, userID)

	var n int
	if err := row.Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrInvalidRefresh is returned for unknown, revoked or expired refresh
// tokens.
var ErrInvalidRefresh = errors.New("invalid refresh token")

// TokenRepo stores SHA-256 digests of refresh tokens; raw values never
// reach the database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func (r *TokenRepo) Save(ctx context.Context, userID uint64, digest string, expires time.Time) error {
	const q = `INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?, ?, ?)`
	_, err := r.DB.ExecContext(ctx, q, userID, digest, expires.UTC())
	return err
}

// Owner returns the user a live token belongs to. Revocation and expiry
// are checked in the query itself.
func (r *TokenRepo) Owner(ctx context.Context, digest string) (uint64, error) {
	const q = `
SELECT user_id FROM refresh_tokens
WHERE token_hash = ? AND revoked_at IS NULL AND expires_at > ?`
	var userID uint64
	switch err := r.DB.QueryRowContext(ctx, q, digest, time.Now().UTC()).Scan(&userID); {
	case errors.Is(err, sql.ErrNoRows):
		return 0, ErrInvalidRefresh
	case err != nil:
		return 0, err
	}
	return userID, nil
}

func (r *TokenRepo) Revoke(ctx context.Context, digest string) error {
	return r.revokeWhere(ctx, "token_hash = ?", digest)
}

// RevokeUser ends every session of a user.
func (r *TokenRepo) RevokeUser(ctx context.Context, userID uint64) error {
	return r.revokeWhere(ctx, "user_id = ?", userID)
}

func (r *TokenRepo) revokeWhere(ctx context.Context, cond string, arg any) error {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = UTC_TIMESTAMP() WHERE revoked_at IS NULL AND `+cond, arg)
	return err
}

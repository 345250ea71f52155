package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/lmarchetti/sidechat/internal/apperr"
)

type CreateRefreshTokenParams struct {
	Token     string
	UserID    uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (q *Queries) CreateRefreshToken(ctx context.Context, p CreateRefreshTokenParams) (string, error) {
	var token string
	err := q.pool.QueryRow(ctx, `
		INSERT INTO refresh_tokens (token, user_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING token`,
		p.Token, pgUUID(p.UserID),
		pgtype.Timestamptz{Time: p.CreatedAt, Valid: true},
		pgtype.Timestamptz{Time: p.ExpiresAt, Valid: true}).Scan(&token)
	if err != nil {
		return "", fmt.Errorf("database: create refresh token: %w", err)
	}
	return token, nil
}

// GetUserFromRefreshToken resolves a live (unexpired, unrevoked) token
// to its user id.
func (q *Queries) GetUserFromRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	var id pgtype.UUID
	err := q.pool.QueryRow(ctx, `
		SELECT user_id FROM refresh_tokens
		WHERE token = $1
		  AND revoked_at IS NULL
		  AND expires_at > now()`, token).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.UUID{}, apperr.Unauthorized("invalid refresh token")
	}
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("database: get user from refresh token: %w", err)
	}
	return id.Bytes, nil
}

func (q *Queries) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := q.pool.Exec(ctx, `
		UPDATE refresh_tokens SET revoked_at = now()
		WHERE token = $1 AND revoked_at IS NULL`, token)
	if err != nil {
		return fmt.Errorf("database: revoke refresh token: %w", err)
	}
	return nil
}

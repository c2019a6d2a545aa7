package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smallbiznis/auth-service/internal/domain"
)

var _ RefreshTokenRepository = (*PostgresRefreshTokenRepo)(nil)

// PostgresRefreshTokenRepo implements RefreshTokenRepository over pgx.
type PostgresRefreshTokenRepo struct{}

func NewPostgresRefreshTokenRepo() *PostgresRefreshTokenRepo {
	return &PostgresRefreshTokenRepo{}
}

const selectRefreshTokenColumns = `id, user_id, app_id, token_hash, scopes, device_id, expires_at, revoked, created_at`

func scanRefreshToken(row Row) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	var scopes []byte
	if err := row.Scan(&t.ID, &t.UserID, &t.AppID, &t.TokenHash, &scopes, &t.DeviceID, &t.ExpiresAt, &t.Revoked, &t.CreatedAt); err != nil {
		return domain.RefreshToken{}, err
	}
	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &t.Scopes); err != nil {
			return domain.RefreshToken{}, fmt.Errorf("decode scopes: %w", err)
		}
	}
	return t, nil
}

const insertRefreshTokenSQL = `
INSERT INTO refresh_tokens (id, user_id, app_id, token_hash, scopes, device_id, expires_at, revoked)
VALUES ($1, $2, $3, $4, $5, $6, $7, false)
RETURNING ` + selectRefreshTokenColumns

func (r *PostgresRefreshTokenRepo) Create(ctx context.Context, q Querier, token domain.RefreshToken) (domain.RefreshToken, error) {
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	scopes, err := json.Marshal(token.Scopes)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("encode scopes: %w", err)
	}

	row := q.QueryRow(ctx, insertRefreshTokenSQL,
		token.ID, token.UserID, token.AppID, token.TokenHash, scopes, token.DeviceID, token.ExpiresAt,
	)
	created, err := scanRefreshToken(row)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("create refresh token: %w", err)
	}
	return created, nil
}

func (r *PostgresRefreshTokenRepo) GetByTokenHash(ctx context.Context, q Querier, hash string) (domain.RefreshToken, error) {
	row := q.QueryRow(ctx, `SELECT `+selectRefreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, hash)
	t, err := scanRefreshToken(row)
	if err != nil {
		return domain.RefreshToken{}, fmt.Errorf("get refresh token by hash: %w", err)
	}
	return t, nil
}

// Revoke is the first-committer-wins conditional update backing rotation
// (§5): only a row that is still revoked=false is flipped.
func (r *PostgresRefreshTokenRepo) Revoke(ctx context.Context, q Querier, id string) (bool, error) {
	affected, err := q.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE id = $1 AND revoked = false`, id)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresRefreshTokenRepo) RevokeAllForUser(ctx context.Context, q Querier, userID string, deviceID *string) error {
	var err error
	if deviceID != nil {
		_, err = q.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND device_id = $2 AND revoked = false`, userID, *deviceID)
	} else {
		_, err = q.Exec(ctx, `UPDATE refresh_tokens SET revoked = true WHERE user_id = $1 AND revoked = false`, userID)
	}
	if err != nil {
		return fmt.Errorf("revoke refresh tokens for user: %w", err)
	}
	return nil
}

func (r *PostgresRefreshTokenRepo) PruneExpired(ctx context.Context, q Querier, before time.Time) (int64, error) {
	affected, err := q.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune expired refresh tokens: %w", err)
	}
	return affected, nil
}

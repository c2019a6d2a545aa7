package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/smallbiznis/auth-service/internal/domain"
)

var _ AuthorizationCodeRepository = (*PostgresAuthorizationCodeRepo)(nil)

// PostgresAuthorizationCodeRepo implements AuthorizationCodeRepository over pgx.
type PostgresAuthorizationCodeRepo struct{}

func NewPostgresAuthorizationCodeRepo() *PostgresAuthorizationCodeRepo {
	return &PostgresAuthorizationCodeRepo{}
}

const selectAuthorizationCodeColumns = `code, app_id, user_id, redirect_uri, scopes, code_challenge, code_challenge_method, expires_at, used, created_at`

func scanAuthorizationCode(row Row) (domain.AuthorizationCode, error) {
	var c domain.AuthorizationCode
	var scopes []byte
	if err := row.Scan(
		&c.Code, &c.AppID, &c.UserID, &c.RedirectURI, &scopes,
		&c.CodeChallenge, &c.CodeChallengeMethod, &c.ExpiresAt, &c.Used, &c.CreatedAt,
	); err != nil {
		return domain.AuthorizationCode{}, err
	}
	if len(scopes) > 0 {
		if err := json.Unmarshal(scopes, &c.Scopes); err != nil {
			return domain.AuthorizationCode{}, fmt.Errorf("decode scopes: %w", err)
		}
	}
	return c, nil
}

const insertAuthorizationCodeSQL = `
INSERT INTO authorization_codes (code, app_id, user_id, redirect_uri, scopes, code_challenge, code_challenge_method, expires_at, used)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, false)`

func (r *PostgresAuthorizationCodeRepo) Create(ctx context.Context, q Querier, code domain.AuthorizationCode) error {
	scopes, err := json.Marshal(code.Scopes)
	if err != nil {
		return fmt.Errorf("encode scopes: %w", err)
	}

	if _, err := q.Exec(ctx, insertAuthorizationCodeSQL,
		code.Code, code.AppID, code.UserID, code.RedirectURI, scopes,
		code.CodeChallenge, code.CodeChallengeMethod, code.ExpiresAt,
	); err != nil {
		return fmt.Errorf("create authorization code: %w", err)
	}
	return nil
}

func (r *PostgresAuthorizationCodeRepo) GetByCode(ctx context.Context, q Querier, code string) (domain.AuthorizationCode, error) {
	row := q.QueryRow(ctx, `SELECT `+selectAuthorizationCodeColumns+` FROM authorization_codes WHERE code = $1`, code)
	c, err := scanAuthorizationCode(row)
	if err != nil {
		return domain.AuthorizationCode{}, fmt.Errorf("get authorization code: %w", err)
	}
	return c, nil
}

// MarkUsed is the first-committer-wins conditional update: only a row that
// is still used=false is flipped, so a replayed redemption sees
// rowsAffected==0 and returns (false, nil) rather than an error.
func (r *PostgresAuthorizationCodeRepo) MarkUsed(ctx context.Context, q Querier, code string) (bool, error) {
	affected, err := q.Exec(ctx, `UPDATE authorization_codes SET used = true WHERE code = $1 AND used = false`, code)
	if err != nil {
		return false, fmt.Errorf("mark authorization code used: %w", err)
	}
	return affected > 0, nil
}

func (r *PostgresAuthorizationCodeRepo) DeleteExpired(ctx context.Context, q Querier, before time.Time) (int64, error) {
	affected, err := q.Exec(ctx, `DELETE FROM authorization_codes WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete expired authorization codes: %w", err)
	}
	return affected, nil
}

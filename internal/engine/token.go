package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/credential"
	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/jwt"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// TokenEngine implements issue/refresh/revoke/introspect/logout (C6).
type TokenEngine struct {
	store             repository.TxRunner
	apps              repository.ApplicationRepository
	users             repository.UserRepository
	refreshTokens     repository.RefreshTokenRepository
	generator         *jwt.Generator
	refreshTokenBytes int
	refreshTokenTTL   time.Duration
	logger            *zap.Logger
}

// NewTokenEngine builds a TokenEngine.
func NewTokenEngine(
	store repository.TxRunner,
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	refreshTokens repository.RefreshTokenRepository,
	generator *jwt.Generator,
	refreshTokenBytes int,
	refreshTokenTTL time.Duration,
	logger *zap.Logger,
) *TokenEngine {
	return &TokenEngine{
		store:             store,
		apps:              apps,
		users:             users,
		refreshTokens:     refreshTokens,
		generator:         generator,
		refreshTokenBytes: refreshTokenBytes,
		refreshTokenTTL:   refreshTokenTTL,
		logger:            requireLogger(logger),
	}
}

// IssueTokens validates the requested scopes against the app and mints a
// fresh access/refresh pair (§4.6 issue_tokens).
func (e *TokenEngine) IssueTokens(ctx context.Context, user domain.User, app domain.Application, scopes []string, deviceID *string) (TokenPair, error) {
	ctx, span := startSpan(ctx, "TokenEngine.IssueTokens")
	defer span.End()

	if !app.ScopesAllowed(scopes) {
		return TokenPair{}, apperr.ErrInvalidScope
	}

	var pair TokenPair
	err := e.store.WithTx(ctx, func(q repository.Querier) error {
		issued, err := e.issueTokensTx(ctx, q, user, app, scopes, deviceID)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, err
	}
	return pair, nil
}

// issueTokensTx runs the refresh-token insert plus access-token mint
// against the supplied Querier, so callers already inside a transaction
// (authorization-code redemption) can share the boundary.
func (e *TokenEngine) issueTokensTx(ctx context.Context, q repository.Querier, user domain.User, app domain.Application, scopes []string, deviceID *string) (TokenPair, error) {
	rawToken, err := credential.NewRefreshToken(e.refreshTokenBytes)
	if err != nil {
		return TokenPair{}, fmt.Errorf("generate refresh token: %w", err)
	}

	row := domain.RefreshToken{
		UserID:    user.ID,
		AppID:     app.ID,
		TokenHash: credential.HashToken(rawToken),
		Scopes:    scopes,
		DeviceID:  deviceID,
		ExpiresAt: nowUTC().Add(e.refreshTokenTTL),
	}
	if _, err := e.refreshTokens.Create(ctx, q, row); err != nil {
		return TokenPair{}, fmt.Errorf("store refresh token: %w", err)
	}

	accessToken, claims, err := e.generator.IssueAccessToken(user.ID, app.ClientID, user.Role, scopes)
	if err != nil {
		return TokenPair{}, fmt.Errorf("mint access token: %w", err)
	}

	return TokenPair{
		AccessToken:  accessToken,
		RefreshToken: rawToken,
		TokenType:    "Bearer",
		ExpiresIn:    claims.ExpiresAt - claims.IssuedAt,
	}, nil
}

// Refresh rotates a presented refresh token (§4.6 refresh). Rotation is
// mandatory: the old row is revoked and a new one inserted atomically, so
// replaying the old token fails invalid_grant on the second call.
func (e *TokenEngine) Refresh(ctx context.Context, refreshTokenString, clientID string) (TokenPair, error) {
	ctx, span := startSpan(ctx, "TokenEngine.Refresh")
	defer span.End()

	hash := credential.HashToken(refreshTokenString)

	existing, err := e.refreshTokens.GetByTokenHash(ctx, e.store.Q(), hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenPair{}, apperr.ErrInvalidGrant
		}
		span.RecordError(err)
		return TokenPair{}, apperr.Wrap(apperr.Database, "refresh_lookup_failed", err)
	}
	if existing.Revoked || nowUTC().After(existing.ExpiresAt) || existing.AppID != clientID {
		return TokenPair{}, apperr.ErrInvalidGrant
	}

	user, err := e.users.GetByID(ctx, e.store.Q(), existing.UserID)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, apperr.Wrap(apperr.Database, "refresh_user_lookup_failed", err)
	}
	if !user.IsActive {
		return TokenPair{}, apperr.ErrUserDisabled
	}

	app, err := e.apps.GetByID(ctx, e.store.Q(), existing.AppID)
	if err != nil {
		span.RecordError(err)
		return TokenPair{}, apperr.Wrap(apperr.Database, "refresh_app_lookup_failed", err)
	}
	if app.ClientID != clientID {
		return TokenPair{}, apperr.ErrInvalidGrant
	}
	if !app.IsActive {
		return TokenPair{}, apperr.ErrAppDisabled
	}

	var pair TokenPair
	err = e.store.WithTx(ctx, func(q repository.Querier) error {
		revoked, err := e.refreshTokens.Revoke(ctx, q, existing.ID)
		if err != nil {
			return fmt.Errorf("revoke old refresh token: %w", err)
		}
		if !revoked {
			return apperr.ErrInvalidGrant
		}

		issued, err := e.issueTokensTx(ctx, q, user, app, existing.Scopes, existing.DeviceID)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			span.RecordError(err)
		}
		return TokenPair{}, err
	}
	return pair, nil
}

// Revoke is best-effort per RFC 7009: a refresh-token hash hit is revoked;
// anything else (an access token, an unknown string) is a no-op success.
func (e *TokenEngine) Revoke(ctx context.Context, tokenString string) error {
	ctx, span := startSpan(ctx, "TokenEngine.Revoke")
	defer span.End()

	hash := credential.HashToken(tokenString)
	existing, err := e.refreshTokens.GetByTokenHash(ctx, e.store.Q(), hash)
	if err != nil {
		return nil
	}
	if _, err := e.refreshTokens.Revoke(ctx, e.store.Q(), existing.ID); err != nil {
		span.RecordError(err)
		e.logger.Warn("revoke refresh token failed", zap.Error(err))
	}
	return nil
}

// Introspect decodes an access token and reports its active state. Decode
// failures are never surfaced to the caller beyond active:false.
func (e *TokenEngine) Introspect(ctx context.Context, tokenString string) IntrospectionResult {
	_, span := startSpan(ctx, "TokenEngine.Introspect")
	defer span.End()

	claims, err := e.generator.VerifyAccessToken(tokenString)
	if err != nil {
		return IntrospectionResult{Active: false}
	}
	return IntrospectionResult{
		Active: true,
		Sub:    claims.Subject,
		Aud:    claims.Audience,
		Scopes: claims.Scopes,
		Role:   claims.Role,
		Exp:    claims.ExpiresAt,
		Iat:    claims.IssuedAt,
	}
}

// Logout revokes every refresh token owned by userID, optionally scoped to
// one device. Already-issued access tokens remain valid until expiry.
func (e *TokenEngine) Logout(ctx context.Context, userID string, deviceID *string) error {
	ctx, span := startSpan(ctx, "TokenEngine.Logout")
	defer span.End()

	if err := e.refreshTokens.RevokeAllForUser(ctx, e.store.Q(), userID, deviceID); err != nil {
		span.RecordError(err)
		return apperr.Wrap(apperr.Database, "logout_failed", err)
	}
	return nil
}

// LogoutByRefreshToken resolves the owning user from a presented refresh
// token and logs them out (§4.6 logout), for callers that only hold the
// opaque token string rather than an already-authenticated user id — the
// same "try the hash lookup first" idiom Revoke uses.
func (e *TokenEngine) LogoutByRefreshToken(ctx context.Context, refreshTokenString string, deviceID *string) error {
	ctx, span := startSpan(ctx, "TokenEngine.LogoutByRefreshToken")
	defer span.End()

	hash := credential.HashToken(refreshTokenString)
	existing, err := e.refreshTokens.GetByTokenHash(ctx, e.store.Q(), hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		span.RecordError(err)
		return apperr.Wrap(apperr.Database, "logout_lookup_failed", err)
	}
	return e.Logout(ctx, existing.UserID, deviceID)
}

package engine

import (
	"errors"
	"fmt"

	"context"

	"github.com/jackc/pgx/v5"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/credential"
	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/repository"
	"go.uber.org/zap"
	"time"
)

const authorizationCodeTTL = 10 * time.Minute

// AuthorizationCodeEngine implements mint/redeem (C7).
type AuthorizationCodeEngine struct {
	store repository.TxRunner
	apps  repository.ApplicationRepository
	users repository.UserRepository
	codes repository.AuthorizationCodeRepository
	token *TokenEngine
	log   *zap.Logger
}

// NewAuthorizationCodeEngine builds an AuthorizationCodeEngine. token is
// reused so redemption issues its token pair inside the same transaction
// that flips the code's used flag (§4.2).
func NewAuthorizationCodeEngine(
	store repository.TxRunner,
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	codes repository.AuthorizationCodeRepository,
	token *TokenEngine,
	logger *zap.Logger,
) *AuthorizationCodeEngine {
	return &AuthorizationCodeEngine{
		store: store,
		apps:  apps,
		users: users,
		codes: codes,
		token: token,
		log:   requireLogger(logger),
	}
}

// Mint issues a single-use authorization code bound to the given app, user,
// redirect_uri, scopes, and optional PKCE challenge (§4.7 Mint).
func (e *AuthorizationCodeEngine) Mint(ctx context.Context, user domain.User, app domain.Application, redirectURI string, scopes []string, codeChallenge, codeChallengeMethod string) (string, error) {
	ctx, span := startSpan(ctx, "AuthorizationCodeEngine.Mint")
	defer span.End()

	if !app.HasRedirectURI(redirectURI) {
		return "", apperr.New(apperr.BadRequest, "invalid_request", "redirect_uri is not registered for this application.")
	}
	if !app.ScopesAllowed(scopes) {
		return "", apperr.ErrInvalidScope
	}
	if codeChallengeMethod != "" && codeChallengeMethod != "S256" {
		return "", apperr.New(apperr.BadRequest, "invalid_request", "code_challenge_method must be S256.")
	}

	code, err := credential.NewAuthorizationCode()
	if err != nil {
		return "", fmt.Errorf("generate authorization code: %w", err)
	}

	row := domain.AuthorizationCode{
		Code:                code,
		AppID:               app.ID,
		UserID:              user.ID,
		RedirectURI:         redirectURI,
		Scopes:              scopes,
		CodeChallenge:       codeChallenge,
		CodeChallengeMethod: codeChallengeMethod,
		ExpiresAt:           nowUTC().Add(authorizationCodeTTL),
	}

	if err := e.codes.Create(ctx, e.store.Q(), row); err != nil {
		span.RecordError(err)
		return "", apperr.Wrap(apperr.Database, "mint_failed", err)
	}
	return code, nil
}

// Redeem exchanges a minted code for a token pair (§4.7 Redeem). Every step
// from the used=false->true flip through the new refresh-token insert runs
// inside one transaction.
func (e *AuthorizationCodeEngine) Redeem(ctx context.Context, code, clientID, clientSecret, redirectURI, codeVerifier string) (TokenPair, error) {
	ctx, span := startSpan(ctx, "AuthorizationCodeEngine.Redeem")
	defer span.End()

	app, err := e.apps.GetByClientID(ctx, e.store.Q(), clientID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TokenPair{}, apperr.ErrInvalidClient
		}
		span.RecordError(err)
		return TokenPair{}, apperr.Wrap(apperr.Database, "redeem_app_lookup_failed", err)
	}
	if !app.IsActive {
		return TokenPair{}, apperr.ErrAppDisabled
	}
	ok, err := credential.VerifyClientSecret(clientSecret, app.ClientSecretHash)
	if err != nil || !ok {
		return TokenPair{}, apperr.ErrInvalidClient
	}

	var pair TokenPair
	err = e.store.WithTx(ctx, func(q repository.Querier) error {
		row, err := e.codes.GetByCode(ctx, q, code)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.ErrInvalidGrant
			}
			return fmt.Errorf("load authorization code: %w", err)
		}
		if row.Used || nowUTC().After(row.ExpiresAt) {
			return apperr.ErrInvalidGrant
		}
		if row.AppID != app.ID {
			return apperr.ErrInvalidGrant
		}
		if row.RedirectURI != redirectURI {
			return apperr.ErrInvalidGrant
		}

		used, err := e.codes.MarkUsed(ctx, q, code)
		if err != nil {
			return fmt.Errorf("mark authorization code used: %w", err)
		}
		if !used {
			return apperr.ErrInvalidGrant
		}

		if row.CodeChallenge != "" {
			if !credential.VerifyPKCE(codeVerifier, row.CodeChallenge) {
				return apperr.ErrInvalidGrant
			}
		}

		user, err := e.users.GetByID(ctx, q, row.UserID)
		if err != nil {
			return fmt.Errorf("load authorization code user: %w", err)
		}
		if !user.IsActive {
			return apperr.ErrUserDisabled
		}

		issued, err := e.token.issueTokensTx(ctx, q, user, app, row.Scopes, nil)
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

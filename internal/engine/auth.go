package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/credential"
	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// AuthEngine implements the non-standard X-Client-Id-scoped password grant
// (§1 item 1): register and login for first-party password users. Logout is
// handled by TokenEngine.
// It is deliberately separate from AccountEngine (C12): password is the
// primary credential a user authenticates with, not an identity linked
// after the fact.
type AuthEngine struct {
	store    repository.TxRunner
	users    repository.UserRepository
	accounts repository.AccountRepository
	token    *TokenEngine
	log      *zap.Logger
}

// NewAuthEngine builds an AuthEngine.
func NewAuthEngine(store repository.TxRunner, users repository.UserRepository, accounts repository.AccountRepository, token *TokenEngine, logger *zap.Logger) *AuthEngine {
	return &AuthEngine{store: store, users: users, accounts: accounts, token: token, log: requireLogger(logger)}
}

const defaultGrantScope = "profile"

// Register creates a new User plus its password Account in one
// transaction (§4.2), then issues a token pair scoped to app.
func (e *AuthEngine) Register(ctx context.Context, app domain.Application, email, password, name string) (domain.User, TokenPair, error) {
	ctx, span := startSpan(ctx, "AuthEngine.Register")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))
	if normalized == "" {
		return domain.User{}, TokenPair{}, apperr.New(apperr.BadRequest, "invalid_request", "email is required.")
	}
	if strings.TrimSpace(password) == "" {
		return domain.User{}, TokenPair{}, apperr.New(apperr.BadRequest, "invalid_request", "password is required.")
	}

	if _, err := e.users.GetByEmail(ctx, e.store.Q(), normalized); err == nil {
		return domain.User{}, TokenPair{}, apperr.New(apperr.Conflict, "email_taken", "email is already registered.")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return domain.User{}, TokenPair{}, apperr.Wrap(apperr.Database, "register_lookup_failed", err)
	}

	hash, err := credential.HashPassword(password)
	if err != nil {
		span.RecordError(err)
		return domain.User{}, TokenPair{}, apperr.Wrap(apperr.Internal, "hash_password_failed", err)
	}

	var user domain.User
	err = e.store.WithTx(ctx, func(q repository.Querier) error {
		created, err := e.users.Create(ctx, q, domain.User{
			Email:    &normalized,
			Name:     strings.TrimSpace(name),
			Role:     domain.RoleUser,
			IsActive: true,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		if _, err := e.accounts.Create(ctx, q, domain.Account{
			UserID:     created.ID,
			ProviderID: "password",
			Credential: &hash,
		}); err != nil {
			return fmt.Errorf("create password account: %w", err)
		}

		user = created
		return nil
	})
	if err != nil {
		if _, ok := apperr.As(err); !ok {
			span.RecordError(err)
		}
		return domain.User{}, TokenPair{}, err
	}

	scopes := allowedOrDefault(app)
	pair, err := e.token.IssueTokens(ctx, user, app, scopes, nil)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

// Login verifies email/password against the user's password Account and
// issues a token pair (§1 item 1, non-standard password grant).
func (e *AuthEngine) Login(ctx context.Context, app domain.Application, email, password string, deviceID *string) (domain.User, TokenPair, error) {
	ctx, span := startSpan(ctx, "AuthEngine.Login")
	defer span.End()

	normalized := strings.ToLower(strings.TrimSpace(email))

	user, err := e.users.GetByEmail(ctx, e.store.Q(), normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, TokenPair{}, apperr.ErrInvalidGrant
		}
		span.RecordError(err)
		return domain.User{}, TokenPair{}, apperr.Wrap(apperr.Database, "login_user_lookup_failed", err)
	}
	if !user.IsActive {
		return domain.User{}, TokenPair{}, apperr.ErrUserDisabled
	}

	account, err := e.accounts.GetByUserAndProvider(ctx, e.store.Q(), user.ID, "password")
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, TokenPair{}, apperr.ErrInvalidGrant
		}
		span.RecordError(err)
		return domain.User{}, TokenPair{}, apperr.Wrap(apperr.Database, "login_account_lookup_failed", err)
	}
	if account.Credential == nil {
		return domain.User{}, TokenPair{}, apperr.ErrInvalidGrant
	}

	ok, err := credential.VerifyPassword(password, *account.Credential)
	if err != nil || !ok {
		return domain.User{}, TokenPair{}, apperr.ErrInvalidGrant
	}

	scopes := allowedOrDefault(app)
	pair, err := e.token.IssueTokens(ctx, user, app, scopes, deviceID)
	if err != nil {
		return domain.User{}, TokenPair{}, err
	}
	return user, pair, nil
}

func allowedOrDefault(app domain.Application) []string {
	if len(app.AllowedScopes) > 0 {
		return app.AllowedScopes
	}
	return []string{defaultGrantScope}
}

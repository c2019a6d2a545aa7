package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/provider"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// AccountEngine implements the account-linking flow (C12).
type AccountEngine struct {
	store        repository.TxRunner
	appProviders repository.AppProviderRepository
	accounts     repository.AccountRepository
	providers    *provider.Factory
	log          *zap.Logger
}

// NewAccountEngine builds an AccountEngine.
func NewAccountEngine(
	store repository.TxRunner,
	appProviders repository.AppProviderRepository,
	accounts repository.AccountRepository,
	providers *provider.Factory,
	logger *zap.Logger,
) *AccountEngine {
	return &AccountEngine{
		store:        store,
		appProviders: appProviders,
		accounts:     accounts,
		providers:    providers,
		log:          requireLogger(logger),
	}
}

// List returns every Account belonging to userID.
func (e *AccountEngine) List(ctx context.Context, userID string) ([]domain.Account, error) {
	ctx, span := startSpan(ctx, "AccountEngine.List")
	defer span.End()

	accounts, err := e.accounts.ListByUser(ctx, e.store.Q(), userID)
	if err != nil {
		span.RecordError(err)
		return nil, apperr.Wrap(apperr.Database, "list_accounts_failed", err)
	}
	return accounts, nil
}

// Link binds an additional provider identity to an already-authenticated
// user (§4.10). The AppProvider config for providerID is always resolved
// against app — the user's owning application — rather than looked up by
// provider_id alone, closing the cross-app leak the original implementation
// carried (§9).
func (e *AccountEngine) Link(ctx context.Context, app domain.Application, userID, providerID string, credentialValue any) (domain.Account, error) {
	ctx, span := startSpan(ctx, "AccountEngine.Link")
	defer span.End()

	appProvider, err := e.appProviders.GetByAppAndProvider(ctx, e.store.Q(), app.ID, providerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Account{}, apperr.New(apperr.BadRequest, "provider_not_configured", "This application has not configured that provider.")
		}
		span.RecordError(err)
		return domain.Account{}, apperr.Wrap(apperr.Database, "link_provider_lookup_failed", err)
	}
	if !appProvider.IsActive {
		return domain.Account{}, apperr.New(apperr.BadRequest, "provider_not_configured", "This provider is disabled for this application.")
	}

	if _, err := e.accounts.GetByUserAndProvider(ctx, e.store.Q(), userID, providerID); err == nil {
		return domain.Account{}, apperr.New(apperr.Conflict, "account_already_linked", "This user already has an account for that provider.")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return domain.Account{}, apperr.Wrap(apperr.Database, "link_account_lookup_failed", err)
	}

	authProvider, err := e.providers.Create(providerID)
	if err != nil {
		return domain.Account{}, apperr.New(apperr.BadRequest, "provider_not_supported", err.Error())
	}
	info, err := authProvider.Authenticate(ctx, appProvider.Config, credentialValue)
	if err != nil {
		return domain.Account{}, apperr.New(apperr.BadRequest, "provider_authentication_failed", err.Error())
	}

	if info.ProviderAccountID != "" {
		if existing, err := e.accounts.GetByProviderAndAccountID(ctx, e.store.Q(), providerID, info.ProviderAccountID); err == nil && existing.UserID != userID {
			return domain.Account{}, apperr.New(apperr.Conflict, "account_belongs_to_other_user", "That provider identity is already linked to a different user.")
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(err)
			return domain.Account{}, apperr.Wrap(apperr.Database, "link_account_conflict_check_failed", err)
		}
	}

	var providerAccountID *string
	if info.ProviderAccountID != "" {
		providerAccountID = &info.ProviderAccountID
	}

	created, err := e.accounts.Create(ctx, e.store.Q(), domain.Account{
		UserID:            userID,
		ProviderID:        providerID,
		ProviderAccountID: providerAccountID,
		ProviderMetadata:  info.Metadata,
	})
	if err != nil {
		span.RecordError(err)
		return domain.Account{}, apperr.Wrap(apperr.Database, "create_account_failed", err)
	}
	return created, nil
}

// Unlink removes providerID's Account from userID, enforcing the lower
// bound: a user may never be left with zero Accounts (§4.10, §8 invariant 8).
func (e *AccountEngine) Unlink(ctx context.Context, userID, providerID string) error {
	ctx, span := startSpan(ctx, "AccountEngine.Unlink")
	defer span.End()

	count, err := e.accounts.CountByUser(ctx, e.store.Q(), userID)
	if err != nil {
		span.RecordError(err)
		return apperr.Wrap(apperr.Database, "unlink_count_failed", err)
	}
	if count <= 1 {
		return apperr.ErrCannotUnlinkLast
	}

	if _, err := e.accounts.GetByUserAndProvider(ctx, e.store.Q(), userID, providerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.New(apperr.NotFound, "account_not_found", "No account for that provider.")
		}
		span.RecordError(err)
		return apperr.Wrap(apperr.Database, "unlink_lookup_failed", err)
	}

	if err := e.accounts.Delete(ctx, e.store.Q(), userID, providerID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

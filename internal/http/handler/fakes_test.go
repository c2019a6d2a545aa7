package handler_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// The fakes below mirror the in-memory style internal/engine's own tests
// use (fakes_test.go), rebuilt here unexported to this package since Go
// gives test helpers no cross-package visibility.

type fakeQuerier struct{}

func (fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (int64, error) { return 0, nil }
func (fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) repository.Row {
	return nil
}
func (fakeQuerier) Query(ctx context.Context, sql string, args ...any) (repository.Rows, error) {
	return nil, nil
}

type fakeStore struct{}

func (fakeStore) Q() repository.Querier { return fakeQuerier{} }
func (fakeStore) WithTx(ctx context.Context, fn func(q repository.Querier) error) error {
	return fn(fakeQuerier{})
}

var _ repository.TxRunner = fakeStore{}

type fakeApplications struct {
	byClientID map[string]domain.Application
}

func newFakeApplications(apps ...domain.Application) *fakeApplications {
	f := &fakeApplications{byClientID: map[string]domain.Application{}}
	for _, a := range apps {
		f.byClientID[a.ClientID] = a
	}
	return f
}

func (f *fakeApplications) GetByID(ctx context.Context, q repository.Querier, id string) (domain.Application, error) {
	for _, a := range f.byClientID {
		if a.ID == id {
			return a, nil
		}
	}
	return domain.Application{}, pgx.ErrNoRows
}
func (f *fakeApplications) GetByClientID(ctx context.Context, q repository.Querier, clientID string) (domain.Application, error) {
	a, ok := f.byClientID[clientID]
	if !ok {
		return domain.Application{}, pgx.ErrNoRows
	}
	return a, nil
}
func (f *fakeApplications) GetByName(ctx context.Context, q repository.Querier, name string) (domain.Application, error) {
	for _, a := range f.byClientID {
		if a.Name == name {
			return a, nil
		}
	}
	return domain.Application{}, pgx.ErrNoRows
}
func (f *fakeApplications) ListAll(ctx context.Context, q repository.Querier) ([]domain.Application, error) {
	var out []domain.Application
	for _, a := range f.byClientID {
		out = append(out, a)
	}
	return out, nil
}
func (f *fakeApplications) Create(ctx context.Context, q repository.Querier, app domain.Application) (domain.Application, error) {
	f.byClientID[app.ClientID] = app
	return app, nil
}
func (f *fakeApplications) Update(ctx context.Context, q repository.Querier, app domain.Application) error {
	f.byClientID[app.ClientID] = app
	return nil
}
func (f *fakeApplications) CountAll(ctx context.Context, q repository.Querier) (int64, error) {
	return int64(len(f.byClientID)), nil
}
func (f *fakeApplications) CountActive(ctx context.Context, q repository.Querier) (int64, error) {
	var n int64
	for _, a := range f.byClientID {
		if a.IsActive {
			n++
		}
	}
	return n, nil
}

var _ repository.ApplicationRepository = (*fakeApplications)(nil)

type fakeUsers struct {
	byID    map[string]domain.User
	byEmail map[string]domain.User
	seq     int
}

func newFakeUsers(users ...domain.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]domain.User{}, byEmail: map[string]domain.User{}}
	for _, u := range users {
		f.byID[u.ID] = u
		if u.Email != nil {
			f.byEmail[*u.Email] = u
		}
	}
	return f
}

func (f *fakeUsers) GetByID(ctx context.Context, q repository.Querier, id string) (domain.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}
func (f *fakeUsers) GetByEmail(ctx context.Context, q repository.Querier, email string) (domain.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}
func (f *fakeUsers) Create(ctx context.Context, q repository.Querier, user domain.User) (domain.User, error) {
	f.seq++
	if user.ID == "" {
		user.ID = "user-seq"
		if user.Email != nil {
			user.ID = "user-" + *user.Email
		}
	}
	f.byID[user.ID] = user
	if user.Email != nil {
		f.byEmail[*user.Email] = user
	}
	return user, nil
}
func (f *fakeUsers) Update(ctx context.Context, q repository.Querier, user domain.User) error {
	f.byID[user.ID] = user
	if user.Email != nil {
		f.byEmail[*user.Email] = user
	}
	return nil
}
func (f *fakeUsers) List(ctx context.Context, q repository.Querier, search string, page, perPage int) ([]domain.User, error) {
	var out []domain.User
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}
func (f *fakeUsers) CountAll(ctx context.Context, q repository.Querier) (int64, error) {
	return int64(len(f.byID)), nil
}
func (f *fakeUsers) CountCreatedSince(ctx context.Context, q repository.Querier, since time.Time) (int64, error) {
	return 0, nil
}

var _ repository.UserRepository = (*fakeUsers)(nil)

type fakeAccounts struct {
	accounts []domain.Account
	seq      int
}

func newFakeAccounts(accounts ...domain.Account) *fakeAccounts {
	return &fakeAccounts{accounts: accounts}
}

func (f *fakeAccounts) GetByUserAndProvider(ctx context.Context, q repository.Querier, userID, providerID string) (domain.Account, error) {
	for _, a := range f.accounts {
		if a.UserID == userID && a.ProviderID == providerID {
			return a, nil
		}
	}
	return domain.Account{}, pgx.ErrNoRows
}
func (f *fakeAccounts) GetByProviderAndAccountID(ctx context.Context, q repository.Querier, providerID, providerAccountID string) (domain.Account, error) {
	for _, a := range f.accounts {
		if a.ProviderID == providerID && a.ProviderAccountID != nil && *a.ProviderAccountID == providerAccountID {
			return a, nil
		}
	}
	return domain.Account{}, pgx.ErrNoRows
}
func (f *fakeAccounts) ListByUser(ctx context.Context, q repository.Querier, userID string) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range f.accounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}
func (f *fakeAccounts) CountByUser(ctx context.Context, q repository.Querier, userID string) (int64, error) {
	var n int64
	for _, a := range f.accounts {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}
func (f *fakeAccounts) Create(ctx context.Context, q repository.Querier, acc domain.Account) (domain.Account, error) {
	f.seq++
	if acc.ID == "" {
		acc.ID = "account-seq"
	}
	f.accounts = append(f.accounts, acc)
	return acc, nil
}
func (f *fakeAccounts) Update(ctx context.Context, q repository.Querier, acc domain.Account) error {
	for i, a := range f.accounts {
		if a.ID == acc.ID {
			f.accounts[i] = acc
			return nil
		}
	}
	return pgx.ErrNoRows
}
func (f *fakeAccounts) Delete(ctx context.Context, q repository.Querier, userID, providerID string) error {
	for i, a := range f.accounts {
		if a.UserID == userID && a.ProviderID == providerID {
			f.accounts = append(f.accounts[:i], f.accounts[i+1:]...)
			return nil
		}
	}
	return pgx.ErrNoRows
}

var _ repository.AccountRepository = (*fakeAccounts)(nil)

type fakeRefreshTokens struct {
	byHash map[string]domain.RefreshToken
}

func newFakeRefreshTokens() *fakeRefreshTokens {
	return &fakeRefreshTokens{byHash: map[string]domain.RefreshToken{}}
}

func (f *fakeRefreshTokens) Create(ctx context.Context, q repository.Querier, token domain.RefreshToken) (domain.RefreshToken, error) {
	if token.ID == "" {
		token.ID = token.TokenHash
	}
	f.byHash[token.TokenHash] = token
	return token, nil
}
func (f *fakeRefreshTokens) GetByTokenHash(ctx context.Context, q repository.Querier, hash string) (domain.RefreshToken, error) {
	t, ok := f.byHash[hash]
	if !ok {
		return domain.RefreshToken{}, pgx.ErrNoRows
	}
	return t, nil
}
func (f *fakeRefreshTokens) Revoke(ctx context.Context, q repository.Querier, id string) (bool, error) {
	for hash, t := range f.byHash {
		if t.ID == id {
			if t.Revoked {
				return false, nil
			}
			t.Revoked = true
			f.byHash[hash] = t
			return true, nil
		}
	}
	return false, nil
}
func (f *fakeRefreshTokens) RevokeAllForUser(ctx context.Context, q repository.Querier, userID string, deviceID *string) error {
	for hash, t := range f.byHash {
		if t.UserID != userID {
			continue
		}
		t.Revoked = true
		f.byHash[hash] = t
	}
	return nil
}
func (f *fakeRefreshTokens) PruneExpired(ctx context.Context, q repository.Querier, before time.Time) (int64, error) {
	return 0, nil
}

var _ repository.RefreshTokenRepository = (*fakeRefreshTokens)(nil)

type fakeAuthorizationCodes struct {
	byCode map[string]domain.AuthorizationCode
}

func newFakeAuthorizationCodes() *fakeAuthorizationCodes {
	return &fakeAuthorizationCodes{byCode: map[string]domain.AuthorizationCode{}}
}

func (f *fakeAuthorizationCodes) Create(ctx context.Context, q repository.Querier, code domain.AuthorizationCode) error {
	f.byCode[code.Code] = code
	return nil
}
func (f *fakeAuthorizationCodes) GetByCode(ctx context.Context, q repository.Querier, code string) (domain.AuthorizationCode, error) {
	c, ok := f.byCode[code]
	if !ok {
		return domain.AuthorizationCode{}, pgx.ErrNoRows
	}
	return c, nil
}
func (f *fakeAuthorizationCodes) MarkUsed(ctx context.Context, q repository.Querier, code string) (bool, error) {
	c, ok := f.byCode[code]
	if !ok || c.Used {
		return false, nil
	}
	c.Used = true
	f.byCode[code] = c
	return true, nil
}
func (f *fakeAuthorizationCodes) DeleteExpired(ctx context.Context, q repository.Querier, before time.Time) (int64, error) {
	return 0, nil
}

var _ repository.AuthorizationCodeRepository = (*fakeAuthorizationCodes)(nil)

type fakeAppProviders struct {
	byKey map[string]domain.AppProvider
}

func newFakeAppProviders(providers ...domain.AppProvider) *fakeAppProviders {
	f := &fakeAppProviders{byKey: map[string]domain.AppProvider{}}
	for _, p := range providers {
		f.byKey[p.AppID+"/"+p.ProviderID] = p
	}
	return f
}

func (f *fakeAppProviders) GetByAppAndProvider(ctx context.Context, q repository.Querier, appID, providerID string) (domain.AppProvider, error) {
	p, ok := f.byKey[appID+"/"+providerID]
	if !ok {
		return domain.AppProvider{}, pgx.ErrNoRows
	}
	return p, nil
}
func (f *fakeAppProviders) ListByApp(ctx context.Context, q repository.Querier, appID string) ([]domain.AppProvider, error) {
	var out []domain.AppProvider
	for _, p := range f.byKey {
		if p.AppID == appID {
			out = append(out, p)
		}
	}
	return out, nil
}
func (f *fakeAppProviders) Create(ctx context.Context, q repository.Querier, p domain.AppProvider) (domain.AppProvider, error) {
	f.byKey[p.AppID+"/"+p.ProviderID] = p
	return p, nil
}
func (f *fakeAppProviders) Delete(ctx context.Context, q repository.Querier, appID, providerID string) error {
	delete(f.byKey, appID+"/"+providerID)
	return nil
}

var _ repository.AppProviderRepository = (*fakeAppProviders)(nil)

func noopLogger() *zap.Logger { return zap.NewNop() }

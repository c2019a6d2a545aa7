// Package repository defines the persistence contracts for the six
// entities the engine depends on, and a PostgreSQL implementation of each
// over pgx/v5. Every operation is an explicit, narrowly-scoped function —
// not an ORM — and queries are parameterized only.
package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/auth-service/internal/domain"
)

// Querier is implemented by thin adapters over both *pgxpool.Pool and pgx.Tx
// (pgx_adapter.go), letting every
// repository method run either directly against the pool or inside a
// caller-managed transaction without two code paths.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// TxRunner is the transactional boundary the engine package depends on —
// satisfied by *Store in production and by an in-memory fake in engine
// unit tests, so tests never need a real database connection.
type TxRunner interface {
	Q() Querier
	WithTx(ctx context.Context, fn func(q Querier) error) error
}

// Row mirrors pgx.Row's Scan signature so repository code does not import
// pgx directly.
type Row interface {
	Scan(dest ...any) error
}

// Rows mirrors pgx.Rows' iteration surface.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
}

// ApplicationRepository persists OAuth2 client applications.
type ApplicationRepository interface {
	GetByID(ctx context.Context, q Querier, id string) (domain.Application, error)
	GetByClientID(ctx context.Context, q Querier, clientID string) (domain.Application, error)
	GetByName(ctx context.Context, q Querier, name string) (domain.Application, error)
	ListAll(ctx context.Context, q Querier) ([]domain.Application, error)
	Create(ctx context.Context, q Querier, app domain.Application) (domain.Application, error)
	Update(ctx context.Context, q Querier, app domain.Application) error
	CountAll(ctx context.Context, q Querier) (int64, error)
	CountActive(ctx context.Context, q Querier) (int64, error)
}

// AppProviderRepository persists per-application provider configuration.
type AppProviderRepository interface {
	GetByAppAndProvider(ctx context.Context, q Querier, appID, providerID string) (domain.AppProvider, error)
	ListByApp(ctx context.Context, q Querier, appID string) ([]domain.AppProvider, error)
	Create(ctx context.Context, q Querier, p domain.AppProvider) (domain.AppProvider, error)
	Delete(ctx context.Context, q Querier, appID, providerID string) error
}

// UserRepository persists end users.
type UserRepository interface {
	GetByID(ctx context.Context, q Querier, id string) (domain.User, error)
	GetByEmail(ctx context.Context, q Querier, email string) (domain.User, error)
	Create(ctx context.Context, q Querier, user domain.User) (domain.User, error)
	Update(ctx context.Context, q Querier, user domain.User) error
	List(ctx context.Context, q Querier, search string, page, perPage int) ([]domain.User, error)
	CountAll(ctx context.Context, q Querier) (int64, error)
	CountCreatedSince(ctx context.Context, q Querier, since time.Time) (int64, error)
}

// AccountRepository persists bindings between a User and one provider.
type AccountRepository interface {
	GetByUserAndProvider(ctx context.Context, q Querier, userID, providerID string) (domain.Account, error)
	GetByProviderAndAccountID(ctx context.Context, q Querier, providerID, providerAccountID string) (domain.Account, error)
	ListByUser(ctx context.Context, q Querier, userID string) ([]domain.Account, error)
	CountByUser(ctx context.Context, q Querier, userID string) (int64, error)
	Create(ctx context.Context, q Querier, acc domain.Account) (domain.Account, error)
	Update(ctx context.Context, q Querier, acc domain.Account) error
	Delete(ctx context.Context, q Querier, userID, providerID string) error
}

// AuthorizationCodeRepository persists single-use authorization codes.
type AuthorizationCodeRepository interface {
	Create(ctx context.Context, q Querier, code domain.AuthorizationCode) error
	GetByCode(ctx context.Context, q Querier, code string) (domain.AuthorizationCode, error)
	// MarkUsed flips used=false->true and reports whether the row was
	// actually updated: the first committer wins, the second call sees
	// rowsAffected==0 and returns false, no error.
	MarkUsed(ctx context.Context, q Querier, code string) (bool, error)
	DeleteExpired(ctx context.Context, q Querier, before time.Time) (int64, error)
}

// RefreshTokenRepository persists rotated, hashed-at-rest refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, q Querier, token domain.RefreshToken) (domain.RefreshToken, error)
	GetByTokenHash(ctx context.Context, q Querier, hash string) (domain.RefreshToken, error)
	// Revoke flips revoked=false->true and reports whether it took effect;
	// it returns false both when the row was already revoked and when no
	// row has that id.
	Revoke(ctx context.Context, q Querier, id string) (bool, error)
	RevokeAllForUser(ctx context.Context, q Querier, userID string, deviceID *string) error
	PruneExpired(ctx context.Context, q Querier, before time.Time) (int64, error)
}

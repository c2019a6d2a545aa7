package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/smallbiznis/auth-service/internal/domain"
)

var _ AccountRepository = (*PostgresAccountRepo)(nil)

// PostgresAccountRepo implements AccountRepository over pgx.
type PostgresAccountRepo struct{}

func NewPostgresAccountRepo() *PostgresAccountRepo {
	return &PostgresAccountRepo{}
}

const selectAccountColumns = `id, user_id, provider_id, provider_account_id, credential, provider_metadata, created_at, updated_at`

func scanAccount(row Row) (domain.Account, error) {
	var a domain.Account
	var metadata []byte
	if err := row.Scan(&a.ID, &a.UserID, &a.ProviderID, &a.ProviderAccountID, &a.Credential, &metadata, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return domain.Account{}, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.ProviderMetadata); err != nil {
			return domain.Account{}, fmt.Errorf("decode provider_metadata: %w", err)
		}
	}
	return a, nil
}

func (r *PostgresAccountRepo) GetByUserAndProvider(ctx context.Context, q Querier, userID, providerID string) (domain.Account, error) {
	row := q.QueryRow(ctx, `SELECT `+selectAccountColumns+` FROM accounts WHERE user_id = $1 AND provider_id = $2`, userID, providerID)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account by user and provider: %w", err)
	}
	return a, nil
}

func (r *PostgresAccountRepo) GetByProviderAndAccountID(ctx context.Context, q Querier, providerID, providerAccountID string) (domain.Account, error) {
	row := q.QueryRow(ctx, `SELECT `+selectAccountColumns+` FROM accounts WHERE provider_id = $1 AND provider_account_id = $2`, providerID, providerAccountID)
	a, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account by provider account id: %w", err)
	}
	return a, nil
}

func (r *PostgresAccountRepo) ListByUser(ctx context.Context, q Querier, userID string) ([]domain.Account, error) {
	rows, err := q.Query(ctx, `SELECT `+selectAccountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

func (r *PostgresAccountRepo) CountByUser(ctx context.Context, q Querier, userID string) (int64, error) {
	var count int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE user_id = $1`, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return count, nil
}

const insertAccountSQL = `
INSERT INTO accounts (id, user_id, provider_id, provider_account_id, credential, provider_metadata)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + selectAccountColumns

func (r *PostgresAccountRepo) Create(ctx context.Context, q Querier, acc domain.Account) (domain.Account, error) {
	if acc.ID == "" {
		acc.ID = uuid.NewString()
	}
	metadata, err := json.Marshal(acc.ProviderMetadata)
	if err != nil {
		return domain.Account{}, fmt.Errorf("encode provider_metadata: %w", err)
	}

	row := q.QueryRow(ctx, insertAccountSQL, acc.ID, acc.UserID, acc.ProviderID, acc.ProviderAccountID, acc.Credential, metadata)
	created, err := scanAccount(row)
	if err != nil {
		return domain.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

const updateAccountSQL = `
UPDATE accounts
SET provider_account_id = $2, credential = $3, provider_metadata = $4, updated_at = now()
WHERE id = $1`

func (r *PostgresAccountRepo) Update(ctx context.Context, q Querier, acc domain.Account) error {
	metadata, err := json.Marshal(acc.ProviderMetadata)
	if err != nil {
		return fmt.Errorf("encode provider_metadata: %w", err)
	}

	affected, err := q.Exec(ctx, updateAccountSQL, acc.ID, acc.ProviderAccountID, acc.Credential, metadata)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update account: %w", errAccountNotFound)
	}
	return nil
}

func (r *PostgresAccountRepo) Delete(ctx context.Context, q Querier, userID, providerID string) error {
	if _, err := q.Exec(ctx, `DELETE FROM accounts WHERE user_id = $1 AND provider_id = $2`, userID, providerID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return nil
}

var errAccountNotFound = errors.New("account not found")

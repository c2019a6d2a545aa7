package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/smallbiznis/auth-service/internal/domain"
)

var _ AppProviderRepository = (*PostgresAppProviderRepo)(nil)

// PostgresAppProviderRepo implements AppProviderRepository over pgx.
type PostgresAppProviderRepo struct{}

func NewPostgresAppProviderRepo() *PostgresAppProviderRepo {
	return &PostgresAppProviderRepo{}
}

const selectAppProviderColumns = `id, app_id, provider_id, config, is_active, created_at`

func scanAppProvider(row Row) (domain.AppProvider, error) {
	var p domain.AppProvider
	var config []byte
	if err := row.Scan(&p.ID, &p.AppID, &p.ProviderID, &config, &p.IsActive, &p.CreatedAt); err != nil {
		return domain.AppProvider{}, err
	}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &p.Config); err != nil {
			return domain.AppProvider{}, fmt.Errorf("decode config: %w", err)
		}
	}
	return p, nil
}

func (r *PostgresAppProviderRepo) GetByAppAndProvider(ctx context.Context, q Querier, appID, providerID string) (domain.AppProvider, error) {
	row := q.QueryRow(ctx, `SELECT `+selectAppProviderColumns+` FROM app_providers WHERE app_id = $1 AND provider_id = $2`, appID, providerID)
	p, err := scanAppProvider(row)
	if err != nil {
		return domain.AppProvider{}, fmt.Errorf("get app provider: %w", err)
	}
	return p, nil
}

func (r *PostgresAppProviderRepo) ListByApp(ctx context.Context, q Querier, appID string) ([]domain.AppProvider, error) {
	rows, err := q.Query(ctx, `SELECT `+selectAppProviderColumns+` FROM app_providers WHERE app_id = $1 ORDER BY created_at`, appID)
	if err != nil {
		return nil, fmt.Errorf("list app providers: %w", err)
	}
	defer rows.Close()

	var providers []domain.AppProvider
	for rows.Next() {
		p, err := scanAppProvider(rows)
		if err != nil {
			return nil, fmt.Errorf("scan app provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list app providers: %w", err)
	}
	return providers, nil
}

const insertAppProviderSQL = `
INSERT INTO app_providers (id, app_id, provider_id, config, is_active)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + selectAppProviderColumns

func (r *PostgresAppProviderRepo) Create(ctx context.Context, q Querier, p domain.AppProvider) (domain.AppProvider, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	config, err := json.Marshal(p.Config)
	if err != nil {
		return domain.AppProvider{}, fmt.Errorf("encode config: %w", err)
	}

	row := q.QueryRow(ctx, insertAppProviderSQL, p.ID, p.AppID, p.ProviderID, config, p.IsActive)
	created, err := scanAppProvider(row)
	if err != nil {
		return domain.AppProvider{}, fmt.Errorf("create app provider: %w", err)
	}
	return created, nil
}

func (r *PostgresAppProviderRepo) Delete(ctx context.Context, q Querier, appID, providerID string) error {
	if _, err := q.Exec(ctx, `DELETE FROM app_providers WHERE app_id = $1 AND provider_id = $2`, appID, providerID); err != nil {
		return fmt.Errorf("delete app provider: %w", err)
	}
	return nil
}

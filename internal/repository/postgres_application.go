package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/smallbiznis/auth-service/internal/domain"
)

var _ ApplicationRepository = (*PostgresApplicationRepo)(nil)

// PostgresApplicationRepo implements ApplicationRepository over pgx.
type PostgresApplicationRepo struct{}

func NewPostgresApplicationRepo() *PostgresApplicationRepo {
	return &PostgresApplicationRepo{}
}

const selectApplicationColumns = `id, name, client_id, client_secret_hash, redirect_uris, allowed_scopes, is_active, created_at, updated_at`

func scanApplication(row Row) (domain.Application, error) {
	var app domain.Application
	var redirectURIs, allowedScopes []byte
	if err := row.Scan(
		&app.ID, &app.Name, &app.ClientID, &app.ClientSecretHash,
		&redirectURIs, &allowedScopes, &app.IsActive, &app.CreatedAt, &app.UpdatedAt,
	); err != nil {
		return domain.Application{}, err
	}
	if err := json.Unmarshal(redirectURIs, &app.RedirectURIs); err != nil {
		return domain.Application{}, fmt.Errorf("decode redirect_uris: %w", err)
	}
	if err := json.Unmarshal(allowedScopes, &app.AllowedScopes); err != nil {
		return domain.Application{}, fmt.Errorf("decode allowed_scopes: %w", err)
	}
	return app, nil
}

func (r *PostgresApplicationRepo) GetByID(ctx context.Context, q Querier, id string) (domain.Application, error) {
	row := q.QueryRow(ctx, `SELECT `+selectApplicationColumns+` FROM applications WHERE id = $1`, id)
	app, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, fmt.Errorf("get application by id: %w", err)
	}
	return app, nil
}

func (r *PostgresApplicationRepo) GetByClientID(ctx context.Context, q Querier, clientID string) (domain.Application, error) {
	row := q.QueryRow(ctx, `SELECT `+selectApplicationColumns+` FROM applications WHERE client_id = $1`, clientID)
	app, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, fmt.Errorf("get application by client_id: %w", err)
	}
	return app, nil
}

func (r *PostgresApplicationRepo) GetByName(ctx context.Context, q Querier, name string) (domain.Application, error) {
	row := q.QueryRow(ctx, `SELECT `+selectApplicationColumns+` FROM applications WHERE name = $1`, name)
	app, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, fmt.Errorf("get application by name: %w", err)
	}
	return app, nil
}

func (r *PostgresApplicationRepo) ListAll(ctx context.Context, q Querier) ([]domain.Application, error) {
	rows, err := q.Query(ctx, `SELECT `+selectApplicationColumns+` FROM applications ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var apps []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

const insertApplicationSQL = `
INSERT INTO applications (id, name, client_id, client_secret_hash, redirect_uris, allowed_scopes, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + selectApplicationColumns

func (r *PostgresApplicationRepo) Create(ctx context.Context, q Querier, app domain.Application) (domain.Application, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	redirectURIs, err := json.Marshal(app.RedirectURIs)
	if err != nil {
		return domain.Application{}, fmt.Errorf("encode redirect_uris: %w", err)
	}
	allowedScopes, err := json.Marshal(app.AllowedScopes)
	if err != nil {
		return domain.Application{}, fmt.Errorf("encode allowed_scopes: %w", err)
	}

	row := q.QueryRow(ctx, insertApplicationSQL,
		app.ID, app.Name, app.ClientID, app.ClientSecretHash, redirectURIs, allowedScopes, app.IsActive,
	)
	created, err := scanApplication(row)
	if err != nil {
		return domain.Application{}, fmt.Errorf("create application: %w", err)
	}
	return created, nil
}

const updateApplicationSQL = `
UPDATE applications
SET name = $2, client_secret_hash = $3, redirect_uris = $4, allowed_scopes = $5, is_active = $6, updated_at = now()
WHERE id = $1`

func (r *PostgresApplicationRepo) Update(ctx context.Context, q Querier, app domain.Application) error {
	redirectURIs, err := json.Marshal(app.RedirectURIs)
	if err != nil {
		return fmt.Errorf("encode redirect_uris: %w", err)
	}
	allowedScopes, err := json.Marshal(app.AllowedScopes)
	if err != nil {
		return fmt.Errorf("encode allowed_scopes: %w", err)
	}

	affected, err := q.Exec(ctx, updateApplicationSQL,
		app.ID, app.Name, app.ClientSecretHash, redirectURIs, allowedScopes, app.IsActive,
	)
	if err != nil {
		return fmt.Errorf("update application: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update application: %w", errApplicationNotFound)
	}
	return nil
}

func (r *PostgresApplicationRepo) CountAll(ctx context.Context, q Querier) (int64, error) {
	var count int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM applications`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count applications: %w", err)
	}
	return count, nil
}

func (r *PostgresApplicationRepo) CountActive(ctx context.Context, q Querier) (int64, error) {
	var count int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM applications WHERE is_active`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active applications: %w", err)
	}
	return count, nil
}

var errApplicationNotFound = errors.New("application not found")

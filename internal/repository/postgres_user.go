package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/smallbiznis/auth-service/internal/domain"
)

var _ UserRepository = (*PostgresUserRepo)(nil)

// PostgresUserRepo implements UserRepository over pgx.
type PostgresUserRepo struct{}

func NewPostgresUserRepo() *PostgresUserRepo {
	return &PostgresUserRepo{}
}

const selectUserColumns = `id, email, name, avatar_url, email_verified, role, is_active, created_at, updated_at`

func scanUser(row Row) (domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.AvatarURL, &u.EmailVerified, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

func (r *PostgresUserRepo) GetByID(ctx context.Context, q Querier, id string) (domain.User, error) {
	row := q.QueryRow(ctx, `SELECT `+selectUserColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

func (r *PostgresUserRepo) GetByEmail(ctx context.Context, q Querier, email string) (domain.User, error) {
	row := q.QueryRow(ctx, `SELECT `+selectUserColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

const insertUserSQL = `
INSERT INTO users (id, email, name, avatar_url, email_verified, role, is_active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + selectUserColumns

func (r *PostgresUserRepo) Create(ctx context.Context, q Querier, user domain.User) (domain.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	row := q.QueryRow(ctx, insertUserSQL, user.ID, user.Email, user.Name, user.AvatarURL, user.EmailVerified, user.Role, user.IsActive)
	created, err := scanUser(row)
	if err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

const updateUserSQL = `
UPDATE users
SET email = $2, name = $3, avatar_url = $4, email_verified = $5, role = $6, is_active = $7, updated_at = now()
WHERE id = $1`

func (r *PostgresUserRepo) Update(ctx context.Context, q Querier, user domain.User) error {
	affected, err := q.Exec(ctx, updateUserSQL, user.ID, user.Email, user.Name, user.AvatarURL, user.EmailVerified, user.Role, user.IsActive)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update user: %w", errUserNotFound)
	}
	return nil
}

func (r *PostgresUserRepo) List(ctx context.Context, q Querier, search string, page, perPage int) ([]domain.User, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}
	offset := (page - 1) * perPage

	rows, err := q.Query(ctx, `
SELECT `+selectUserColumns+`
FROM users
WHERE $1 = '' OR name ILIKE '%' || $1 || '%' OR email ILIKE '%' || $1 || '%'
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`, search, perPage, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *PostgresUserRepo) CountAll(ctx context.Context, q Querier) (int64, error) {
	var count int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func (r *PostgresUserRepo) CountCreatedSince(ctx context.Context, q Querier, since time.Time) (int64, error) {
	var count int64
	if err := q.QueryRow(ctx, `SELECT count(*) FROM users WHERE created_at >= $1`, since).Scan(&count); err != nil {
		return 0, fmt.Errorf("count recent users: %w", err)
	}
	return count, nil
}

var errUserNotFound = errors.New("user not found")

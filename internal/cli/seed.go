// Package cli implements operator-facing subcommands that run outside the
// fx server graph — currently just the admin bootstrap command (C10),
// grounded on the pack's cobra root-command pattern (stacklok-toolhive's
// cmd/regup/app/root.go) rather than the teacher, which has no CLI.
package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/smallbiznis/auth-service/internal/config"
	"github.com/smallbiznis/auth-service/internal/credential"
	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// NewSeedCommand builds the "seed" subcommand: seed <email> <password>
// creates or promotes an admin user and a paired "Admin Dashboard"
// application, idempotently (§6 C10, §8 invariant 7).
func NewSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <email> <password>",
		Short: "Create or promote the admin user and its dashboard application",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), args[0], args[1])
		},
	}
}

func runSeed(ctx context.Context, email, password string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pool, err := pgxpool.New(connectCtx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	store := repository.NewStore(pool)
	users := repository.NewPostgresUserRepo()
	accounts := repository.NewPostgresAccountRepo()
	apps := repository.NewPostgresApplicationRepo()

	q := store.Q()

	existing, err := users.GetByEmail(ctx, q, email)
	if err == nil {
		if existing.Role == domain.RoleAdmin {
			fmt.Println("already_admin")
			return nil
		}
		existing.Role = domain.RoleAdmin
		if err := users.Update(ctx, q, existing); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
		logger.Info("promoted_to_admin", zap.String("email", email))
		fmt.Println("promoted_to_admin")
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("lookup user: %w", err)
	}

	hash, err := credential.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	var appSecret string
	if _, err := apps.GetByName(ctx, q, "Admin Dashboard"); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("lookup admin app: %w", err)
		}
		app, secret, err := newAdminApp(ctx, q, apps)
		if err != nil {
			return err
		}
		appSecret = secret
		logger.Info("admin_app_created", zap.String("client_id", app.ClientID))
	}

	emailCopy := email
	var createdUser domain.User
	txErr := store.WithTx(ctx, func(q repository.Querier) error {
		var err error
		createdUser, err = users.Create(ctx, q, domain.User{
			Email:         &emailCopy,
			Name:          "Admin",
			EmailVerified: true,
			Role:          domain.RoleAdmin,
			IsActive:      true,
		})
		if err != nil {
			return err
		}
		_, err = accounts.Create(ctx, q, domain.Account{
			UserID:            createdUser.ID,
			ProviderID:        "password",
			ProviderAccountID: &emailCopy,
			Credential:        &hash,
		})
		return err
	})
	if txErr != nil {
		return fmt.Errorf("create admin user: %w", txErr)
	}

	logger.Info("admin_created", zap.String("email", email), zap.String("user_id", createdUser.ID))
	fmt.Println("admin_created")
	if appSecret != "" {
		fmt.Printf("admin_app_client_secret=%s\n", appSecret)
	}
	return nil
}

func newAdminApp(ctx context.Context, q repository.Querier, apps repository.ApplicationRepository) (domain.Application, string, error) {
	secret, err := credential.NewRefreshToken(32)
	if err != nil {
		return domain.Application{}, "", fmt.Errorf("generate client secret: %w", err)
	}
	hash, err := credential.HashClientSecret(secret)
	if err != nil {
		return domain.Application{}, "", fmt.Errorf("hash client secret: %w", err)
	}

	app, err := apps.Create(ctx, q, domain.Application{
		Name:             "Admin Dashboard",
		ClientID:         "admin-dashboard",
		ClientSecretHash: hash,
		RedirectURIs:     []string{"http://localhost:5173/callback"},
		AllowedScopes:    []string{"profile", "admin"},
		IsActive:         true,
	})
	if err != nil {
		return domain.Application{}, "", fmt.Errorf("create admin app: %w", err)
	}
	return app, secret, nil
}

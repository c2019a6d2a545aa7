package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/auth-service/internal/cli"
	"github.com/smallbiznis/auth-service/internal/config"
	"github.com/smallbiznis/auth-service/internal/engine"
	httptransport "github.com/smallbiznis/auth-service/internal/http"
	"github.com/smallbiznis/auth-service/internal/http/handler"
	"github.com/smallbiznis/auth-service/internal/jwt"
	"github.com/smallbiznis/auth-service/internal/migrations"
	"github.com/smallbiznis/auth-service/internal/provider"
	"github.com/smallbiznis/auth-service/internal/ratelimit"
	"github.com/smallbiznis/auth-service/internal/repository"
	"github.com/smallbiznis/auth-service/internal/server"
	"github.com/smallbiznis/auth-service/internal/telemetry"
)

func main() {
	root := &cobra.Command{
		Use:   "auth-service",
		Short: "OAuth2 authorization server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			runServer()
			return nil
		},
	}
	root.AddCommand(cli.NewSeedCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer() {
	app := fx.New(
		fx.Provide(
			newConfig,
			newLogger,
			newTelemetry,
			newPGXPool,
			newStore,
			newApplicationRepository,
			newAppProviderRepository,
			newUserRepository,
			newAccountRepository,
			newAuthorizationCodeRepository,
			newRefreshTokenRepository,
			newKeyStore,
			newTokenGenerator,
			newProviderFactory,
			newTokenEngine,
			engine.NewAuthorizationCodeEngine,
			engine.NewAccountEngine,
			engine.NewAuthEngine,
			newRateLimiters,
			handler.NewAuthHandler,
			handler.NewOAuthHandler,
			handler.NewUserHandler,
			handler.NewAdminHandler,
			handler.NewWellKnownHandler,
			newRouterDeps,
			newHTTPServer,
		),
		fx.Invoke(runMigrations, keepAlive),
	)

	app.Run()
}

func newConfig() (config.Config, error) {
	return config.Load()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.Environment == "development" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)
	return logger, nil
}

func newTelemetry(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) (*telemetry.Provider, error) {
	provider, err := telemetry.New(context.Background(), cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			return provider.Shutdown(stopCtx)
		},
	})

	return provider, nil
}

func newPGXPool(lc fx.Lifecycle, cfg config.Config) (*pgxpool.Pool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			pool.Close()
			return nil
		},
	})

	return pool, nil
}

// runMigrations applies the embedded schema before the HTTP server starts
// accepting traffic, ahead of newHTTPServer's own OnStart in the fx
// lifecycle (fx runs OnStart hooks in registration order).
func runMigrations(lc fx.Lifecycle, cfg config.Config, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := migrations.Run(ctx, cfg.DatabaseURL); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
			logger.Info("migrations applied")
			return nil
		},
	})
}

// newStore is provided as the repository.TxRunner interface, not the
// concrete *repository.Store — fx matches constructors by a provider's
// declared return type, and every downstream constructor below asks for
// the interface.
func newStore(pool *pgxpool.Pool) repository.TxRunner {
	return repository.NewStore(pool)
}

func newApplicationRepository() repository.ApplicationRepository {
	return repository.NewPostgresApplicationRepo()
}

func newAppProviderRepository() repository.AppProviderRepository {
	return repository.NewPostgresAppProviderRepo()
}

func newUserRepository() repository.UserRepository {
	return repository.NewPostgresUserRepo()
}

func newAccountRepository() repository.AccountRepository {
	return repository.NewPostgresAccountRepo()
}

func newAuthorizationCodeRepository() repository.AuthorizationCodeRepository {
	return repository.NewPostgresAuthorizationCodeRepo()
}

func newRefreshTokenRepository() repository.RefreshTokenRepository {
	return repository.NewPostgresRefreshTokenRepo()
}

func newKeyStore(cfg config.Config) (*jwt.KeyStore, error) {
	return jwt.LoadKeyStore(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath)
}

func newTokenGenerator(keys *jwt.KeyStore, cfg config.Config) *jwt.Generator {
	return jwt.NewGenerator(keys, cfg.JWTIssuer, cfg.AccessTokenTTL)
}

// newProviderFactory registers every production AuthProvider variant.
// provider.TestProvider is deliberately excluded — its own doc comment
// marks it test-only wiring, never registered outside tests.
func newProviderFactory() *provider.Factory {
	return provider.NewFactory(
		provider.PasswordProvider{},
		provider.NewWeChatProvider(),
	)
}

func newTokenEngine(
	store repository.TxRunner,
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	refreshTokens repository.RefreshTokenRepository,
	generator *jwt.Generator,
	cfg config.Config,
	logger *zap.Logger,
) *engine.TokenEngine {
	return engine.NewTokenEngine(store, apps, users, refreshTokens, generator, cfg.RefreshTokenBytes, cfg.RefreshTokenTTL, logger)
}

func newRateLimiters(cfg config.Config) httptransport.RateLimiters {
	return httptransport.RateLimiters{
		Auth:  ratelimit.New(cfg.RateLimitAuthRPM),
		OAuth: ratelimit.New(cfg.RateLimitOAuthRPM),
		User:  ratelimit.New(cfg.RateLimitUserRPM),
		Admin: ratelimit.New(cfg.RateLimitAdminRPM),
	}
}

func newRouterDeps(
	apps repository.ApplicationRepository,
	users repository.UserRepository,
	store repository.TxRunner,
	generator *jwt.Generator,
	limiters httptransport.RateLimiters,
	authHandler *handler.AuthHandler,
	oauthHandler *handler.OAuthHandler,
	userHandler *handler.UserHandler,
	adminHandler *handler.AdminHandler,
	wellKnownHandler *handler.WellKnownHandler,
	cfg config.Config,
	logger *zap.Logger,
) httptransport.Deps {
	return httptransport.Deps{
		Apps:      apps,
		Users:     users,
		Store:     store,
		Generator: generator,
		Limiters:  limiters,
		Handlers: httptransport.Handlers{
			Auth:      authHandler,
			OAuth:     oauthHandler,
			User:      userHandler,
			Admin:     adminHandler,
			WellKnown: wellKnownHandler,
		},
		ServiceName: cfg.ServiceName,
		CORSOrigins: cfg.CORSAllowedOrigins,
		Logger:      logger,
	}
}

func newHTTPServer(lc fx.Lifecycle, deps httptransport.Deps, cfg config.Config, logger *zap.Logger) *server.HTTPServer {
	router := httptransport.NewRouter(deps)
	addr := cfg.ServerHost + ":" + cfg.ServerPort
	return server.New(lc, addr, router, logger)
}

func keepAlive(*server.HTTPServer) {}

// Package http wires the gin engine: middleware chain, route groups, and
// handler bindings, grounded on the teacher's internal/http/router.go
// (Recovery -> request logging -> CORS -> otelgin globally, then each route
// group's rate limiter -> extractor -> handlers, mounted in that order).
package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/smallbiznis/auth-service/internal/http/handler"
	"github.com/smallbiznis/auth-service/internal/http/middleware"
	"github.com/smallbiznis/auth-service/internal/jwt"
	"github.com/smallbiznis/auth-service/internal/ratelimit"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// RateLimiters bundles the four tiered limiters §4.9 requires, one per route group.
type RateLimiters struct {
	Auth  *ratelimit.Limiter
	OAuth *ratelimit.Limiter
	User  *ratelimit.Limiter
	Admin *ratelimit.Limiter
}

// Handlers bundles every handler group the router mounts.
type Handlers struct {
	Auth      *handler.AuthHandler
	OAuth     *handler.OAuthHandler
	User      *handler.UserHandler
	Admin     *handler.AdminHandler
	WellKnown *handler.WellKnownHandler
}

// Deps bundles what NewRouter needs to build the extractor middleware.
type Deps struct {
	Apps        repository.ApplicationRepository
	Users       repository.UserRepository
	Store       repository.TxRunner
	Generator   *jwt.Generator
	Limiters    RateLimiters
	Handlers    Handlers
	ServiceName string
	CORSOrigins []string
	Logger      *zap.Logger
}

// NewRouter builds the gin engine per §6's route table.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(d.Logger))
	r.Use(middleware.CORS(d.CORSOrigins))
	r.Use(otelgin.Middleware(d.ServiceName))

	r.GET("/health", d.Handlers.WellKnown.Health)
	r.GET("/.well-known/jwks.json", d.Handlers.WellKnown.JWKS)

	authenticatedUser := middleware.AuthenticatedUser(d.Generator, d.Users, d.Store)
	clientApp := middleware.ClientApp(d.Apps, d.Store)
	authenticatedApp := middleware.AuthenticatedApp(d.Apps, d.Store)
	adminAuth := middleware.AdminAuth(d.Generator, d.Users, d.Store)

	admin := r.Group("/admin", d.Limiters.Admin.Handler(), adminAuth)
	{
		admin.GET("/applications", d.Handlers.Admin.ListApplications)
		admin.POST("/applications", d.Handlers.Admin.CreateApplication)
		admin.PATCH("/applications/:id", d.Handlers.Admin.UpdateApplication)
		admin.POST("/applications/:id/rotate-secret", d.Handlers.Admin.RotateSecret)
		admin.GET("/applications/:id/providers", d.Handlers.Admin.ListProviders)
		admin.POST("/applications/:id/providers", d.Handlers.Admin.CreateProvider)
		admin.DELETE("/applications/:id/providers/:provider_id", d.Handlers.Admin.DeleteProvider)
		admin.GET("/users", d.Handlers.Admin.ListUsers)
		admin.POST("/users", d.Handlers.Admin.CreateUser)
		admin.GET("/users/:id", d.Handlers.Admin.GetUser)
		admin.PATCH("/users/:id", d.Handlers.Admin.UpdateUser)
		admin.GET("/users/:id/accounts", d.Handlers.Admin.ListUserAccounts)
		admin.DELETE("/users/:id/accounts/:provider_id", d.Handlers.Admin.DeleteUserAccount)
		admin.GET("/stats", d.Handlers.Admin.Stats)
	}

	auth := r.Group("/api/auth", d.Limiters.Auth.Handler(), clientApp)
	{
		auth.POST("/register", d.Handlers.Auth.Register)
		auth.POST("/login", d.Handlers.Auth.Login)
		auth.POST("/refresh", d.Handlers.Auth.Refresh)
		auth.POST("/logout", d.Handlers.Auth.Logout)
	}

	users := r.Group("/api/users", d.Limiters.User.Handler(), authenticatedUser)
	{
		users.GET("/me", d.Handlers.User.Me)
		users.GET("/me/accounts", d.Handlers.User.MeAccounts)
		users.DELETE("/me/accounts/:provider_id", d.Handlers.User.UnlinkAccount)
		users.POST("/me/accounts/:provider_id/link", d.Handlers.User.LinkAccount)
	}

	oauth := r.Group("/oauth", d.Limiters.OAuth.Handler())
	{
		oauth.POST("/token", authenticatedApp, d.Handlers.OAuth.Token)
		oauth.POST("/revoke", authenticatedApp, d.Handlers.OAuth.Revoke)
		oauth.POST("/introspect", authenticatedApp, d.Handlers.OAuth.Introspect)
		oauth.GET("/authorize", authenticatedUser, d.Handlers.OAuth.Authorize)
	}

	return r
}

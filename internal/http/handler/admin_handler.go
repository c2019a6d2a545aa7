package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/credential"
	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// AdminHandler implements /admin/* — Admin-JWT-gated application, provider,
// and user management plus aggregate stats (§6).
type AdminHandler struct {
	apps         repository.ApplicationRepository
	appProviders repository.AppProviderRepository
	users        repository.UserRepository
	accounts     repository.AccountRepository
	store        repository.TxRunner
}

// NewAdminHandler builds an AdminHandler.
func NewAdminHandler(apps repository.ApplicationRepository, appProviders repository.AppProviderRepository, users repository.UserRepository, accounts repository.AccountRepository, store repository.TxRunner) *AdminHandler {
	return &AdminHandler{apps: apps, appProviders: appProviders, users: users, accounts: accounts, store: store}
}

// ListApplications handles GET /admin/applications.
func (h *AdminHandler) ListApplications(c *gin.Context) {
	apps, err := h.apps.ListAll(c.Request.Context(), h.store.Q())
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "list_applications_failed", err))
		return
	}
	out := make([]gin.H, 0, len(apps))
	for _, a := range apps {
		out = append(out, applicationResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"applications": out})
}

type createApplicationRequest struct {
	Name          string   `json:"name" binding:"required"`
	RedirectURIs  []string `json:"redirect_uris"`
	AllowedScopes []string `json:"allowed_scopes"`
}

// CreateApplication handles POST /admin/applications. The generated client
// secret is returned exactly once, in this response.
func (h *AdminHandler) CreateApplication(c *gin.Context) {
	var req createApplicationRequest
	if !bindJSON(c, &req) {
		return
	}

	clientID := uuid.NewString()
	secret, hash, err := newClientSecret()
	if err != nil {
		respondError(c, err)
		return
	}

	created, err := h.apps.Create(c.Request.Context(), h.store.Q(), domain.Application{
		Name:             req.Name,
		ClientID:         clientID,
		ClientSecretHash: hash,
		RedirectURIs:     req.RedirectURIs,
		AllowedScopes:    req.AllowedScopes,
		IsActive:         true,
	})
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "create_application_failed", err))
		return
	}

	resp := applicationResponse(created)
	resp["client_secret"] = secret
	c.JSON(http.StatusCreated, resp)
}

type updateApplicationRequest struct {
	Name          *string  `json:"name"`
	RedirectURIs  []string `json:"redirect_uris"`
	AllowedScopes []string `json:"allowed_scopes"`
	IsActive      *bool    `json:"is_active"`
}

// UpdateApplication handles PATCH /admin/applications/:id.
func (h *AdminHandler) UpdateApplication(c *gin.Context) {
	app, err := h.apps.GetByID(c.Request.Context(), h.store.Q(), c.Param("id"))
	if err != nil {
		respondError(c, apperr.New(apperr.NotFound, "application_not_found", "No application with that id."))
		return
	}

	var req updateApplicationRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		app.Name = *req.Name
	}
	if req.RedirectURIs != nil {
		app.RedirectURIs = req.RedirectURIs
	}
	if req.AllowedScopes != nil {
		app.AllowedScopes = req.AllowedScopes
	}
	if req.IsActive != nil {
		app.IsActive = *req.IsActive
	}
	app.UpdatedAt = time.Now().UTC()

	if err := h.apps.Update(c.Request.Context(), h.store.Q(), app); err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "update_application_failed", err))
		return
	}
	c.JSON(http.StatusOK, applicationResponse(app))
}

// RotateSecret handles POST /admin/applications/:id/rotate-secret. The new
// secret is returned exactly once, in this response.
func (h *AdminHandler) RotateSecret(c *gin.Context) {
	app, err := h.apps.GetByID(c.Request.Context(), h.store.Q(), c.Param("id"))
	if err != nil {
		respondError(c, apperr.New(apperr.NotFound, "application_not_found", "No application with that id."))
		return
	}

	secret, hash, err := newClientSecret()
	if err != nil {
		respondError(c, err)
		return
	}
	app.ClientSecretHash = hash
	app.UpdatedAt = time.Now().UTC()

	if err := h.apps.Update(c.Request.Context(), h.store.Q(), app); err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "rotate_secret_failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"client_secret": secret})
}

func newClientSecret() (secret, hash string, err error) {
	secret, err = credential.NewRefreshToken(32)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Internal, "generate_secret_failed", err)
	}
	hash, err = credential.HashClientSecret(secret)
	if err != nil {
		return "", "", apperr.Wrap(apperr.Internal, "hash_secret_failed", err)
	}
	return secret, hash, nil
}

// ListProviders handles GET /admin/applications/:id/providers.
func (h *AdminHandler) ListProviders(c *gin.Context) {
	providers, err := h.appProviders.ListByApp(c.Request.Context(), h.store.Q(), c.Param("id"))
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "list_providers_failed", err))
		return
	}
	out := make([]gin.H, 0, len(providers))
	for _, p := range providers {
		out = append(out, appProviderResponse(p))
	}
	c.JSON(http.StatusOK, gin.H{"providers": out})
}

type createProviderRequest struct {
	ProviderID string         `json:"provider_id" binding:"required"`
	Config     map[string]any `json:"config"`
	IsActive   *bool          `json:"is_active"`
}

// CreateProvider handles POST /admin/applications/:id/providers.
func (h *AdminHandler) CreateProvider(c *gin.Context) {
	var req createProviderRequest
	if !bindJSON(c, &req) {
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	created, err := h.appProviders.Create(c.Request.Context(), h.store.Q(), domain.AppProvider{
		AppID:      c.Param("id"),
		ProviderID: req.ProviderID,
		Config:     req.Config,
		IsActive:   isActive,
	})
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "create_provider_failed", err))
		return
	}
	c.JSON(http.StatusCreated, appProviderResponse(created))
}

// DeleteProvider handles DELETE /admin/applications/:id/providers/:provider_id.
func (h *AdminHandler) DeleteProvider(c *gin.Context) {
	if err := h.appProviders.Delete(c.Request.Context(), h.store.Q(), c.Param("id"), c.Param("provider_id")); err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "delete_provider_failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func appProviderResponse(p domain.AppProvider) gin.H {
	return gin.H{
		"id":          p.ID,
		"provider_id": p.ProviderID,
		"config":      p.Config,
		"is_active":   p.IsActive,
	}
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	users, err := h.users.List(c.Request.Context(), h.store.Q(), c.Query("search"), page, perPage)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "list_users_failed", err))
		return
	}
	out := make([]gin.H, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse(u))
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

type createUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// CreateUser handles POST /admin/users.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if !bindJSON(c, &req) {
		return
	}
	role := domain.RoleUser
	if req.Role == domain.RoleAdmin {
		role = domain.RoleAdmin
	}
	var email *string
	if req.Email != "" {
		email = &req.Email
	}

	var created domain.User
	err := h.store.WithTx(c.Request.Context(), func(q repository.Querier) error {
		u, err := h.users.Create(c.Request.Context(), q, domain.User{
			Email:    email,
			Name:     req.Name,
			Role:     role,
			IsActive: true,
		})
		if err != nil {
			return err
		}
		if req.Password != "" {
			hash, err := credential.HashPassword(req.Password)
			if err != nil {
				return err
			}
			if _, err := h.accounts.Create(c.Request.Context(), q, domain.Account{
				UserID:     u.ID,
				ProviderID: "password",
				Credential: &hash,
			}); err != nil {
				return err
			}
		}
		created = u
		return nil
	})
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "create_user_failed", err))
		return
	}
	c.JSON(http.StatusCreated, userResponse(created))
}

// GetUser handles GET /admin/users/:id.
func (h *AdminHandler) GetUser(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), h.store.Q(), c.Param("id"))
	if err != nil {
		respondError(c, apperr.New(apperr.NotFound, "user_not_found", "No user with that id."))
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

type updateUserRequest struct {
	Name     *string `json:"name"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// UpdateUser handles PATCH /admin/users/:id.
func (h *AdminHandler) UpdateUser(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), h.store.Q(), c.Param("id"))
	if err != nil {
		respondError(c, apperr.New(apperr.NotFound, "user_not_found", "No user with that id."))
		return
	}

	var req updateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.Name != nil {
		user.Name = *req.Name
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}
	user.UpdatedAt = time.Now().UTC()

	if err := h.users.Update(c.Request.Context(), h.store.Q(), user); err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "update_user_failed", err))
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// ListUserAccounts handles GET /admin/users/:id/accounts.
func (h *AdminHandler) ListUserAccounts(c *gin.Context) {
	accounts, err := h.accounts.ListByUser(c.Request.Context(), h.store.Q(), c.Param("id"))
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "list_user_accounts_failed", err))
		return
	}
	out := make([]gin.H, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

// DeleteUserAccount handles DELETE /admin/users/:id/accounts/:provider_id,
// enforcing the same lower bound as the self-service unlink (§8 invariant 8).
func (h *AdminHandler) DeleteUserAccount(c *gin.Context) {
	userID := c.Param("id")

	count, err := h.accounts.CountByUser(c.Request.Context(), h.store.Q(), userID)
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "count_user_accounts_failed", err))
		return
	}
	if count <= 1 {
		respondError(c, apperr.ErrCannotUnlinkLast)
		return
	}
	if err := h.accounts.Delete(c.Request.Context(), h.store.Q(), userID, c.Param("provider_id")); err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "delete_user_account_failed", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats handles GET /admin/stats (supplementing the distilled spec, §6).
func (h *AdminHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()

	totalApps, err := h.apps.CountAll(ctx, h.store.Q())
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "stats_failed", err))
		return
	}
	activeApps, err := h.apps.CountActive(ctx, h.store.Q())
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "stats_failed", err))
		return
	}
	totalUsers, err := h.users.CountAll(ctx, h.store.Q())
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "stats_failed", err))
		return
	}
	recentUsers, err := h.users.CountCreatedSince(ctx, h.store.Q(), time.Now().UTC().AddDate(0, 0, -7))
	if err != nil {
		respondError(c, apperr.Wrap(apperr.Database, "stats_failed", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"applications": gin.H{
			"total":    totalApps,
			"active":   activeApps,
			"inactive": totalApps - activeApps,
		},
		"users": gin.H{
			"total":  totalUsers,
			"recent": recentUsers,
		},
	})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/engine"
	httpmiddleware "github.com/smallbiznis/auth-service/internal/http/middleware"
	"github.com/smallbiznis/auth-service/internal/provider"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// UserHandler implements /api/users/* — Bearer-JWT-authenticated end-user
// self-service, including the account-linking flow (C12, §6).
type UserHandler struct {
	apps     repository.ApplicationRepository
	store    repository.TxRunner
	accounts *engine.AccountEngine
}

// NewUserHandler builds a UserHandler.
func NewUserHandler(apps repository.ApplicationRepository, store repository.TxRunner, accounts *engine.AccountEngine) *UserHandler {
	return &UserHandler{apps: apps, store: store, accounts: accounts}
}

// Me handles GET /api/users/me.
func (h *UserHandler) Me(c *gin.Context) {
	user, ok := httpmiddleware.GetAuthenticatedUser(c)
	if !ok {
		respondError(c, apperr.ErrUnauthorized)
		return
	}
	c.JSON(http.StatusOK, userResponse(user))
}

// MeAccounts handles GET /api/users/me/accounts.
func (h *UserHandler) MeAccounts(c *gin.Context) {
	user, ok := httpmiddleware.GetAuthenticatedUser(c)
	if !ok {
		respondError(c, apperr.ErrUnauthorized)
		return
	}

	accounts, err := h.accounts.List(c.Request.Context(), user.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]gin.H, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse(a))
	}
	c.JSON(http.StatusOK, gin.H{"accounts": out})
}

type linkAccountRequest struct {
	AccountID  string `json:"account_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
	JSCode     string `json:"js_code"`
}

// LinkAccount handles POST /api/users/me/accounts/:provider_id/link (§4.10).
// The requesting application is resolved from the access token's aud claim
// rather than an X-Client-Id header — /api/users/* authenticates via Bearer
// JWT only, and aud embeds client_id exactly so handlers can check it
// explicitly when needed (§4.4, §9).
func (h *UserHandler) LinkAccount(c *gin.Context) {
	user, ok := httpmiddleware.GetAuthenticatedUser(c)
	if !ok {
		respondError(c, apperr.ErrUnauthorized)
		return
	}
	claims, ok := httpmiddleware.GetAccessClaims(c)
	if !ok {
		respondError(c, apperr.ErrUnauthorized)
		return
	}
	app, err := h.apps.GetByClientID(c.Request.Context(), h.store.Q(), claims.Audience)
	if err != nil {
		respondError(c, apperr.ErrInvalidClient)
		return
	}

	providerID := c.Param("provider_id")

	var req linkAccountRequest
	if !bindJSON(c, &req) {
		return
	}

	var credentialValue any
	switch providerID {
	case "password":
		credentialValue = provider.PasswordCredential{Identifier: req.Identifier, Password: req.Password}
	case "wechat":
		credentialValue = provider.WeChatCredential{JSCode: req.JSCode}
	default:
		credentialValue = provider.TestCredential{AccountID: req.AccountID, Email: req.Email, Name: req.Name}
	}

	account, err := h.accounts.Link(c.Request.Context(), app, user.ID, providerID, credentialValue)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, accountResponse(account))
}

// UnlinkAccount handles DELETE /api/users/me/accounts/:provider_id (§4.10, §8 invariant 8).
func (h *UserHandler) UnlinkAccount(c *gin.Context) {
	user, ok := httpmiddleware.GetAuthenticatedUser(c)
	if !ok {
		respondError(c, apperr.ErrUnauthorized)
		return
	}
	providerID := c.Param("provider_id")
	if err := h.accounts.Unlink(c.Request.Context(), user.ID, providerID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

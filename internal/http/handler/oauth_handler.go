package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/engine"
	httpmiddleware "github.com/smallbiznis/auth-service/internal/http/middleware"
	"github.com/smallbiznis/auth-service/internal/repository"
)

// OAuthHandler implements /oauth/* — redemption, revocation, and
// introspection (C6/C7), plus the Bearer-authenticated authorize-mint
// endpoint resolved in §6's open question.
type OAuthHandler struct {
	apps  repository.ApplicationRepository
	store repository.TxRunner
	codes *engine.AuthorizationCodeEngine
	token *engine.TokenEngine
}

// NewOAuthHandler builds an OAuthHandler.
func NewOAuthHandler(apps repository.ApplicationRepository, store repository.TxRunner, codes *engine.AuthorizationCodeEngine, token *engine.TokenEngine) *OAuthHandler {
	return &OAuthHandler{apps: apps, store: store, codes: codes, token: token}
}

// Token handles POST /oauth/token, dispatching on grant_type (§4.6, §4.7).
func (h *OAuthHandler) Token(c *gin.Context) {
	app, ok := httpmiddleware.GetClientApp(c)
	if !ok {
		respondError(c, apperr.ErrInvalidClient)
		return
	}

	switch c.PostForm("grant_type") {
	case "authorization_code":
		_, clientSecret, _ := httpmiddleware.BasicAuth(c)
		code := c.PostForm("code")
		redirectURI := c.PostForm("redirect_uri")
		codeVerifier := c.PostForm("code_verifier")

		pair, err := h.codes.Redeem(c.Request.Context(), code, app.ClientID, clientSecret, redirectURI, codeVerifier)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tokenResponse(pair))

	case "refresh_token":
		refreshToken := c.PostForm("refresh_token")

		pair, err := h.token.Refresh(c.Request.Context(), refreshToken, app.ClientID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, tokenResponse(pair))

	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":             "unsupported_grant_type",
			"error_description": "grant_type must be authorization_code or refresh_token.",
		})
	}
}

type revokeRequest struct {
	Token string `json:"token" binding:"required"`
}

// Revoke handles POST /oauth/revoke. Always 200 per RFC 7009 (§4.6 revoke).
func (h *OAuthHandler) Revoke(c *gin.Context) {
	var req revokeRequest
	if !bindJSON(c, &req) {
		return
	}
	_ = h.token.Revoke(c.Request.Context(), req.Token)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type introspectRequest struct {
	Token string `json:"token" binding:"required"`
}

// Introspect handles POST /oauth/introspect (§4.6 introspect).
func (h *OAuthHandler) Introspect(c *gin.Context) {
	var req introspectRequest
	if !bindJSON(c, &req) {
		return
	}

	result := h.token.Introspect(c.Request.Context(), req.Token)
	if !result.Active {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"active": true,
		"sub":    result.Sub,
		"aud":    result.Aud,
		"scopes": result.Scopes,
		"role":   result.Role,
		"exp":    result.Exp,
		"iat":    result.Iat,
	})
}

// Authorize handles GET /oauth/authorize: mints an authorization code for
// the already-authenticated caller and redirects to redirect_uri with the
// code and state (§6).
func (h *OAuthHandler) Authorize(c *gin.Context) {
	user, ok := httpmiddleware.GetAuthenticatedUser(c)
	if !ok {
		respondError(c, apperr.ErrUnauthorized)
		return
	}

	clientID := c.Query("client_id")
	redirectURI := c.Query("redirect_uri")
	state := c.Query("state")
	scopes := splitScopes(c.Query("scope"))
	codeChallenge := c.Query("code_challenge")
	codeChallengeMethod := c.Query("code_challenge_method")

	app, err := h.apps.GetByClientID(c.Request.Context(), h.store.Q(), clientID)
	if err != nil {
		respondError(c, apperr.ErrInvalidClient)
		return
	}
	if !app.IsActive {
		respondError(c, apperr.ErrAppDisabled)
		return
	}

	code, err := h.codes.Mint(c.Request.Context(), user, app, redirectURI, scopes, codeChallenge, codeChallengeMethod)
	if err != nil {
		respondError(c, err)
		return
	}

	location, err := url.Parse(redirectURI)
	if err != nil {
		respondError(c, apperr.New(apperr.BadRequest, "invalid_redirect_uri", "redirect_uri is not a valid URL."))
		return
	}
	q := location.Query()
	q.Set("code", code)
	if state != "" {
		q.Set("state", state)
	}
	location.RawQuery = q.Encode()
	c.Redirect(http.StatusFound, location.String())
}

func splitScopes(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Fields(raw)
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/engine"
	httpmiddleware "github.com/smallbiznis/auth-service/internal/http/middleware"
)

// AuthHandler implements /api/auth/* — the non-standard X-Client-Id-scoped
// password grant (§1 item 1, §6).
type AuthHandler struct {
	auth  *engine.AuthEngine
	token *engine.TokenEngine
}

// NewAuthHandler builds an AuthHandler.
func NewAuthHandler(auth *engine.AuthEngine, token *engine.TokenEngine) *AuthHandler {
	return &AuthHandler{auth: auth, token: token}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *gin.Context) {
	app, ok := httpmiddleware.GetClientApp(c)
	if !ok {
		respondError(c, apperr.ErrInvalidClient)
		return
	}
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	user, pair, err := h.auth.Register(c.Request.Context(), app, req.Email, req.Password, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := tokenResponse(pair)
	resp["user"] = userResponse(user)
	c.JSON(http.StatusCreated, resp)
}

type loginRequest struct {
	Email    string  `json:"email" binding:"required"`
	Password string  `json:"password" binding:"required"`
	DeviceID *string `json:"device_id"`
}

// Login handles POST /api/auth/login (§8 S1).
func (h *AuthHandler) Login(c *gin.Context) {
	app, ok := httpmiddleware.GetClientApp(c)
	if !ok {
		respondError(c, apperr.ErrInvalidClient)
		return
	}
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	user, pair, err := h.auth.Login(c.Request.Context(), app, req.Email, req.Password, req.DeviceID)
	if err != nil {
		respondError(c, err)
		return
	}
	resp := tokenResponse(pair)
	resp["user"] = userResponse(user)
	c.JSON(http.StatusOK, resp)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh handles POST /api/auth/refresh (§8 S2).
func (h *AuthHandler) Refresh(c *gin.Context) {
	app, ok := httpmiddleware.GetClientApp(c)
	if !ok {
		respondError(c, apperr.ErrInvalidClient)
		return
	}
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.token.Refresh(c.Request.Context(), req.RefreshToken, app.ClientID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse(pair))
}

type logoutRequest struct {
	RefreshToken string  `json:"refresh_token" binding:"required"`
	DeviceID     *string `json:"device_id"`
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req logoutRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.token.LogoutByRefreshToken(c.Request.Context(), req.RefreshToken, req.DeviceID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

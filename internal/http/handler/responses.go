// Package handler implements the HTTP handler surface (C9) — one file per
// resource group, grounded on the teacher's internal/http/handler/auth_handler.go
// (struct-of-service-dependencies handlers, gin.H{"error", "error_description"}
// JSON error shape, grant-type switch in the token endpoint).
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/engine"
)

// respondError maps any error returned by an engine call to the JSON shape
// every handler in this package uses: {error, error_description} for a
// typed *apperr.Error, or an opaque 500 otherwise.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(appErr.Status(), gin.H{"error": appErr.Code, "error_description": appErr.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "error_description": "An internal error occurred."})
}

func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "error_description": err.Error()})
		return false
	}
	return true
}

func tokenResponse(pair engine.TokenPair) gin.H {
	return gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"token_type":    pair.TokenType,
		"expires_in":    pair.ExpiresIn,
	}
}

func userResponse(user domain.User) gin.H {
	return gin.H{
		"id":             user.ID,
		"email":          user.Email,
		"name":           user.Name,
		"avatar_url":     user.AvatarURL,
		"email_verified": user.EmailVerified,
		"role":           user.Role,
		"is_active":      user.IsActive,
		"created_at":     user.CreatedAt,
		"updated_at":     user.UpdatedAt,
	}
}

func accountResponse(acc domain.Account) gin.H {
	return gin.H{
		"id":                  acc.ID,
		"provider_id":         acc.ProviderID,
		"provider_account_id": acc.ProviderAccountID,
		"provider_metadata":   acc.ProviderMetadata,
		"created_at":          acc.CreatedAt,
	}
}

func applicationResponse(app domain.Application) gin.H {
	return gin.H{
		"id":             app.ID,
		"name":           app.Name,
		"client_id":      app.ClientID,
		"redirect_uris":  app.RedirectURIs,
		"allowed_scopes": app.AllowedScopes,
		"is_active":      app.IsActive,
		"created_at":     app.CreatedAt,
		"updated_at":     app.UpdatedAt,
	}
}

// Package middleware implements the request context extractors (C8), CORS
// policy, and request-logging gin middleware that sit ahead of the handler
// surface, grounded on the teacher's internal/http/middleware/auth.go
// (header parsing, gin.Context claim-binding) and internal/middleware/cors.go.
package middleware

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/auth-service/internal/apperr"
	"github.com/smallbiznis/auth-service/internal/credential"
	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/jwt"
	"github.com/smallbiznis/auth-service/internal/repository"
)

const (
	ctxAccessClaims = "access_claims"
	ctxAuthUser     = "authenticated_user"
	ctxClientApp    = "client_app"
)

// GetAccessClaims returns the decoded access-token claims bound by
// AuthenticatedUser or AdminAuth.
func GetAccessClaims(c *gin.Context) (jwt.AccessTokenClaims, bool) {
	v, ok := c.Get(ctxAccessClaims)
	if !ok {
		return jwt.AccessTokenClaims{}, false
	}
	claims, ok := v.(jwt.AccessTokenClaims)
	return claims, ok
}

// GetAuthenticatedUser returns the User bound by AuthenticatedUser or AdminAuth.
func GetAuthenticatedUser(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(ctxAuthUser)
	if !ok {
		return domain.User{}, false
	}
	u, ok := v.(domain.User)
	return u, ok
}

// GetClientApp returns the Application bound by ClientApp or AuthenticatedApp.
func GetClientApp(c *gin.Context) (domain.Application, bool) {
	v, ok := c.Get(ctxClientApp)
	if !ok {
		return domain.Application{}, false
	}
	app, ok := v.(domain.Application)
	return app, ok
}

// BearerToken extracts the token from an "Authorization: Bearer <jwt>" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

// BasicAuth extracts client_id/secret from an "Authorization: Basic <b64>" header.
func BasicAuth(c *gin.Context) (clientID, secret string, ok bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Basic") {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(parts[1]))
	if err != nil {
		return "", "", false
	}
	creds := strings.SplitN(string(decoded), ":", 2)
	if len(creds) != 2 {
		return "", "", false
	}
	return creds[0], creds[1], true
}

func abortError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.AbortWithStatusJSON(appErr.Status(), gin.H{"error": appErr.Code, "error_description": appErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "error_description": "An internal error occurred."})
}

// AuthenticatedUser requires a valid bearer access token naming an active user (§4.8).
func AuthenticatedUser(generator *jwt.Generator, users repository.UserRepository, store repository.TxRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c)
		if !ok {
			abortError(c, apperr.ErrUnauthorized)
			return
		}
		claims, err := generator.VerifyAccessToken(token)
		if err != nil {
			abortError(c, apperr.ErrInvalidToken)
			return
		}
		user, err := users.GetByID(c.Request.Context(), store.Q(), claims.Subject)
		if err != nil {
			abortError(c, apperr.ErrInvalidToken)
			return
		}
		if !user.IsActive {
			abortError(c, apperr.ErrUserDisabled)
			return
		}
		c.Set(ctxAccessClaims, claims)
		c.Set(ctxAuthUser, user)
		c.Next()
	}
}

// ClientApp requires header X-Client-Id naming an active application (§4.8).
func ClientApp(apps repository.ApplicationRepository, store repository.TxRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := c.GetHeader("X-Client-Id")
		if clientID == "" {
			abortError(c, apperr.New(apperr.BadRequest, "missing_client_id", "X-Client-Id header is required."))
			return
		}
		app, err := apps.GetByClientID(c.Request.Context(), store.Q(), clientID)
		if err != nil {
			abortError(c, apperr.ErrInvalidClient)
			return
		}
		if !app.IsActive {
			abortError(c, apperr.ErrAppDisabled)
			return
		}
		c.Set(ctxClientApp, app)
		c.Next()
	}
}

// AuthenticatedApp requires HTTP Basic client_id:secret against an active
// application whose secret hash verifies (§4.8).
func AuthenticatedApp(apps repository.ApplicationRepository, store repository.TxRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID, secret, ok := BasicAuth(c)
		if !ok {
			abortError(c, apperr.ErrInvalidClient)
			return
		}
		app, err := apps.GetByClientID(c.Request.Context(), store.Q(), clientID)
		if err != nil {
			abortError(c, apperr.ErrInvalidClient)
			return
		}
		if !app.IsActive {
			abortError(c, apperr.ErrAppDisabled)
			return
		}
		verified, err := credential.VerifyClientSecret(secret, app.ClientSecretHash)
		if err != nil || !verified {
			abortError(c, apperr.ErrInvalidClient)
			return
		}
		c.Set(ctxClientApp, app)
		c.Next()
	}
}

// AdminAuth runs AuthenticatedUser's checks and additionally requires
// claim role=="admin" (§4.8).
func AdminAuth(generator *jwt.Generator, users repository.UserRepository, store repository.TxRunner) gin.HandlerFunc {
	authenticated := AuthenticatedUser(generator, users, store)
	return func(c *gin.Context) {
		authenticated(c)
		if c.IsAborted() {
			return
		}
		claims, _ := GetAccessClaims(c)
		if claims.Role != domain.RoleAdmin {
			abortError(c, apperr.ErrNotAdmin)
			return
		}
		c.Next()
	}
}

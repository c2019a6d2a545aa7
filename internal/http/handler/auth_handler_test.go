package handler_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/auth-service/internal/domain"
	"github.com/smallbiznis/auth-service/internal/engine"
	httpHandler "github.com/smallbiznis/auth-service/internal/http/handler"
	"github.com/smallbiznis/auth-service/internal/jwt"
)

func newTestAuthHandler(t *testing.T, app domain.Application) (*httpHandler.AuthHandler, *fakeApplications, *fakeUsers) {
	t.Helper()
	privPath, pubPath := writeTestKeys(t)
	keys, err := jwt.LoadKeyStore(privPath, pubPath)
	require.NoError(t, err)
	generator := jwt.NewGenerator(keys, "auth-service", time.Hour)

	apps := newFakeApplications(app)
	users := newFakeUsers()
	accounts := newFakeAccounts()
	refreshTokens := newFakeRefreshTokens()
	store := fakeStore{}

	tokenEngine := engine.NewTokenEngine(store, apps, users, refreshTokens, generator, 32, 30*24*time.Hour, noopLogger())
	authEngine := engine.NewAuthEngine(store, users, accounts, tokenEngine, noopLogger())

	return httpHandler.NewAuthHandler(authEngine, tokenEngine), apps, users
}

func testApp() domain.Application {
	return domain.Application{
		ID:            "app-1",
		Name:          "Test App",
		ClientID:      "client-1",
		AllowedScopes: []string{"profile"},
		IsActive:      true,
	}
}

func TestRegisterCreatesUserAndIssuesTokens(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := testApp()
	h, _, _ := newTestAuthHandler(t, app)

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("client_app", app)
		c.Next()
	})
	r.POST("/api/auth/register", h.Register)

	body := `{"email":"new@example.com","password":"correct-horse","name":"New User"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "access_token")
	require.Contains(t, w.Body.String(), "new@example.com")
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := testApp()
	h, _, users := newTestAuthHandler(t, app)
	email := "taken@example.com"
	users.byEmail[email] = domain.User{ID: "user-existing", Email: &email, IsActive: true}
	users.byID["user-existing"] = users.byEmail[email]

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("client_app", app)
		c.Next()
	})
	r.POST("/api/auth/register", h.Register)

	body := `{"email":"taken@example.com","password":"correct-horse","name":"Dup"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "email_taken")
}

func TestLoginWithoutPasswordAccountFailsInvalidGrant(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := testApp()
	h, _, users := newTestAuthHandler(t, app)

	email := "login@example.com"
	users.byEmail[email] = domain.User{ID: "user-login", Email: &email, IsActive: true, Role: domain.RoleUser}
	users.byID["user-login"] = users.byEmail[email]

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("client_app", app)
		c.Next()
	})
	r.POST("/api/auth/login", h.Login)

	body := `{"email":"login@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	// No password account exists yet for this fake user, so login must fail
	// with invalid_grant rather than panicking on a missing credential.
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid_grant")
}

func TestLogoutIsIdempotentForUnknownRefreshToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	app := testApp()
	h, _, _ := newTestAuthHandler(t, app)

	r := gin.New()
	r.POST("/api/auth/logout", h.Logout)

	body := `{"refresh_token":"never-issued"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
}

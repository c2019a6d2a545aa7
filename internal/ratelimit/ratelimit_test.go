package ratelimit_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/auth-service/internal/ratelimit"
)

func TestAllowWithinBurst(t *testing.T) {
	l := ratelimit.New(60)
	require.True(t, l.Allow("client-a"))
}

func TestAllowExhaustsBucketPerKey(t *testing.T) {
	l := ratelimit.New(1)
	require.True(t, l.Allow("client-a"))
	require.False(t, l.Allow("client-a"))
	// a distinct key gets its own bucket
	require.True(t, l.Allow("client-b"))
}

func TestHandlerReturns429WhenExhausted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := ratelimit.New(1)

	r := gin.New()
	r.Use(l.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Real-IP", "203.0.113.9")

	w1 := httptest.NewRecorder()
	r.ServeHTTP(w1, req)
	require.Equal(t, http.StatusOK, w1.Code)

	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusTooManyRequests, w2.Code)
	require.Contains(t, w2.Body.String(), "rate_limited")
}

func TestHandlerTracksDistinctKeysIndependently(t *testing.T) {
	gin.SetMode(gin.TestMode)
	l := ratelimit.New(1)

	r := gin.New()
	r.Use(l.Handler())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	reqA := httptest.NewRequest(http.MethodGet, "/ping", nil)
	reqA.Header.Set("X-Real-IP", "203.0.113.1")
	wA := httptest.NewRecorder()
	r.ServeHTTP(wA, reqA)
	require.Equal(t, http.StatusOK, wA.Code)

	reqB := httptest.NewRequest(http.MethodGet, "/ping", nil)
	reqB.Header.Set("X-Real-IP", "203.0.113.2")
	wB := httptest.NewRecorder()
	r.ServeHTTP(wB, reqB)
	require.Equal(t, http.StatusOK, wB.Code)
}

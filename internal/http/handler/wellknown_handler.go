package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smallbiznis/auth-service/internal/jwt"
)

// WellKnownHandler implements /health and /.well-known/jwks.json (C1, §6).
type WellKnownHandler struct {
	generator *jwt.Generator
}

// NewWellKnownHandler builds a WellKnownHandler.
func NewWellKnownHandler(generator *jwt.Generator) *WellKnownHandler {
	return &WellKnownHandler{generator: generator}
}

// Health handles GET /health.
func (h *WellKnownHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// JWKS handles GET /.well-known/jwks.json.
func (h *WellKnownHandler) JWKS(c *gin.Context) {
	c.JSON(http.StatusOK, h.generator.JWKS())
}

// Package httpapi provides the HTTP surface of the companion backend.
package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sensei-labs/sensei/internal/config"
	"github.com/sensei-labs/sensei/internal/service"
	"github.com/sensei-labs/sensei/internal/session"
)

// Handler handles HTTP requests.
type Handler struct {
	service  *service.Service
	sessions *session.Manager
	config   *config.Config
}

// NewHandler creates a new handler.
func NewHandler(svc *service.Service, sessions *session.Manager, cfg *config.Config) *Handler {
	return &Handler{
		service:  svc,
		sessions: sessions,
		config:   cfg,
	}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Conversation API
	e.POST("/prompt", h.Prompt)
	e.GET("/status/:requestId", h.Status)
	e.POST("/upload-audio", h.UploadAudio)

	// Account API
	e.POST("/register", h.Register)
	e.POST("/login", h.Login)

	// Chain API
	e.GET("/api/system-prompt", h.SystemPrompt)
	e.POST("/api/send-signed-intention", h.SendSignedIntention)
	e.GET("/api/balance/:address", h.Balance)
	e.GET("/api/token-prices", h.TokenPrices)

	e.GET("/health", h.Health)

	// Synthesized replies are served as static files.
	e.Static("/audio", h.config.AudioDir)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

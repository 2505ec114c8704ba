package httpapi

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sensei-labs/sensei/internal/config"
	"github.com/sensei-labs/sensei/internal/session"
)

// NewServer builds the echo server with middleware and routes wired.
func NewServer(h *Handler, sessions *session.Manager, cfg *config.Config) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(session.Middleware(sessions, cfg.SessionSecret, cfg.Production))

	h.RegisterRoutes(e)
	return e
}

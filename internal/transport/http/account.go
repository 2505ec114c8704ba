package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sensei-labs/sensei/internal/service"
	"github.com/sensei-labs/sensei/internal/session"
)

// CredentialsRequest carries a name/password pair.
type CredentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Register creates a companion account.
// POST /register
func (h *Handler) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name is required"})
	}
	if req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "password is required"})
	}

	companion, err := h.service.Register(ctx, req.Name, req.Password)
	if err != nil {
		log.Printf("ERROR: failed to register companion: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to register"})
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"id":   companion.ID,
		"name": companion.Name,
	})
}

// Login verifies credentials and binds the account to the session.
// POST /login
func (h *Handler) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req CredentialsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.Name == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "name and password are required"})
	}

	companion, err := h.service.Login(ctx, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUnknownCompanion) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "companion not found"})
		}
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		}
		log.Printf("ERROR: failed to log in companion: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to log in"})
	}

	sess := session.FromContext(c)
	sess.SetAccount(companion.ID)

	return c.JSON(http.StatusOK, map[string]interface{}{
		"id":   companion.ID,
		"name": companion.Name,
	})
}

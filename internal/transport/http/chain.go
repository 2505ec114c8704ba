package httpapi

import (
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sensei-labs/sensei/internal/adapter/bundler"
)

// SystemPrompt exposes the compiled instructions driving the persona.
// GET /api/system-prompt
func (h *Handler) SystemPrompt(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"systemPrompt": h.service.Instructions(),
	})
}

// SendSignedIntention relays a wallet-signed intention to the bundler.
// POST /api/send-signed-intention
func (h *Handler) SendSignedIntention(c echo.Context) error {
	ctx := c.Request().Context()

	var intention bundler.SignedIntention
	if err := c.Bind(&intention); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if len(intention.Intention) == 0 || intention.Signature == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "intention and signature are required"})
	}

	result, err := h.service.Relay().SendIntention(ctx, &intention)
	if err != nil {
		log.Printf("ERROR: failed to relay intention: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to relay intention"})
	}
	return c.JSONBlob(http.StatusOK, result)
}

// Balance passes a balance query through to the chain service.
// GET /api/balance/:address
func (h *Handler) Balance(c echo.Context) error {
	ctx := c.Request().Context()
	address := c.Param("address")

	result, err := h.service.Relay().GetBalance(ctx, address)
	if err != nil {
		log.Printf("ERROR: failed to get balance: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to get balance"})
	}
	return c.JSONBlob(http.StatusOK, result)
}

// TokenPrices passes a token price query through to the price service.
// GET /api/token-prices
func (h *Handler) TokenPrices(c echo.Context) error {
	ctx := c.Request().Context()

	result, err := h.service.Relay().GetTokenPrices(ctx)
	if err != nil {
		log.Printf("ERROR: failed to get token prices: %v", err)
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to get token prices"})
	}
	return c.JSONBlob(http.StatusOK, result)
}

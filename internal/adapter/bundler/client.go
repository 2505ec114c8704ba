// Package bundler relays signed blockchain intentions to the external
// bundler service and passes through chain balance and token price queries.
package bundler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to the bundler, chain, and price services.
type Client struct {
	bundlerURL string
	chainURL   string
	priceURL   string
	httpClient *http.Client

	maxAttempts int
	retryDelay  time.Duration
}

// NewClient creates a relay client. Empty base URLs disable the
// corresponding calls.
func NewClient(bundlerURL, chainURL, priceURL string) *Client {
	return &Client{
		bundlerURL:  strings.TrimSuffix(bundlerURL, "/"),
		chainURL:    strings.TrimSuffix(chainURL, "/"),
		priceURL:    strings.TrimSuffix(priceURL, "/"),
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		maxAttempts: 3,
		retryDelay:  time.Second,
	}
}

// SignedIntention is a wallet-signed intention ready for the bundler.
type SignedIntention struct {
	Intention json.RawMessage `json:"intention"`
	Signature string          `json:"signature"`
	From      string          `json:"from"`
}

// SendIntention relays a signed intention to the bundler with bounded
// fixed-delay retry. The bundler's JSON response is returned verbatim.
func (c *Client) SendIntention(ctx context.Context, intention *SignedIntention) (json.RawMessage, error) {
	if c.bundlerURL == "" {
		return nil, fmt.Errorf("bundler service not configured")
	}
	body, err := json.Marshal(intention)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal intention: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, err := c.post(ctx, c.bundlerURL+"/intention", body)
		if err == nil {
			return result, nil
		}
		lastErr = err
		log.Printf("WARN: failed to send intention (attempt %d/%d): %v", attempt, c.maxAttempts, err)
		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retryDelay):
			}
		}
	}
	return nil, fmt.Errorf("failed to send intention to bundler after %d attempts: %w", c.maxAttempts, lastErr)
}

// SendSigned relays a pre-signed intention from its parts.
func (c *Client) SendSigned(ctx context.Context, intention json.RawMessage, signature, from string) (json.RawMessage, error) {
	return c.SendIntention(ctx, &SignedIntention{Intention: intention, Signature: signature, From: from})
}

// CreateIntention asks the bundler to draft an intention for an action.
func (c *Client) CreateIntention(ctx context.Context, action string) (json.RawMessage, error) {
	if c.bundlerURL == "" {
		return nil, fmt.Errorf("bundler service not configured")
	}
	body, err := json.Marshal(map[string]string{"action": action})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal action: %w", err)
	}
	return c.post(ctx, c.bundlerURL+"/create-intention", body)
}

// GetBalance passes a balance query through to the chain service.
func (c *Client) GetBalance(ctx context.Context, address string) (json.RawMessage, error) {
	if c.chainURL == "" {
		return nil, fmt.Errorf("chain service not configured")
	}
	return c.get(ctx, c.chainURL+"/balance/"+address)
}

// GetTokenPrices passes a token price query through to the price service.
func (c *Client) GetTokenPrices(ctx context.Context) (json.RawMessage, error) {
	if c.priceURL == "" {
		return nil, fmt.Errorf("price service not configured")
	}
	return c.get(ctx, c.priceURL+"/token-prices")
}

// BlockNumber reads the latest block number from the chain service.
func (c *Client) BlockNumber(ctx context.Context) (int64, error) {
	if c.chainURL == "" {
		return 0, fmt.Errorf("chain service not configured")
	}
	raw, err := c.get(ctx, c.chainURL+"/block-number")
	if err != nil {
		return 0, err
	}
	var result struct {
		BlockNumber json.Number `json:"blockNumber"`
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, fmt.Errorf("failed to unmarshal block number: %w", err)
	}
	n, err := strconv.ParseInt(result.BlockNumber.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected block number %q", result.BlockNumber)
	}
	return n, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("service error [%d]: %s", resp.StatusCode, string(respBody))
	}
	return json.RawMessage(respBody), nil
}

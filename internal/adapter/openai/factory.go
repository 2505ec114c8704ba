package openai

import (
	"log"
	"os"
	"time"
)

const (
	// EnvMode selects the provider implementation.
	EnvMode = "SENSEI_MODE"
	// ModeMock runs against the in-memory mock provider.
	ModeMock = "MOCK"
)

// NewClient creates a provider client based on the SENSEI_MODE environment
// variable. SENSEI_MODE=MOCK returns the mock client; anything else returns
// the real HTTP client.
func NewClient(baseURL, apiKey string, timeout time.Duration) Client {
	if os.Getenv(EnvMode) == ModeMock {
		log.Println("SENSEI_MODE=MOCK detected, using mock provider client")
		return NewMockClient()
	}
	return NewHTTPClient(baseURL, apiKey, timeout)
}

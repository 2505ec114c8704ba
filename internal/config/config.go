// Package config provides configuration for the companion backend.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the backend configuration.
type Config struct {
	// Server settings
	Port       int
	Production bool

	// Provider
	OpenAIAPIKey string
	OpenAIURL    string

	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionTTL    time.Duration

	// External services
	BundlerURL string
	ChainURL   string
	PriceURL   string

	// Orchestration
	RunPollInterval time.Duration
	RequestTTL      time.Duration

	// Paths
	AudioDir    string
	UploadDir   string
	GuidesDir   string
	FilesDir    string
	PersonaPath string
}

// Persona describes the model-backed persona driving conversations. It is
// loaded from a JSON file so prompt and model tuning never require a rebuild.
type Persona struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Model        string   `json:"model"`
	TTSModel     string   `json:"ttsModel,omitempty"`
	Voice        string   `json:"voice,omitempty"`
	SystemPrompt string   `json:"systemPrompt"`
	Target       string   `json:"target"` // "chat" or "assistant"
	Temperature  *float64 `json:"temperature,omitempty"`
	Guides       []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	} `json:"guides,omitempty"`
}

// Load loads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:            getEnvInt("PORT", 3000),
		Production:      getEnv("NODE_ENV", "development") == "production",
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIURL:       getEnv("OPENAI_API_URL", "https://api.openai.com"),
		DatabaseURL:     getEnv("DATABASE_URL", "file:sensei.db?cache=shared&mode=rwc"),
		SessionSecret:   getEnv("SESSION_SECRET", ""),
		SessionTTL:      time.Duration(getEnvInt("SESSION_TTL_MS", 86400000)) * time.Millisecond,
		BundlerURL:      getEnv("BUNDLER_SERVER", ""),
		ChainURL:        getEnv("CHAIN_SERVER", ""),
		PriceURL:        getEnv("PRICE_SERVER", ""),
		RunPollInterval: time.Duration(getEnvInt("RUN_POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		RequestTTL:      time.Duration(getEnvInt("REQUEST_TTL_MS", 600000)) * time.Millisecond,
		AudioDir:        getEnv("AUDIO_DIR", "audio"),
		UploadDir:       getEnv("UPLOAD_DIR", "uploads"),
		GuidesDir:       getEnv("GUIDES_DIR", "guides"),
		FilesDir:        getEnv("FILES_DIR", ""),
		PersonaPath:     getEnv("PERSONA_PATH", "persona.json"),
	}
	return cfg
}

// LoadPersona reads and validates the persona file.
func LoadPersona(path string) (*Persona, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file: %w", err)
	}
	var p Persona
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse persona file: %w", err)
	}
	if p.Model == "" {
		return nil, fmt.Errorf("persona model is required")
	}
	if p.SystemPrompt == "" {
		return nil, fmt.Errorf("persona systemPrompt is required")
	}
	if p.Target == "" {
		p.Target = "chat"
	}
	return &p, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

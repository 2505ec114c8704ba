package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sensei-labs/sensei/internal/adapter/bundler"
	"github.com/sensei-labs/sensei/internal/adapter/openai"
	"github.com/sensei-labs/sensei/internal/config"
	"github.com/sensei-labs/sensei/internal/guides"
	"github.com/sensei-labs/sensei/internal/service"
	"github.com/sensei-labs/sensei/internal/session"
	"github.com/sensei-labs/sensei/internal/speech"
	"github.com/sensei-labs/sensei/internal/store"
	httpapi "github.com/sensei-labs/sensei/internal/transport/http"
	"github.com/sensei-labs/sensei/policy"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting companion backend...")
	log.Printf("HTTP Port: %d", cfg.Port)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Provider URL: %s", cfg.OpenAIURL)

	persona, err := config.LoadPersona(cfg.PersonaPath)
	if err != nil {
		log.Fatalf("Failed to load persona: %v", err)
	}
	log.Printf("Persona: %s (model %s, target %s)", persona.Name, persona.Model, persona.Target)

	ctx := context.Background()

	// Initialize store
	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize provider client
	provider := openai.NewClient(cfg.OpenAIURL, cfg.OpenAIAPIKey, 60*time.Second)

	// Initialize relay client
	relay := bundler.NewClient(cfg.BundlerURL, cfg.ChainURL, cfg.PriceURL)

	// Initialize guide registry
	registry := guides.NewRegistry()
	guides.RegisterBuiltins(registry, relay, relay)
	if err := registry.Load(cfg.GuidesDir); err != nil {
		log.Fatalf("Failed to load guide definitions: %v", err)
	}
	log.Printf("Loaded %d guides", len(registry.Declarations()))

	// Initialize policy engine
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize speech adapter
	speechAdapter := speech.NewAdapter(provider, cfg.AudioDir, persona.TTSModel, persona.Voice)

	// Initialize service
	svc := service.New(db, provider, registry, speechAdapter, relay, policyEngine, persona, cfg)
	svc.PersistSystemPrompt(ctx)

	// Initialize session manager and janitor
	sessions := session.NewManager(cfg.SessionTTL, cfg.RequestTTL)
	janitorStop := make(chan struct{})
	sessions.StartJanitor(time.Minute, janitorStop)

	// Initialize HTTP server
	h := httpapi.NewHandler(svc, sessions, cfg)
	e := httpapi.NewServer(h, sessions, cfg)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("API started on port %d", cfg.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	close(janitorStop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Companion backend stopped")
}

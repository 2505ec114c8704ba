// Package service implements the run orchestrator and the account and audio
// pipelines that feed it.
package service

import (
	"context"
	"encoding/json"
	"log"

	"github.com/sensei-labs/sensei/internal/adapter/bundler"
	"github.com/sensei-labs/sensei/internal/adapter/openai"
	"github.com/sensei-labs/sensei/internal/config"
	"github.com/sensei-labs/sensei/internal/domain"
	"github.com/sensei-labs/sensei/internal/guides"
	"github.com/sensei-labs/sensei/internal/session"
	"github.com/sensei-labs/sensei/internal/speech"
	"github.com/sensei-labs/sensei/internal/store"
	"github.com/sensei-labs/sensei/policy"
)

// Service ties the orchestrator to its collaborators.
type Service struct {
	store        store.Store
	provider     openai.Client
	registry     *guides.Registry
	speech       *speech.Adapter
	relay        *bundler.Client
	policyEngine *policy.Engine
	persona      *config.Persona
	config       *config.Config

	instructions string
}

// New creates the service and compiles the persona instructions.
func New(db store.Store, provider openai.Client, registry *guides.Registry, speechAdapter *speech.Adapter, relay *bundler.Client, policyEngine *policy.Engine, persona *config.Persona, cfg *config.Config) *Service {
	s := &Service{
		store:        db,
		provider:     provider,
		registry:     registry,
		speech:       speechAdapter,
		relay:        relay,
		policyEngine: policyEngine,
		persona:      persona,
		config:       cfg,
	}
	s.instructions = s.compileInstructions()
	return s
}

// Target returns the persona's configured pipeline.
func (s *Service) Target() domain.Target {
	return domain.Target(s.persona.Target)
}

// Instructions returns the compiled system instructions.
func (s *Service) Instructions() string {
	return s.instructions
}

// Relay returns the bundler relay client.
func (s *Service) Relay() *bundler.Client {
	return s.relay
}

// PersistSystemPrompt appends the compiled instructions to the audit trail.
// Called once at startup; failures are logged, not fatal.
func (s *Service) PersistSystemPrompt(ctx context.Context) {
	msg := &domain.Message{Role: domain.RoleSystem, Content: s.instructions}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		log.Printf("ERROR: failed to persist system prompt: %v", err)
	}
}

// compileInstructions builds the instructions string from the persona's
// base system prompt and the catalog of specialized guides.
func (s *Service) compileInstructions() string {
	catalog := make(map[string]string)
	for _, g := range s.persona.Guides {
		catalog[g.Name] = g.Description
	}
	if len(catalog) == 0 {
		catalog = s.registry.Catalog()
	}
	if len(catalog) == 0 {
		return s.persona.SystemPrompt
	}

	details, err := json.Marshal(catalog)
	if err != nil {
		log.Printf("ERROR: failed to serialize guide catalog: %v", err)
		return s.persona.SystemPrompt
	}
	return s.persona.SystemPrompt + " These are the specialized guides available to you through the callGuide function: " + string(details)
}

// saveMessage appends one turn to the audit trail. Persistence is
// best-effort: failures are logged and never abort the user-facing flow.
func (s *Service) saveMessage(ctx context.Context, sess *session.Session, role, content string) {
	msg := &domain.Message{
		Role:        role,
		Content:     content,
		GuideID:     sess.GuideRef(),
		CompanionID: sess.Companion(),
		ThreadID:    sess.ThreadRef(),
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		log.Printf("ERROR: failed to save message: %v", err)
	}
}

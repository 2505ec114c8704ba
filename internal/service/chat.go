package service

import (
	"context"
	"fmt"

	"github.com/sensei-labs/sensei/internal/adapter/openai"
	"github.com/sensei-labs/sensei/internal/domain"
	"github.com/sensei-labs/sensei/internal/session"
)

// callChat answers a prompt through the stateless chat completion pipeline.
// The full session history is replayed on every call, with the compiled
// instructions as the leading system message.
func (s *Service) callChat(ctx context.Context, sess *session.Session) (string, error) {
	turns := sess.Turns()
	messages := make([]openai.ChatMessage, 0, len(turns)+1)
	messages = append(messages, openai.ChatMessage{
		Role:    domain.RoleSystem,
		Content: s.instructions,
	})
	for _, turn := range turns {
		messages = append(messages, openai.ChatMessage{
			Role:    wireRole(turn.Role),
			Content: turn.Content,
		})
	}

	resp, err := s.provider.CreateChatCompletion(ctx, &openai.ChatCompletionRequest{
		Model:       s.persona.Model,
		Messages:    messages,
		Temperature: s.persona.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// wireRole maps conversation roles to the roles the provider understands.
func wireRole(role string) string {
	switch role {
	case domain.RoleCompanion:
		return domain.RoleUser
	case domain.RoleGuide:
		return domain.RoleAssistant
	default:
		return role
	}
}

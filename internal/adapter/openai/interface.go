// Package openai provides the client for the hosted model provider: chat
// completions, stateful assistants/threads/runs, and the speech endpoints.
package openai

import (
	"context"

	"github.com/sensei-labs/sensei/internal/domain"
)

// Client defines the provider operations the orchestrator depends on.
type Client interface {
	// Stateless chat
	CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error)

	// Stateful assistant resources
	CreateAssistant(ctx context.Context, req *AssistantRequest) (*Assistant, error)
	CreateThread(ctx context.Context) (*Thread, error)
	CreateThreadMessage(ctx context.Context, threadID, role, content string) error
	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)
	GetRun(ctx context.Context, threadID, runID string) (*Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.GuideOutput) (*Run, error)
	ListThreadMessages(ctx context.Context, threadID string) ([]ThreadMessage, error)

	// Reference files
	UploadFile(ctx context.Context, path string) (string, error)
	CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error)

	// Speech
	CreateSpeech(ctx context.Context, model, voice, input string) ([]byte, error)
	Transcribe(ctx context.Context, path, model string) (string, error)
}

// Ensure HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

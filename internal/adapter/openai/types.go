package openai

import (
	"github.com/sensei-labs/sensei/internal/domain"
)

// ChatCompletionRequest is the stateless chat completion request.
type ChatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	MaxTokens   *int          `json:"max_tokens,omitempty"`
}

// ChatMessage is one wire-format chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatCompletionResponse is the chat completion response.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// Choice is one completion choice.
type Choice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

// Usage reports token usage.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AssistantRequest creates a remote assistant resource with its tool
// manifest attached.
type AssistantRequest struct {
	Name          string          `json:"name,omitempty"`
	Description   string          `json:"description,omitempty"`
	Instructions  string          `json:"instructions"`
	Model         string          `json:"model"`
	Tools         []AssistantTool `json:"tools,omitempty"`
	Temperature   *float64        `json:"temperature,omitempty"`
	ToolResources *ToolResources  `json:"tool_resources,omitempty"`
}

// ToolResources attaches uploaded reference files to an assistant's
// built-in tools.
type ToolResources struct {
	CodeInterpreter *CodeInterpreterResources `json:"code_interpreter,omitempty"`
	FileSearch      *FileSearchResources      `json:"file_search,omitempty"`
}

// CodeInterpreterResources lists the file ids available to the code
// interpreter tool.
type CodeInterpreterResources struct {
	FileIDs []string `json:"file_ids"`
}

// FileSearchResources lists the vector stores the file_search tool may
// retrieve from.
type FileSearchResources struct {
	VectorStoreIDs []string `json:"vector_store_ids"`
}

// VectorStore is the remote vector store resource grouping uploaded files
// for retrieval.
type VectorStore struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// AssistantTool is one entry of an assistant's tool manifest. Function is
// set for declared guides; built-in provider tools carry only a type.
type AssistantTool struct {
	Type     string                   `json:"type"`
	Function *domain.GuideDeclaration `json:"function,omitempty"`
}

// Assistant is the remote assistant resource.
type Assistant struct {
	ID    string `json:"id"`
	Model string `json:"model"`
	Name  string `json:"name,omitempty"`
}

// Thread is the remote conversation thread resource.
type Thread struct {
	ID string `json:"id"`
}

// Run is one invocation of an assistant against a thread.
type Run struct {
	ID             string           `json:"id"`
	ThreadID       string           `json:"thread_id"`
	Status         domain.RunStatus `json:"status"`
	RequiredAction *RequiredAction  `json:"required_action,omitempty"`
	LastError      *RunError        `json:"last_error,omitempty"`
}

// RequiredAction carries the pending tool calls of a requires_action run.
type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs lists the tool calls that must be answered before the
// run can proceed.
type SubmitToolOutputs struct {
	ToolCalls []RunToolCall `json:"tool_calls"`
}

// RunToolCall is one model-issued tool call.
type RunToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function RunToolFunction `json:"function"`
}

// RunToolFunction names the requested guide and its JSON-encoded arguments.
type RunToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// RunError describes a failed run.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ThreadMessage is one message of a remote thread. The provider returns
// messages newest-first.
type ThreadMessage struct {
	ID      string        `json:"id"`
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ContentPart is one segment of a thread message.
type ContentPart struct {
	Type string `json:"type"`
	Text *struct {
		Value string `json:"value"`
	} `json:"text,omitempty"`
}

// Text returns the first text segment of the message, or "".
func (m ThreadMessage) Text() string {
	for _, part := range m.Content {
		if part.Type == "text" && part.Text != nil {
			return part.Text.Value
		}
	}
	return ""
}

// ErrorResponse is the provider's error envelope.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// APIError carries the provider error details.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
}

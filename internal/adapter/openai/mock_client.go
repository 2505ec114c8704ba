package openai

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sensei-labs/sensei/internal/domain"
)

// MockClient is a scriptable in-memory implementation of Client for tests
// and offline development. Call counters let tests assert how often the
// expensive resource-creation endpoints were hit.
type MockClient struct {
	mu sync.Mutex

	// Scripted behavior
	ChatReply      string
	RunStatuses    []domain.RunStatus // consumed by successive GetRun calls
	PendingCalls   []RunToolCall      // attached while status is requires_action
	ThreadMessages []ThreadMessage    // returned newest-first by ListThreadMessages
	Transcript     string
	SpeechAudio    []byte
	Err            error // returned by every call when set

	// Recorded activity
	AssistantCreates   int
	ThreadCreates      int
	MessageCreates     int
	RunCreates         int
	RunPolls           int
	FileUploads        int
	VectorStoreCreates int
	SpeechCalls        int
	TranscribeCalls    int
	Submitted          [][]domain.GuideOutput
	LastAssistantReq   *AssistantRequest
}

// NewMockClient creates a mock provider client with benign defaults.
func NewMockClient() *MockClient {
	return &MockClient{
		ChatReply:   "[MOCK] This is a mock reply.",
		SpeechAudio: []byte("mock-audio"),
		Transcript:  "mock transcript",
	}
}

var _ Client = (*MockClient)(nil)

func (m *MockClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return &ChatCompletionResponse{
		ID:      fmt.Sprintf("mock-chatcmpl-%d", time.Now().UnixNano()),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   req.Model,
		Choices: []Choice{
			{
				Index:        0,
				Message:      &ChatMessage{Role: domain.RoleAssistant, Content: m.ChatReply},
				FinishReason: "stop",
			},
		},
	}, nil
}

func (m *MockClient) CreateAssistant(ctx context.Context, req *AssistantRequest) (*Assistant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.AssistantCreates++
	m.LastAssistantReq = req
	return &Assistant{ID: fmt.Sprintf("asst_mock_%d", m.AssistantCreates), Model: req.Model, Name: req.Name}, nil
}

func (m *MockClient) CreateThread(ctx context.Context) (*Thread, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.ThreadCreates++
	return &Thread{ID: fmt.Sprintf("thread_mock_%d", m.ThreadCreates)}, nil
}

func (m *MockClient) CreateThreadMessage(ctx context.Context, threadID, role, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.MessageCreates++
	return nil
}

func (m *MockClient) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.RunCreates++
	return &Run{ID: fmt.Sprintf("run_mock_%d", m.RunCreates), ThreadID: threadID, Status: domain.RunStatusQueued}, nil
}

func (m *MockClient) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.RunPolls++

	status := domain.RunStatusCompleted
	if len(m.RunStatuses) > 0 {
		status = m.RunStatuses[0]
		m.RunStatuses = m.RunStatuses[1:]
	}
	run := &Run{ID: runID, ThreadID: threadID, Status: status}
	if status == domain.RunStatusRequiresAction {
		run.RequiredAction = &RequiredAction{
			Type:              "submit_tool_outputs",
			SubmitToolOutputs: &SubmitToolOutputs{ToolCalls: m.PendingCalls},
		}
	}
	if status == domain.RunStatusFailed {
		run.LastError = &RunError{Code: "server_error", Message: "mock run failure"}
	}
	return run, nil
}

func (m *MockClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.GuideOutput) (*Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Submitted = append(m.Submitted, outputs)
	return &Run{ID: runID, ThreadID: threadID, Status: domain.RunStatusInProgress}, nil
}

func (m *MockClient) ListThreadMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]ThreadMessage, len(m.ThreadMessages))
	copy(out, m.ThreadMessages)
	return out, nil
}

func (m *MockClient) UploadFile(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.FileUploads++
	return fmt.Sprintf("file_mock_%d", m.FileUploads), nil
}

func (m *MockClient) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.VectorStoreCreates++
	return fmt.Sprintf("vs_mock_%d", m.VectorStoreCreates), nil
}

func (m *MockClient) CreateSpeech(ctx context.Context, model, voice, input string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.SpeechCalls++
	return m.SpeechAudio, nil
}

func (m *MockClient) Transcribe(ctx context.Context, path, model string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	m.TranscribeCalls++
	return m.Transcript, nil
}

// TextMessage builds a plain text thread message for scripting mocks.
func TextMessage(id, role, value string) ThreadMessage {
	msg := ThreadMessage{ID: id, Role: role}
	part := ContentPart{Type: "text"}
	part.Text = &struct {
		Value string `json:"value"`
	}{Value: value}
	msg.Content = []ContentPart{part}
	return msg
}

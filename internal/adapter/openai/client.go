package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sensei-labs/sensei/internal/domain"
)

// HTTPClient talks to the provider's REST API.
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPClient creates a provider client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateChatCompletion sends a stateless chat completion request.
func (c *HTTPClient) CreateChatCompletion(ctx context.Context, req *ChatCompletionRequest) (*ChatCompletionResponse, error) {
	var result ChatCompletionResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/chat/completions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateAssistant creates the remote assistant resource.
func (c *HTTPClient) CreateAssistant(ctx context.Context, req *AssistantRequest) (*Assistant, error) {
	var result Assistant
	if err := c.doJSON(ctx, http.MethodPost, "/v1/assistants", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateThread creates an empty remote thread.
func (c *HTTPClient) CreateThread(ctx context.Context) (*Thread, error) {
	var result Thread
	if err := c.doJSON(ctx, http.MethodPost, "/v1/threads", struct{}{}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateThreadMessage appends a message to a thread.
func (c *HTTPClient) CreateThreadMessage(ctx context.Context, threadID, role, content string) error {
	body := map[string]string{"role": role, "content": content}
	return c.doJSON(ctx, http.MethodPost, "/v1/threads/"+threadID+"/messages", body, nil)
}

// CreateRun starts a run of the assistant against the thread.
func (c *HTTPClient) CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error) {
	body := map[string]string{"assistant_id": assistantID}
	var result Run
	if err := c.doJSON(ctx, http.MethodPost, "/v1/threads/"+threadID+"/runs", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetRun retrieves the current run state.
func (c *HTTPClient) GetRun(ctx context.Context, threadID, runID string) (*Run, error) {
	var result Run
	if err := c.doJSON(ctx, http.MethodGet, "/v1/threads/"+threadID+"/runs/"+runID, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SubmitToolOutputs answers all pending tool calls of a run in one batch.
func (c *HTTPClient) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []domain.GuideOutput) (*Run, error) {
	body := map[string]interface{}{"tool_outputs": outputs}
	var result Run
	if err := c.doJSON(ctx, http.MethodPost, "/v1/threads/"+threadID+"/runs/"+runID+"/submit_tool_outputs", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListThreadMessages returns the thread's messages, newest first.
func (c *HTTPClient) ListThreadMessages(ctx context.Context, threadID string) ([]ThreadMessage, error) {
	var result struct {
		Data []ThreadMessage `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/threads/"+threadID+"/messages", nil, &result); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// UploadFile uploads a reference file for assistant use and returns its id.
func (c *HTTPClient) UploadFile(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("purpose", "assistants"); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := c.doMultipart(ctx, "/v1/files", &buf, writer.FormDataContentType(), &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// CreateVectorStore groups uploaded files into a vector store for the
// file_search tool and returns its id.
func (c *HTTPClient) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error) {
	body := map[string]interface{}{"name": name, "file_ids": fileIDs}
	var result VectorStore
	if err := c.doJSON(ctx, http.MethodPost, "/v1/vector_stores", body, &result); err != nil {
		return "", err
	}
	return result.ID, nil
}

// CreateSpeech synthesizes text to audio and returns the binary payload.
func (c *HTTPClient) CreateSpeech(ctx context.Context, model, voice, input string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{
		"model": model,
		"voice": voice,
		"input": input,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// Transcribe converts an audio file to text.
func (c *HTTPClient) Transcribe(ctx context.Context, path, model string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open audio file: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("model", model); err != nil {
		return "", fmt.Errorf("failed to write form field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to copy file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize form: %w", err)
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := c.doMultipart(ctx, "/v1/audio/transcriptions", &buf, writer.FormDataContentType(), &result); err != nil {
		return "", err
	}
	return result.Text, nil
}

// doJSON executes a JSON request/response round trip. out may be nil when
// the response body is irrelevant.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

func (c *HTTPClient) doMultipart(ctx context.Context, path string, body io.Reader, contentType string, out interface{}) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(httpReq, contentType)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp.StatusCode, respBody)
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}

// setHeaders sets common request headers. The assistants endpoints require
// the beta header; sending it everywhere is harmless.
func (c *HTTPClient) setHeaders(req *http.Request, contentType string) {
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("OpenAI-Beta", "assistants=v2")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func apiError(status int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
		return fmt.Errorf("provider API error [%d]: %s (type: %s)", status, errResp.Error.Message, errResp.Error.Type)
	}
	return fmt.Errorf("provider API error [%d]: %s", status, string(body))
}

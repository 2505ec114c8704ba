package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sensei-labs/sensei/internal/adapter/bundler"
	"github.com/sensei-labs/sensei/internal/adapter/openai"
	"github.com/sensei-labs/sensei/internal/config"
	"github.com/sensei-labs/sensei/internal/domain"
	"github.com/sensei-labs/sensei/internal/guides"
	"github.com/sensei-labs/sensei/internal/service"
	"github.com/sensei-labs/sensei/internal/session"
	"github.com/sensei-labs/sensei/internal/speech"
	"github.com/sensei-labs/sensei/internal/store"
	"github.com/sensei-labs/sensei/policy"
)

func newTestServer(t *testing.T, provider openai.Client) *echo.Echo {
	t.Helper()
	ctx := context.Background()

	db, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	registry := guides.NewRegistry()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)

	cfg := &config.Config{
		RunPollInterval: time.Millisecond,
		AudioDir:        t.TempDir(),
		UploadDir:       t.TempDir(),
	}
	persona := &config.Persona{
		Name:         "Test",
		Model:        "gpt-4o",
		SystemPrompt: "You are a test companion.",
		Target:       "chat",
	}

	speechAdapter := speech.NewAdapter(provider, cfg.AudioDir, "", "")
	svc := service.New(db, provider, registry, speechAdapter, bundler.NewClient("", "", ""), policyEngine, persona, cfg)

	sessions := session.NewManager(time.Hour, time.Hour)
	h := NewHandler(svc, sessions, cfg)
	return NewServer(h, sessions, cfg)
}

func doJSON(e *echo.Echo, method, path, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestPromptRequiresText(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())

	rec := doJSON(e, http.MethodPost, "/prompt", `{"prompt": ""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Markup that sanitizes to nothing is rejected too.
	rec = doJSON(e, http.MethodPost, "/prompt", `{"prompt": "<p></p>"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPromptAndPollLifecycle(t *testing.T) {
	mock := openai.NewMockClient()
	e := newTestServer(t, mock)

	rec := doJSON(e, http.MethodPost, "/prompt", `{"prompt": "hello"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	requestID := accepted["requestId"]
	require.NotEmpty(t, requestID)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies, "middleware must issue a session cookie")

	var entry domain.RequestEntry
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec = doJSON(e, http.MethodGet, "/status/"+requestID, "", cookies)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
		if entry.Status != domain.RequestStatusProcessing {
			break
		}
		require.True(t, time.Now().Before(deadline), "request never reached a terminal state")
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, domain.RequestStatusCompleted, entry.Status)
	payload, ok := entry.Data.(map[string]interface{})
	require.True(t, ok, "unexpected payload %T", entry.Data)
	assert.Equal(t, mock.ChatReply, payload["content"])
	assert.Equal(t, "/audio/"+requestID+".mp3", payload["audioUrl"])

	// A delivered terminal result is gone on the next poll.
	rec = doJSON(e, http.MethodGet, "/status/"+requestID, "", cookies)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusUnknownRequest(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())
	rec := doJSON(e, http.MethodGet, "/status/does-not-exist", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// slowTranscriber delays transcription so tests can observe whether the
// upload handler waits for it.
type slowTranscriber struct {
	*openai.MockClient
	delay time.Duration
}

func (s *slowTranscriber) Transcribe(ctx context.Context, path, model string) (string, error) {
	time.Sleep(s.delay)
	return s.MockClient.Transcribe(ctx, path, model)
}

func postAudio(t *testing.T, e *echo.Echo) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("audioFile", "recording.webm")
	require.NoError(t, err)
	_, err = part.Write([]byte("not-really-audio"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload-audio", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func pollTerminal(t *testing.T, e *echo.Echo, requestID string, cookies []*http.Cookie) domain.RequestEntry {
	t.Helper()
	var entry domain.RequestEntry
	deadline := time.Now().Add(2 * time.Second)
	for {
		rec := doJSON(e, http.MethodGet, "/status/"+requestID, "", cookies)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
		if entry.Status != domain.RequestStatusProcessing {
			return entry
		}
		require.True(t, time.Now().Before(deadline), "request never reached a terminal state")
		time.Sleep(10 * time.Millisecond)
	}
}

func TestUploadAudioSubmitsTranscript(t *testing.T) {
	mock := openai.NewMockClient()
	mock.Transcript = "spoken words"
	e := newTestServer(t, mock)

	rec := postAudio(t, e)
	require.Equal(t, http.StatusOK, rec.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	require.NotEmpty(t, accepted["requestId"])

	entry := pollTerminal(t, e, accepted["requestId"], rec.Result().Cookies())
	require.Equal(t, domain.RequestStatusCompleted, entry.Status)
	payload, ok := entry.Data.(map[string]interface{})
	require.True(t, ok, "unexpected payload %T", entry.Data)
	assert.Equal(t, mock.ChatReply, payload["content"])
	assert.Equal(t, 1, mock.TranscribeCalls)
}

func TestUploadAudioRespondsBeforeTranscription(t *testing.T) {
	slow := &slowTranscriber{MockClient: openai.NewMockClient(), delay: 500 * time.Millisecond}
	e := newTestServer(t, slow)

	start := time.Now()
	rec := postAudio(t, e)
	elapsed := time.Since(start)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Less(t, elapsed, slow.delay, "upload must not wait for transcription")

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	entry := pollTerminal(t, e, accepted["requestId"], rec.Result().Cookies())
	assert.Equal(t, domain.RequestStatusCompleted, entry.Status)
}

func TestUploadAudioTranscriptionFailureFailsEntry(t *testing.T) {
	mock := openai.NewMockClient()
	mock.Err = errors.New("transcription down")
	e := newTestServer(t, mock)

	rec := postAudio(t, e)
	require.Equal(t, http.StatusOK, rec.Code, "transcription failures must not surface synchronously")

	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	entry := pollTerminal(t, e, accepted["requestId"], rec.Result().Cookies())
	assert.Equal(t, domain.RequestStatusFailed, entry.Status)
	assert.Equal(t, domain.ErrorKindSpeech, entry.Kind)
}

func TestUploadAudioRequiresFile(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())
	rec := doJSON(e, http.MethodPost, "/upload-audio", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterAndLoginFlow(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())

	rec := doJSON(e, http.MethodPost, "/register", `{"name": "alice", "password": "hunter2"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created["id"])
	assert.Equal(t, "alice", created["name"])

	rec = doJSON(e, http.MethodPost, "/login", `{"name": "alice", "password": "wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(e, http.MethodPost, "/login", `{"name": "nobody", "password": "hunter2"}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(e, http.MethodPost, "/login", `{"name": "alice", "password": "hunter2"}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegisterValidation(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())

	rec := doJSON(e, http.MethodPost, "/register", `{"name": "", "password": "pw"}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodPost, "/register", `{"name": "alice", "password": ""}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSystemPromptExposed(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())

	rec := doJSON(e, http.MethodGet, "/api/system-prompt", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["systemPrompt"], "You are a test companion.")
}

func TestChainEndpointsWithoutServices(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())

	rec := doJSON(e, http.MethodGet, "/api/balance/0xabc", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/token-prices", "", nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/send-signed-intention", `{"intention": {"to": "0xabc"}, "signature": "0xsig", "from": "0xme"}`, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestSendSignedIntentionValidation(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())
	rec := doJSON(e, http.MethodPost, "/api/send-signed-intention", `{}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSynthesizedAudioServed(t *testing.T) {
	mock := openai.NewMockClient()
	e := newTestServer(t, mock)

	rec := doJSON(e, http.MethodPost, "/prompt", `{"prompt": "hello"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var accepted map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	requestID := accepted["requestId"]

	require.Eventually(t, func() bool {
		req := httptest.NewRequest(http.MethodGet, "/audio/"+requestID+".mp3", nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec.Code == http.StatusOK && bytes.Equal(rec.Body.Bytes(), mock.SpeechAudio)
	}, 2*time.Second, 10*time.Millisecond, "synthesized audio never became servable")
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, openai.NewMockClient())
	rec := doJSON(e, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

package httpapi

import (
	"context"
	"io"
	"log"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sensei-labs/sensei/internal/domain"
	"github.com/sensei-labs/sensei/internal/sanitize"
	"github.com/sensei-labs/sensei/internal/session"
)

// PromptRequest is the request to submit a prompt.
type PromptRequest struct {
	Prompt string `json:"prompt"`
}

// Prompt accepts a prompt, returns a request id immediately, and runs the
// orchestration on its own goroutine.
// POST /prompt
func (h *Handler) Prompt(c echo.Context) error {
	var req PromptRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	return h.accept(c, req.Prompt)
}

// Status reads the outcome of a submitted request. A terminal outcome is
// delivered once; polling again after delivery yields not found.
// GET /status/:requestId
func (h *Handler) Status(c echo.Context) error {
	sess := session.FromContext(c)
	requestID := c.Param("requestId")

	entry, ok := sess.PollRequest(requestID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "request not found"})
	}
	return c.JSON(http.StatusOK, entry)
}

// UploadAudio accepts an audio recording, returns a request id immediately,
// and transcribes in the background before feeding the transcript into the
// same orchestration path as a typed prompt. Transcription failures surface
// as a terminal failed entry, not as a synchronous error.
// POST /upload-audio
func (h *Handler) UploadAudio(c echo.Context) error {
	file, err := c.FormFile("audioFile")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "audio file is required"})
	}

	path, err := h.saveUpload(file)
	if err != nil {
		log.Printf("ERROR: failed to save uploaded audio: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to save audio"})
	}

	sess := session.FromContext(c)
	requestID := newRequestID()
	sess.BeginRequest(requestID)

	go func() {
		ctx := context.Background()
		prompt, err := h.service.ProcessAudio(ctx, path)
		if err != nil {
			log.Printf("ERROR: failed to process audio for request %s: %v", requestID, err)
			sess.FailRequest(requestID, domain.ErrorKindSpeech, err.Error())
			return
		}
		h.service.Respond(ctx, sess, requestID, prompt)
	}()

	return c.JSON(http.StatusOK, map[string]string{"requestId": requestID})
}

// accept sanitizes one prompt, registers a processing entry, and launches the
// orchestration. The response carries only the request id; results arrive via
// the status endpoint.
func (h *Handler) accept(c echo.Context, prompt string) error {
	prompt = sanitize.Strip(prompt)
	if prompt == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "prompt is required"})
	}

	sess := session.FromContext(c)
	requestID := newRequestID()
	sess.BeginRequest(requestID)

	// Detached from the request context: the orchestration outlives this
	// HTTP exchange.
	go h.service.Respond(context.Background(), sess, requestID, prompt)

	return c.JSON(http.StatusOK, map[string]string{"requestId": requestID})
}

func (h *Handler) saveUpload(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	if err := os.MkdirAll(h.config.UploadDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(h.config.UploadDir, newRequestID()+filepath.Ext(file.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// newRequestID builds a compact time-sortable id: base36 millis plus a random
// base36 suffix.
func newRequestID() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 36) + strconv.FormatInt(rand.Int63n(1<<60), 36)
}

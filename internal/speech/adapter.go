// Package speech wraps the provider's text-to-speech and speech-to-text
// endpoints and turns audio binaries into URL-addressable files.
package speech

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sensei-labs/sensei/internal/adapter/openai"
	"github.com/sensei-labs/sensei/internal/sanitize"
)

const (
	defaultTTSModel        = "tts-1-hd"
	defaultVoice           = "alloy"
	defaultTranscribeModel = "whisper-1"
)

// Adapter converts between text and audio.
type Adapter struct {
	client   openai.Client
	audioDir string
	ttsModel string
	voice    string
}

// NewAdapter creates a speech adapter writing synthesized audio to audioDir.
func NewAdapter(client openai.Client, audioDir, ttsModel, voice string) *Adapter {
	if ttsModel == "" {
		ttsModel = defaultTTSModel
	}
	if voice == "" {
		voice = defaultVoice
	}
	return &Adapter{
		client:   client,
		audioDir: audioDir,
		ttsModel: ttsModel,
		voice:    voice,
	}
}

// Synthesize converts text to speech, writes the audio under a filename
// derived from the request id, and returns the relative URL it is served at.
func (a *Adapter) Synthesize(ctx context.Context, text, requestID string) (string, error) {
	audio, err := a.client.CreateSpeech(ctx, a.ttsModel, a.voice, text)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize speech: %w", err)
	}

	if err := os.MkdirAll(a.audioDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create audio dir: %w", err)
	}
	path := filepath.Join(a.audioDir, requestID+".mp3")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	return "/audio/" + requestID + ".mp3", nil
}

// Transcribe converts an audio file to text. Transcripts are untrusted user
// input and are sanitized before re-entering the prompt pipeline.
func (a *Adapter) Transcribe(ctx context.Context, path string) (string, error) {
	text, err := a.client.Transcribe(ctx, path, defaultTranscribeModel)
	if err != nil {
		return "", fmt.Errorf("failed to transcribe audio: %w", err)
	}
	return sanitize.Strip(text), nil
}

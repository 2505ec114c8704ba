package speech

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/sensei-labs/sensei/internal/adapter/openai"
)

func TestSynthesizeWritesAudioFile(t *testing.T) {
	mock := openai.NewMockClient()
	mock.SpeechAudio = []byte("fake-mp3")
	dir := t.TempDir()
	a := NewAdapter(mock, dir, "", "")

	url, err := a.Synthesize(context.Background(), "hello there", "req1")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if url != "/audio/req1.mp3" {
		t.Fatalf("unexpected url %q", url)
	}

	data, err := os.ReadFile(filepath.Join(dir, "req1.mp3"))
	if err != nil {
		t.Fatalf("read audio: %v", err)
	}
	if string(data) != "fake-mp3" {
		t.Fatalf("unexpected audio content %q", data)
	}
	if mock.SpeechCalls != 1 {
		t.Fatalf("expected one synthesis call, got %d", mock.SpeechCalls)
	}
}

func TestTranscribeSanitizesOutput(t *testing.T) {
	mock := openai.NewMockClient()
	mock.Transcript = "**hello** <b>world</b>"
	a := NewAdapter(mock, t.TempDir(), "", "")

	text, err := a.Transcribe(context.Background(), "clip.webm")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "hello world" {
		t.Fatalf("expected sanitized transcript, got %q", text)
	}
}

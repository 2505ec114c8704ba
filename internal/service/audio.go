package service

import (
	"context"
	"fmt"
	"log"
	"os"
)

// ProcessAudio transcribes an uploaded audio file into sanitized prompt text.
// The upload is deleted on every path once transcription has been attempted.
func (s *Service) ProcessAudio(ctx context.Context, path string) (string, error) {
	defer func() {
		if err := os.Remove(path); err != nil {
			log.Printf("WARN: failed to remove uploaded audio %s: %v", path, err)
		}
	}()

	text, err := s.speech.Transcribe(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to process audio: %w", err)
	}
	if text == "" {
		return "", fmt.Errorf("transcription produced no text")
	}
	return text, nil
}

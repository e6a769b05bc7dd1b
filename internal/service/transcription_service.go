package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"romy/backend/internal/llm"
)

// allowedAudioExts covers what browsers produce from MediaRecorder plus the
// common drop-in formats.
var allowedAudioExts = map[string]bool{
	".webm": true,
	".ogg":  true,
	".mp3":  true,
	".m4a":  true,
	".wav":  true,
}

// TranscriptionService turns recorded audio into text for the message input.
type TranscriptionService struct {
	llm llm.Provider
}

func NewTranscriptionService(provider llm.Provider) *TranscriptionService {
	return &TranscriptionService{llm: provider}
}

func (s *TranscriptionService) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	dot := strings.LastIndex(filename, ".")
	if dot < 0 || !allowedAudioExts[strings.ToLower(filename[dot:])] {
		return "", fmt.Errorf("unsupported audio format %q", filename)
	}
	text, err := s.llm.Transcribe(ctx, audio, filename)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return strings.TrimSpace(text), nil
}

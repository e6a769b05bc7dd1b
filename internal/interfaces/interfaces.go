package interfaces

import (
	"context"
	"io"

	"romy/backend/internal/model"
	"romy/backend/internal/service"
)

// This file defines the interfaces for our core services.
// Depending on these interfaces, instead of concrete implementations, allows for
// decoupling (e.g., API layer from Service layer) and easier testing via mocking.

// ChatService defines the contract for chat-related business logic.
type ChatService interface {
	UpdateChatTitle(ctx context.Context, chatID, newTitle string) error
	DeleteChat(ctx context.Context, chatID string) error
	ListChats(ctx context.Context, userID string) ([]*model.Chat, error)
	GetFullChat(ctx context.Context, chatID string) (*model.FullChat, error)
	SaveFeedback(ctx context.Context, fb *model.Feedback) error
	HandleNewMessage(ctx context.Context, req *service.CreateMessageRequest, streamChan chan<- model.StreamEvent)
}

// PreferencesService defines the contract for reading and storing user
// preferences.
type PreferencesService interface {
	Get(ctx context.Context) (*service.Preferences, error)
	Save(ctx context.Context, prefs *service.Preferences) error
}

// UploadService defines the contract for attachment storage.
type UploadService interface {
	ValidateBatch(files []service.BatchInput, existing int) error
	Save(ctx context.Context, r io.Reader, filename, mediaType string) (*model.UploadedFile, error)
	Cancel(id string)
	Remove(key string) error
	Dir() string
}

// TranscriptionService defines the contract for voice input transcription.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

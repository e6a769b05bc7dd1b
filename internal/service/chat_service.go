package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	app_errors "romy/backend/internal/errors"
	"romy/backend/internal/llm"
	"romy/backend/internal/message"
	"romy/backend/internal/model"
	"romy/backend/internal/repository"
	"romy/backend/internal/suggest"
)

// Extractor pulls text content out of an uploaded file. Implemented by the
// extract package; mocked in tests.
type Extractor interface {
	Supports(mediaType string) bool
	Process(ctx context.Context, url, mediaType string) (string, error)
}

// Suggester streams post-answer suggestions. Implemented by the suggest
// package; mocked in tests.
type Suggester interface {
	StreamActionItems(ctx context.Context, w suggest.PartWriter, history []llm.Message) []model.SuggestionItem
	StreamRelatedQuestions(ctx context.Context, w suggest.PartWriter, history []llm.Message) []model.SuggestionItem
}

type ChatService struct {
	repo      repository.Repository
	llm       llm.Provider
	extractor Extractor
	suggester Suggester
	prefs     *PreferencesService

	mainModel    string
	supportModel string
	systemPrompt string
}

// FileInput describes one attachment accompanying a new message.
type FileInput struct {
	URL       string `json:"url" validate:"required"`
	MediaType string `json:"media_type" validate:"required"`
	Filename  string `json:"filename"`
}

// CreateMessageRequest is the structure for a new message request from the client.
type CreateMessageRequest struct {
	ChatID  string      `json:"chat_id"`
	Content string      `json:"content" validate:"required"`
	Files   []FileInput `json:"files" validate:"max=3,dive"`
}

func NewChatService(
	repo repository.Repository,
	provider llm.Provider,
	extractor Extractor,
	suggester Suggester,
	prefs *PreferencesService,
	mainModel, supportModel, systemPrompt string,
) *ChatService {
	return &ChatService{
		repo:         repo,
		llm:          provider,
		extractor:    extractor,
		suggester:    suggester,
		prefs:        prefs,
		mainModel:    mainModel,
		supportModel: supportModel,
		systemPrompt: systemPrompt,
	}
}

// UpdateChatTitle handles the logic for manually updating a chat's title.
func (s *ChatService) UpdateChatTitle(ctx context.Context, chatID, newTitle string) error {
	if newTitle == "" {
		return fmt.Errorf("title cannot be empty")
	}
	slog.Info("Updating chat title", "chat_id", chatID, "title", newTitle)
	return s.repo.UpdateChatTitle(ctx, chatID, newTitle)
}

// DeleteChat handles the logic for deleting a chat and all its related data.
func (s *ChatService) DeleteChat(ctx context.Context, chatID string) error {
	slog.Info("Deleting chat", "chat_id", chatID)
	return s.repo.DeleteChat(ctx, chatID)
}

// ListChats retrieves all chats for a specific user.
func (s *ChatService) ListChats(ctx context.Context, userID string) ([]*model.Chat, error) {
	return s.repo.GetChats(ctx, userID)
}

// GetFullChat retrieves a chat's metadata and all its messages.
func (s *ChatService) GetFullChat(ctx context.Context, chatID string) (*model.FullChat, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: chat %s", app_errors.ErrNotFound, chatID)
		}
		return nil, fmt.Errorf("could not get chat: %w", err)
	}
	messages, err := s.repo.GetMessagesByChatID(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("could not get messages: %w", err)
	}
	return &model.FullChat{Chat: *chat, Messages: messages}, nil
}

// SaveFeedback records a rating a user left on an assistant message.
func (s *ChatService) SaveFeedback(ctx context.Context, fb *model.Feedback) error {
	fb.ID = uuid.NewString()
	fb.CreatedAt = time.Now().UTC()
	return s.repo.SaveFeedback(ctx, fb)
}

// HandleNewMessage processes a new user message end to end: it persists the
// message, streams the model's answer into streamChan, follows up with
// suggestion parts per the stored preference, and persists the finished
// assistant message.
func (s *ChatService) HandleNewMessage(
	ctx context.Context,
	req *CreateMessageRequest,
	streamChan chan<- model.StreamEvent,
) {
	defer close(streamChan)

	isNewChat := req.ChatID == ""
	chatID := req.ChatID
	var err error
	var history []model.Message

	// Step 1: Get or Create the Chat
	if isNewChat {
		chatID = uuid.NewString()
		chat := &model.Chat{
			ID:        chatID,
			UserID:    "default-user",
			Title:     truncate(req.Content, 50),
			Model:     s.mainModel,
			CreatedAt: time.Now().UTC(),
			UpdatedAt: time.Now().UTC(),
		}
		if err := s.repo.CreateChat(ctx, chat); err != nil {
			slog.Error("Could not create chat", "error", err)
			streamChan <- model.StreamEvent{Error: "Could not create chat"}
			return
		}
	} else {
		if _, err = s.repo.GetChat(ctx, chatID); err != nil {
			slog.Error("Could not find chat", "chat_id", chatID, "error", err)
			streamChan <- model.StreamEvent{Error: "Could not find chat"}
			return
		}
		history, err = s.repo.GetMessagesByChatID(ctx, chatID)
		if err != nil {
			slog.Error("Could not load history", "chat_id", chatID, "error", err)
		}
		// A message whose last tool call has not resolved is still being
		// worked on; new submissions wait until it settles.
		if message.ToolInvocationInProgress(history) {
			streamChan <- model.StreamEvent{Error: "A tool call is still running for this chat"}
			return
		}
	}

	// Step 2: Build and save the user's message. Spreadsheet attachments are
	// expanded into text parts so the model can read them; the original file
	// part stays either way.
	userMessage := &model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleUser,
		Parts:     model.Parts{model.TextPart{Text: req.Content}},
		Timestamp: time.Now().UTC(),
	}
	for _, f := range req.Files {
		userMessage.Parts = append(userMessage.Parts, model.FilePart{
			URL:       f.URL,
			MediaType: f.MediaType,
			Filename:  f.Filename,
		})
		if s.extractor == nil || !s.extractor.Supports(f.MediaType) {
			continue
		}
		content, err := s.extractor.Process(ctx, f.URL, f.MediaType)
		if err != nil {
			slog.Warn("Could not extract file content", "filename", f.Filename, "error", err)
			continue
		}
		userMessage.Parts = append(userMessage.Parts, model.TextPart{
			Text: fmt.Sprintf("Content of %s:\n\n%s", f.Filename, content),
		})
	}
	if err := s.repo.AddMessage(ctx, userMessage, chatID); err != nil {
		slog.Error("Could not save user message", "chat_id", chatID, "error", err)
	}
	history = append(history, *userMessage)

	// Step 3: Prepare the model request from the history.
	llmMessages := []llm.Message{{Role: model.RoleSystem, Content: s.systemPrompt}}
	for _, msg := range history {
		if text := msg.PlainText(); text != "" {
			llmMessages = append(llmMessages, llm.Message{Role: msg.Role, Content: text})
		}
	}
	llmReq := &llm.GenerateRequest{Model: s.mainModel, Messages: llmMessages}

	// Step 4: Stream the answer.
	var fullResponse strings.Builder
	llmStreamChan := make(chan llm.StreamResponse)
	go func() {
		if err := s.llm.GenerateStream(ctx, llmReq, llmStreamChan); err != nil {
			slog.Error("Generate stream failed", "chat_id", chatID, "error", err)
		}
	}()

	streamFailed := false
	for chunk := range llmStreamChan {
		if chunk.Error != "" {
			slog.Error("Stream error from LLM", "error", chunk.Error)
			streamChan <- model.StreamEvent{Error: chunk.Error}
			streamFailed = true
			break
		}
		if chunk.Content != "" {
			streamChan <- model.StreamEvent{TextDelta: chunk.Content}
			fullResponse.WriteString(chunk.Content)
		}
	}

	assistantMessage := &model.Message{
		ID:        uuid.NewString(),
		Role:      model.RoleAssistant,
		Parts:     model.Parts{model.TextPart{Text: fullResponse.String()}},
		Timestamp: time.Now().UTC(),
	}

	// Step 5: Suggestions follow the completed answer, by stored preference.
	if !streamFailed && s.suggester != nil && fullResponse.Len() > 0 {
		suggestHistory := append(llmMessages[1:],
			llm.Message{Role: model.RoleAssistant, Content: fullResponse.String()})
		writer := &eventPartWriter{ch: streamChan}
		mode := s.prefs.SuggestionsMode(ctx)

		if mode == SuggestionsActionItems || mode == SuggestionsBoth {
			if items := s.suggester.StreamActionItems(ctx, writer, suggestHistory); items != nil {
				assistantMessage.Parts = append(assistantMessage.Parts, model.DataPart{
					Kind:   model.DataKindActionItems,
					ID:     uuid.NewString(),
					Status: model.DataSuccess,
					Items:  items,
				})
			}
		}
		if mode == SuggestionsRelatedQuestions || mode == SuggestionsBoth {
			if items := s.suggester.StreamRelatedQuestions(ctx, writer, suggestHistory); items != nil {
				assistantMessage.Parts = append(assistantMessage.Parts, model.DataPart{
					Kind:   model.DataKindRelatedQuestions,
					ID:     uuid.NewString(),
					Status: model.DataSuccess,
					Items:  items,
				})
			}
		}
	}

	// Step 6: Persist the assistant message and finish the stream.
	if !streamFailed {
		if err := s.repo.AddMessage(ctx, assistantMessage, chatID); err != nil {
			slog.Error("CRITICAL: could not save assistant message", "chat_id", chatID, "error", err)
			return
		}
		streamChan <- model.StreamEvent{Done: true}
	}

	if isNewChat && !streamFailed {
		go s.generateTitle(context.Background(), chatID, req.Content, fullResponse.String())
	}
}

// eventPartWriter forwards suggestion parts onto the response stream in wire
// form.
type eventPartWriter struct {
	ch chan<- model.StreamEvent
}

func (w *eventPartWriter) WritePart(ctx context.Context, p model.Part) error {
	raw, err := model.MarshalPart(p)
	if err != nil {
		return err
	}
	select {
	case w.ch <- model.StreamEvent{Part: raw}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// generateTitle creates a title for a new chat based on the initial conversation.
func (s *ChatService) generateTitle(ctx context.Context, chatID, userQuery, assistantResponse string) {
	messages := []llm.Message{
		{
			Role:    model.RoleSystem,
			Content: "You are an expert at creating short, concise titles for conversations. Respond with only the title, and nothing else.",
		},
		{
			Role: model.RoleUser,
			Content: fmt.Sprintf("Based on the following conversation, what would be a good title?\n\n---\nUser: %s\n\nAssistant: %s\n---",
				truncate(userQuery, 150),
				truncate(assistantResponse, 200),
			),
		},
	}
	req := &llm.GenerateRequest{
		Model:    s.supportModel,
		Messages: messages,
	}
	resp, err := s.llm.Generate(ctx, req)
	if err != nil {
		slog.Error("Failed to generate title", "chat_id", chatID, "error", err)
		return
	}

	newTitle := strings.TrimSpace(resp.Response)
	newTitle = strings.Trim(newTitle, `"'`)

	if newTitle == "" {
		slog.Warn("Generated title was empty after cleaning", "chat_id", chatID)
		return
	}
	if err := s.repo.UpdateChatTitle(ctx, chatID, newTitle); err != nil {
		slog.Error("Failed to update chat title", "chat_id", chatID, "error", err)
	}
}

// truncate shortens a string to a specified number of runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

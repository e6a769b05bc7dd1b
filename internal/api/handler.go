package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	app_errors "romy/backend/internal/errors"
	"romy/backend/internal/export"
	"romy/backend/internal/interfaces"
	"romy/backend/internal/model"
	"romy/backend/internal/service"
)

// ChatHandler serves the chat, preferences, feedback and export endpoints.
type ChatHandler struct {
	service interfaces.ChatService
	prefs   interfaces.PreferencesService
}

func NewChatHandler(svc interfaces.ChatService, prefs interfaces.PreferencesService) *ChatHandler {
	return &ChatHandler{service: svc, prefs: prefs}
}

// GetChats godoc
// @Summary List chats
// @Tags chats
// @Produce json
// @Success 200 {array} model.Chat
// @Router /api/v1/chats [get]
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID := "default-user"
	chats, err := h.service.ListChats(r.Context(), userID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	if chats == nil {
		chats = []*model.Chat{}
	}
	respondWithJSON(w, http.StatusOK, chats)
}

// GetChat godoc
// @Summary Get a chat with all its messages
// @Tags chats
// @Produce json
// @Param chatID path string true "Chat ID"
// @Success 200 {object} model.FullChat
// @Failure 404 {object} ErrorResponse
// @Router /api/v1/chats/{chatID} [get]
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	fullChat, err := h.service.GetFullChat(r.Context(), chatID)
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, fullChat)
}

// UpdateChatTitle godoc
// @Summary Rename a chat
// @Tags chats
// @Accept json
// @Param chatID path string true "Chat ID"
// @Param request body UpdateTitleRequest true "New title"
// @Success 200 {object} StatusResponse
// @Router /api/v1/chats/{chatID}/title [put]
func (h *ChatHandler) UpdateChatTitle(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")

	var req UpdateTitleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(req); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.service.UpdateChatTitle(r.Context(), chatID, req.Title); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleDeleteChat godoc
// @Summary Delete a chat
// @Tags chats
// @Param chatID path string true "Chat ID"
// @Success 200 {object} StatusResponse
// @Router /api/v1/chats/{chatID} [delete]
func (h *ChatHandler) HandleDeleteChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	if err := h.service.DeleteChat(r.Context(), chatID); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleFeedback godoc
// @Summary Rate an assistant message
// @Tags chats
// @Accept json
// @Param chatID path string true "Chat ID"
// @Param messageID path string true "Message ID"
// @Param request body FeedbackRequest true "Rating"
// @Success 201 {object} StatusResponse
// @Router /api/v1/chats/{chatID}/messages/{messageID}/feedback [post]
func (h *ChatHandler) HandleFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(req); err != nil {
		respondWithError(w, err)
		return
	}

	fb := &model.Feedback{
		ChatID:    chi.URLParam(r, "chatID"),
		MessageID: chi.URLParam(r, "messageID"),
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	if err := h.service.SaveFeedback(r.Context(), fb); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, StatusResponse{Status: "ok"})
}

// GetPreferences godoc
// @Summary Get user preferences
// @Tags preferences
// @Produce json
// @Success 200 {object} service.Preferences
// @Router /api/v1/preferences [get]
func (h *ChatHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.prefs.Get(r.Context())
	if err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences godoc
// @Summary Update user preferences
// @Tags preferences
// @Accept json
// @Param request body service.Preferences true "Preferences"
// @Success 200 {object} StatusResponse
// @Router /api/v1/preferences [put]
func (h *ChatHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var prefs service.Preferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		respondWithError(w, fmt.Errorf("%w: invalid request body", app_errors.ErrValidation))
		return
	}
	if err := validateRequest(prefs); err != nil {
		respondWithError(w, err)
		return
	}
	if err := h.prefs.Save(r.Context(), &prefs); err != nil {
		respondWithError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// HandleExportChat godoc
// @Summary Download a chat as Markdown or PDF
// @Tags chats
// @Param chatID path string true "Chat ID"
// @Param format query string false "md or pdf" default(md)
// @Success 200
// @Router /api/v1/chats/{chatID}/export [get]
func (h *ChatHandler) HandleExportChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatID")
	fullChat, err := h.service.GetFullChat(r.Context(), chatID)
	if err != nil {
		respondWithError(w, err)
		return
	}

	now := time.Now()
	switch format := r.URL.Query().Get("format"); format {
	case "pdf":
		data, err := export.RenderPDF(fullChat)
		if err != nil {
			respondWithError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.PDFFilename(now)))
		_, _ = w.Write(data)
	case "", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.MarkdownFilename(now)))
		_, _ = w.Write([]byte(export.RenderMarkdown(fullChat)))
	default:
		respondWithError(w, fmt.Errorf("%w: unknown export format %q", app_errors.ErrValidation, format))
	}
}

// HandleStreamMessage streams the assistant's answer over SSE: text deltas
// first, then suggestion parts, then a done event.
func (h *ChatHandler) HandleStreamMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var req service.CreateMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendStreamError(w, "Invalid request body")
		return
	}
	if err := validateRequest(req); err != nil {
		sendStreamError(w, err.Error())
		return
	}

	streamChan := make(chan model.StreamEvent)
	go h.service.HandleNewMessage(r.Context(), &req, streamChan)

	for event := range streamChan {
		if r.Context().Err() != nil {
			slog.Info("Client disconnected mid-stream")
			break
		}
		if err := writeStreamEvent(w, event); err != nil {
			slog.Warn("Could not write stream event", "error", err)
			break
		}
	}
}

package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Chat stores metadata about a conversation.
type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Model     string    `json:"model"`
}

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is a single turn in a chat: a role plus an ordered part sequence.
// Parts are mutable only by appending (or appending to the trailing text part
// in place) while the message is streaming; once the stream for the message
// completes it is immutable.
type Message struct {
	ID        string          `json:"id"`
	Role      string          `json:"role"`
	Parts     Parts           `json:"parts"`
	Timestamp time.Time       `json:"timestamp"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	// Citations maps source index -> resolved search result for this message.
	Citations CitationMap `json:"citations,omitempty"`
}

// PlainText joins the message's text parts. Used for titles, exports and the
// model-facing history.
func (m Message) PlainText() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(TextPart); ok {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// FullChat includes the chat metadata and all its messages.
type FullChat struct {
	Chat
	Messages []Message `json:"messages"`
}

// SearchResultItem is one resolved source for a citation marker.
type SearchResultItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// CitationMap maps a source index, as referenced by "[n]" markers in message
// text, to its search result. Supplied by the search pipeline and consumed
// read-only.
type CitationMap map[int]SearchResultItem

// Upload statuses.
const (
	UploadStatusUploading = "uploading"
	UploadStatusUploaded  = "uploaded"
	UploadStatusError     = "error"
)

// UploadedFile tracks one attachment through its upload lifecycle.
type UploadedFile struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	MediaType string `json:"media_type"`
	Status    string `json:"status"`
	URL       string `json:"url,omitempty"`
	Key       string `json:"key,omitempty"`
}

// Feedback is a thumbs-up/down verdict a user left on one assistant message.
type Feedback struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	MessageID string    `json:"message_id"`
	Rating    string    `json:"rating"` // "up" or "down"
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Feedback ratings.
const (
	FeedbackUp   = "up"
	FeedbackDown = "down"
)

// StreamEvent is one chunk in a streaming chat response. Exactly one of the
// payload fields is set. Part payloads reuse the part wire form.
type StreamEvent struct {
	// Part carries a complete message part or part update in wire form.
	Part json.RawMessage `json:"part,omitempty"`
	// TextDelta is an incremental append to the current text part.
	TextDelta string `json:"delta,omitempty"`
	Done      bool   `json:"done,omitempty"`
	Error     string `json:"error,omitempty"`
}

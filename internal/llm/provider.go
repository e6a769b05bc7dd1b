package llm

import (
	"context"
	"encoding/json"
	"io"
)

// Message is one model-role message sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Images holds base64-encoded image payloads for multimodal turns.
	Images []string `json:"images,omitempty"`
}

// GenerateRequest describes one model invocation.
type GenerateRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages,omitempty"`
	Stream   bool      `json:"stream"`
	// Format constrains the output, e.g. "json" for structured generation.
	Format string `json:"format,omitempty"`
}

// GenerateResponse is the non-streaming result of a model invocation.
type GenerateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// StreamResponse is one chunk of a streaming model invocation.
type StreamResponse struct {
	Content string
	Done    bool
	Error   string
}

// ArrayStream is a structured-generation stream constrained to a top-level
// JSON array: Elements yields each completed array element as it is decoded
// from the incremental model output, and Final blocks until the stream ends
// and returns the complete array.
type ArrayStream struct {
	Elements <-chan json.RawMessage
	Final    func() (json.RawMessage, error)
}

// Provider is the interface to a language-model backend.
type Provider interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
	GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error
	StreamArray(ctx context.Context, req *GenerateRequest) (*ArrayStream, error)
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

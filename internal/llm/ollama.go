package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
)

type ollamaProvider struct {
	client *http.Client
	url    string
}

// NewOllamaProvider returns a Provider backed by an Ollama-compatible HTTP
// API at the given base URL.
func NewOllamaProvider(url string) Provider {
	return &ollamaProvider{
		client: &http.Client{},
		url:    strings.TrimRight(url, "/"),
	}
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

func (p *ollamaProvider) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	req.Stream = false
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("api returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("could not decode response: %w", err)
	}
	return &GenerateResponse{
		Model:    chatResp.Model,
		Response: chatResp.Message.Content,
		Done:     chatResp.Done,
	}, nil
}

// GenerateStream streams NDJSON chunks from the chat endpoint into ch.
// The channel is closed when the stream ends, whatever the outcome.
func (p *ollamaProvider) GenerateStream(ctx context.Context, req *GenerateRequest, ch chan<- StreamResponse) error {
	defer close(ch)

	req.Stream = true
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("could not marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("api returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk ollamaChatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			ch <- StreamResponse{Error: "failed to decode stream chunk"}
			continue
		}

		select {
		case ch <- StreamResponse{Content: chunk.Message.Content, Done: chunk.Done}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}

// StreamArray runs a structured generation constrained to a JSON array and
// decodes completed elements incrementally as content chunks arrive.
func (p *ollamaProvider) StreamArray(ctx context.Context, req *GenerateRequest) (*ArrayStream, error) {
	req.Format = "json"

	inner := make(chan StreamResponse)
	elems := make(chan json.RawMessage)

	var (
		once     sync.Once
		done     = make(chan struct{})
		finalRaw json.RawMessage
		finalErr error
	)
	finish := func(raw json.RawMessage, err error) {
		once.Do(func() {
			finalRaw, finalErr = raw, err
			close(done)
		})
	}

	go func() {
		if err := p.GenerateStream(ctx, req, inner); err != nil {
			// The consumer below still drains inner (GenerateStream closes
			// it); record the transport error as the final outcome.
			finish(nil, err)
		}
	}()

	go func() {
		defer close(elems)
		var sc arrayScanner
		var full strings.Builder
		for chunk := range inner {
			if chunk.Error != "" {
				finish(nil, errors.New(chunk.Error))
				continue
			}
			full.WriteString(chunk.Content)
			for _, el := range sc.feed(chunk.Content) {
				select {
				case elems <- el:
				case <-ctx.Done():
					finish(nil, ctx.Err())
					return
				}
			}
		}

		raw := strings.TrimSpace(full.String())
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(raw), &arr); err != nil {
			finish(nil, fmt.Errorf("structured output is not a JSON array: %w", err))
			return
		}
		finish(json.RawMessage(raw), nil)
	}()

	return &ArrayStream{
		Elements: elems,
		Final: func() (json.RawMessage, error) {
			<-done
			return finalRaw, finalErr
		},
	}, nil
}

// Transcribe posts recorded audio to the OpenAI-compatible transcription
// endpoint and returns the recognized text.
func (p *ollamaProvider) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("could not create form file: %w", err)
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", fmt.Errorf("could not read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url+"/v1/audio/transcriptions", &body)
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("api returned non-200 status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}
	return out.Text, nil
}

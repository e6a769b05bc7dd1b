// Package suggest produces the structured follow-up suggestions (action
// items, related questions) streamed after an assistant turn. Each generation
// is a fail-safe side channel: every outcome, including panics and provider
// failures, ends in exactly one terminal data part and never breaks the
// response stream.
package suggest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"romy/backend/internal/llm"
	"romy/backend/internal/model"
)

// PartWriter receives data parts destined for one message's UI channel.
type PartWriter interface {
	WritePart(ctx context.Context, p model.Part) error
}

const actionItemsSystem = `You are an expert donor-research assistant. Generate a concise actionable next step (max 10-12 words) per item.`

const actionItemsInstruction = `Based on the conversation history and search results, generate 3 unique actionable next steps that would help the user move forward. Focus on practical actions they can take based on what was discussed. Respond with a JSON array of objects like {"action": "..."}.`

const relatedQuestionsSystem = `You are an expert donor-research assistant. Generate a short follow-up question per item.`

const relatedQuestionsInstruction = `Based on the conversation history, generate 3 unique follow-up questions the user is likely to ask next. Respond with a JSON array of objects like {"question": "..."}.`

const itemCount = 3

// Generator runs structured generations against the support model.
type Generator struct {
	provider llm.Provider
	model    string
	validate *validator.Validate
}

func NewGenerator(provider llm.Provider, modelName string) *Generator {
	return &Generator{
		provider: provider,
		model:    modelName,
		validate: validator.New(),
	}
}

// StreamActionItems generates exactly three actionable next steps for the
// latest assistant turn and streams them to w as a data-actionItems part.
// It returns the final items, or nil when the precondition fails or the
// generation ends in the error status.
func (g *Generator) StreamActionItems(ctx context.Context, w PartWriter, history []llm.Message) []model.SuggestionItem {
	return g.stream(ctx, w, history, kindSpec{
		kind:        model.DataKindActionItems,
		system:      actionItemsSystem,
		instruction: actionItemsInstruction,
		field:       "action",
	})
}

// StreamRelatedQuestions is the related-questions counterpart of
// StreamActionItems, emitting data-relatedQuestions parts.
func (g *Generator) StreamRelatedQuestions(ctx context.Context, w PartWriter, history []llm.Message) []model.SuggestionItem {
	return g.stream(ctx, w, history, kindSpec{
		kind:        model.DataKindRelatedQuestions,
		system:      relatedQuestionsSystem,
		instruction: relatedQuestionsInstruction,
		field:       "question",
	})
}

type kindSpec struct {
	kind        string
	system      string
	instruction string
	field       string // JSON field carrying the suggestion text
}

func (s kindSpec) item(raw json.RawMessage) (model.SuggestionItem, bool) {
	var decoded map[string]string
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return model.SuggestionItem{}, false
	}
	text := strings.TrimSpace(decoded[s.field])
	if text == "" {
		return model.SuggestionItem{}, false
	}
	if s.field == "question" {
		return model.SuggestionItem{Question: text}, true
	}
	return model.SuggestionItem{Action: text}, true
}

func (g *Generator) stream(ctx context.Context, w PartWriter, history []llm.Message, spec kindSpec) []model.SuggestionItem {
	// Suggestions only follow an assistant turn; pure user turns are skipped.
	if len(history) == 0 || history[len(history)-1].Role != model.RoleAssistant {
		return nil
	}

	partID := uuid.NewString()
	terminal := false
	emit := func(status model.DataStatus, items []model.SuggestionItem) {
		if terminal {
			return
		}
		if status == model.DataSuccess || status == model.DataError {
			terminal = true
		}
		part := model.DataPart{Kind: spec.kind, ID: partID, Status: status, Items: items}
		if err := w.WritePart(ctx, part); err != nil {
			slog.Warn("Failed to write suggestion part", "kind", spec.kind, "error", err)
		}
	}

	// Whatever happens below, the consumer sees exactly one terminal status.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Suggestion generation panicked", "kind", spec.kind, "panic", r)
		}
		emit(model.DataError, nil)
	}()

	emit(model.DataLoading, nil)

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: model.RoleSystem, Content: spec.system})
	messages = append(messages, history...)
	messages = append(messages, llm.Message{Role: model.RoleUser, Content: spec.instruction})

	stream, err := g.provider.StreamArray(ctx, &llm.GenerateRequest{Model: g.model, Messages: messages})
	if err != nil {
		slog.Error("Failed to start suggestion generation", "kind", spec.kind, "error", err)
		emit(model.DataError, nil)
		return nil
	}

	var collected []model.SuggestionItem
	for raw := range stream.Elements {
		item, ok := spec.item(raw)
		if !ok {
			continue
		}
		collected = append(collected, item)
		emit(model.DataStreaming, append([]model.SuggestionItem(nil), collected...))
	}

	if ctx.Err() != nil {
		// Cancelled mid-generation. Parts already emitted stay visible; the
		// terminal status is error.
		emit(model.DataError, nil)
		return nil
	}

	finalItems := collected
	if raw, err := stream.Final(); err != nil {
		slog.Warn("Error retrieving final suggestion object", "kind", spec.kind, "error", err)
	} else if parsed, ok := g.parseFinal(raw, spec); ok {
		finalItems = parsed
	}

	emit(model.DataSuccess, finalItems)
	return finalItems
}

// parseFinal validates the completed object against the exact-length schema.
// A well-formed array that fails validation is still accepted with a logged
// warning; anything else falls back to the incrementally collected items.
func (g *Generator) parseFinal(raw json.RawMessage, spec kindSpec) ([]model.SuggestionItem, bool) {
	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		return nil, false
	}
	items := make([]model.SuggestionItem, 0, len(elements))
	for _, el := range elements {
		if item, ok := spec.item(el); ok {
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return nil, false
	}
	if err := g.validate.Var(items, fmt.Sprintf("len=%d", itemCount)); err != nil {
		slog.Warn("Suggestion validation failed, accepting array as-is",
			"kind", spec.kind, "count", len(items), "error", err)
	}
	return items, true
}

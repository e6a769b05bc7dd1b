package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// partEnvelope is the flat wire representation shared by all part kinds.
// The Type tag decides which fields are meaningful.
type partEnvelope struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ToolCallID string          `json:"toolCallId,omitempty"`
	State      ToolState       `json:"state,omitempty"`
	Input      json.RawMessage `json:"input,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
	ErrorText  string          `json:"errorText,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	ID         string          `json:"id,omitempty"`
	Data       *dataPayload    `json:"data,omitempty"`
	URL        string          `json:"url,omitempty"`
	MediaType  string          `json:"mediaType,omitempty"`
	Filename   string          `json:"filename,omitempty"`
}

// dataPayload is the nested payload of a data part:
// {"status":"streaming","items":[...]}.
type dataPayload struct {
	Status DataStatus       `json:"status"`
	Items  []SuggestionItem `json:"items,omitempty"`
}

func envelopeFor(p Part) partEnvelope {
	switch v := p.(type) {
	case TextPart:
		return partEnvelope{Type: v.WireType(), Text: v.Text}
	case ReasoningPart:
		return partEnvelope{Type: v.WireType(), Text: v.Text}
	case ToolPart:
		return partEnvelope{
			Type:       v.WireType(),
			ToolCallID: v.ToolCallID,
			State:      v.State,
			Input:      v.Input,
			Output:     v.Output,
			ErrorText:  v.ErrorText,
		}
	case DynamicToolPart:
		return partEnvelope{
			Type:       v.WireType(),
			ToolName:   v.ToolName,
			ToolCallID: v.ToolCallID,
			State:      v.State,
			Input:      v.Input,
			Output:     v.Output,
			ErrorText:  v.ErrorText,
		}
	case DataPart:
		return partEnvelope{
			Type: v.WireType(),
			ID:   v.ID,
			Data: &dataPayload{Status: v.Status, Items: v.Items},
		}
	case FilePart:
		return partEnvelope{
			Type:      v.WireType(),
			URL:       v.URL,
			MediaType: v.MediaType,
			Filename:  v.Filename,
		}
	default:
		return partEnvelope{Type: p.WireType()}
	}
}

func (e partEnvelope) part() (Part, error) {
	switch {
	case e.Type == "text":
		return TextPart{Text: e.Text}, nil
	case e.Type == "reasoning":
		return ReasoningPart{Text: e.Text}, nil
	case e.Type == "dynamic-tool":
		return DynamicToolPart{
			ToolName:   e.ToolName,
			ToolCallID: e.ToolCallID,
			State:      e.State,
			Input:      e.Input,
			Output:     e.Output,
			ErrorText:  e.ErrorText,
		}, nil
	case e.Type == "file":
		return FilePart{URL: e.URL, MediaType: e.MediaType, Filename: e.Filename}, nil
	case strings.HasPrefix(e.Type, "tool-"):
		return ToolPart{
			Tool:       strings.TrimPrefix(e.Type, "tool-"),
			ToolCallID: e.ToolCallID,
			State:      e.State,
			Input:      e.Input,
			Output:     e.Output,
			ErrorText:  e.ErrorText,
		}, nil
	case strings.HasPrefix(e.Type, "data-"):
		p := DataPart{Kind: strings.TrimPrefix(e.Type, "data-"), ID: e.ID}
		if e.Data != nil {
			p.Status = e.Data.Status
			p.Items = e.Data.Items
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown part type %q", e.Type)
	}
}

// MarshalPart serializes a single part to its wire form.
func MarshalPart(p Part) ([]byte, error) {
	return json.Marshal(envelopeFor(p))
}

// UnmarshalPart parses a single wire-form part.
func UnmarshalPart(b []byte) (Part, error) {
	var e partEnvelope
	if err := json.Unmarshal(b, &e); err != nil {
		return nil, err
	}
	return e.part()
}

// Parts is an ordered, heterogeneous part list with a JSON codec that
// preserves the wire tags.
type Parts []Part

func (ps Parts) MarshalJSON() ([]byte, error) {
	envs := make([]partEnvelope, len(ps))
	for i, p := range ps {
		envs[i] = envelopeFor(p)
	}
	return json.Marshal(envs)
}

func (ps *Parts) UnmarshalJSON(b []byte) error {
	var envs []partEnvelope
	if err := json.Unmarshal(b, &envs); err != nil {
		return err
	}
	out := make(Parts, 0, len(envs))
	for _, e := range envs {
		p, err := e.part()
		if err != nil {
			return err
		}
		out = append(out, p)
	}
	*ps = out
	return nil
}

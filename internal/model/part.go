package model

import "encoding/json"

// Part is one typed segment of a chat message. The set of implementations is
// closed: the unexported marker method keeps external packages from adding
// variants, so the reducer can match exhaustively on the concrete types.
type Part interface {
	isPart()
	// WireType returns the string tag used on the wire for this part,
	// e.g. "text", "tool-search", "data-actionItems".
	WireType() string
}

// TextPart is plain assistant or user text. During a stream a text part is
// appended to in place and never reordered.
type TextPart struct {
	Text string
}

func (TextPart) isPart()          {}
func (TextPart) WireType() string { return "text" }

// ReasoningPart carries model reasoning text rendered inside a process segment.
type ReasoningPart struct {
	Text string
}

func (ReasoningPart) isPart()          {}
func (ReasoningPart) WireType() string { return "reasoning" }

// ToolState is the per-tool-call state machine:
//
//	input-streaming -> input-available -> (output-available | output-error)
type ToolState string

const (
	ToolInputStreaming  ToolState = "input-streaming"
	ToolInputAvailable  ToolState = "input-available"
	ToolOutputAvailable ToolState = "output-available"
	ToolOutputError     ToolState = "output-error"
)

// InProgress reports whether the tool call has not yet produced a result.
func (s ToolState) InProgress() bool {
	return s == ToolInputStreaming || s == ToolInputAvailable
}

// Terminal reports whether the state machine can no longer advance.
func (s ToolState) Terminal() bool {
	return s == ToolOutputAvailable || s == ToolOutputError
}

// ToolPart is a named tool invocation ("tool-<name>" on the wire).
type ToolPart struct {
	Tool       string
	ToolCallID string
	State      ToolState
	Input      json.RawMessage
	Output     json.RawMessage
	ErrorText  string
}

func (ToolPart) isPart()            {}
func (p ToolPart) WireType() string { return "tool-" + p.Tool }

// DynamicToolPart is a tool invocation whose name is only known at runtime.
// It is rendered standalone, never grouped into a process segment.
type DynamicToolPart struct {
	ToolName   string
	ToolCallID string
	State      ToolState
	Input      json.RawMessage
	Output     json.RawMessage
	ErrorText  string
}

func (DynamicToolPart) isPart()          {}
func (DynamicToolPart) WireType() string { return "dynamic-tool" }

// DataStatus is the lifecycle of a structured data part. The progression is
// strictly forward: loading -> streaming -> success | error.
type DataStatus string

const (
	DataLoading   DataStatus = "loading"
	DataStreaming DataStatus = "streaming"
	DataSuccess   DataStatus = "success"
	DataError     DataStatus = "error"
)

// CanAdvance reports whether a transition from s to next respects the
// forward-only progression. Terminal states never regress.
func (s DataStatus) CanAdvance(next DataStatus) bool {
	if s == DataSuccess || s == DataError {
		return false
	}
	switch next {
	case DataStreaming:
		return s == DataLoading || s == DataStreaming
	case DataSuccess, DataError:
		return true
	default:
		return false
	}
}

// Data part kinds produced by the suggestion generators.
const (
	DataKindActionItems      = "actionItems"
	DataKindRelatedQuestions = "relatedQuestions"
)

// SuggestionItem is one generated suggestion. Exactly one of Action or
// Question is set, depending on the data part kind.
type SuggestionItem struct {
	Action   string `json:"action,omitempty"`
	Question string `json:"question,omitempty"`
}

// DataPart carries application-defined structured data ("data-<kind>" on the
// wire), such as action items or related questions.
type DataPart struct {
	Kind   string
	ID     string
	Status DataStatus
	Items  []SuggestionItem
}

func (DataPart) isPart()            {}
func (p DataPart) WireType() string { return "data-" + p.Kind }

// FilePart references an uploaded attachment.
type FilePart struct {
	URL       string
	MediaType string
	Filename  string
}

func (FilePart) isPart()          {}
func (FilePart) WireType() string { return "file" }

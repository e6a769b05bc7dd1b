package message

import (
	"fmt"

	"romy/backend/internal/model"
)

// Block is one render-ready unit produced by Reduce. The set is closed.
type Block interface{ isBlock() }

// AnswerBlock is an assistant text part. ShowActions reports whether action
// controls (copy, export, feedback) may be shown under this block: only under
// the last text part, and suppressed while this message is the one actively
// streaming.
type AnswerBlock struct {
	Text        string
	IsLastText  bool
	ShowActions bool
	IsOpen      bool
}

func (AnswerBlock) isBlock() {}

// SegmentBlock is a grouped, collapsible run of non-text parts (reasoning,
// tool calls, structured data) collected between two text parts or at the
// tail of a message.
type SegmentBlock struct {
	// Key is stable across re-runs for the same part positions and is used to
	// persist the segment's expand/collapse state.
	Key    string
	Parts  model.Parts
	IsOpen bool
}

func (SegmentBlock) isBlock() {}

// DynamicToolBlock renders a dynamic tool invocation standalone.
type DynamicToolBlock struct {
	Part model.DynamicToolPart
}

func (DynamicToolBlock) isBlock() {}

// UserTextBlock is a text part of a user message.
type UserTextBlock struct {
	Text string
}

func (UserTextBlock) isBlock() {}

// UserFileBlock is a file attachment of a user message.
type UserFileBlock struct {
	File model.FilePart
}

func (UserFileBlock) isBlock() {}

// OpenStateFunc resolves the expand/collapse state for a rendering unit.
// hasNextPart reports whether any later part follows the unit in the message;
// a unit defaults open only while nothing has superseded it.
type OpenStateFunc func(id string, partType string, hasNextPart bool) bool

// Options carries the per-message flags for one Reduce run.
type Options struct {
	MessageID string
	// IsLatestMessage marks the message currently at the end of the chat.
	IsLatestMessage bool
	// StreamingDone is true once the overall response stream has finished.
	StreamingDone bool
	// GetIsOpen resolves persisted expand/collapse state. Nil falls back to
	// the recency default.
	GetIsOpen OpenStateFunc
}

func (o Options) isOpen(id, partType string, hasNextPart bool) bool {
	if o.GetIsOpen != nil {
		return o.GetIsOpen(id, partType, hasNextPart)
	}
	return !hasNextPart
}

// Reduce turns a message's current ordered part list into render blocks.
// It is a pure function of the part list and flags: re-running it on an
// unchanged input yields an identical block list, so out-of-order re-renders
// cannot desync the displayed tree from the underlying parts. All state
// mutation (open/close toggles) is delegated to the caller via GetIsOpen.
func Reduce(msg model.Message, opts Options) []Block {
	if msg.Role == model.RoleUser {
		return reduceUser(msg)
	}

	var blocks []Block
	var buffer model.Parts

	flush := func(key string, hasNextPart bool) {
		// A segment with zero buffered parts is never emitted.
		if len(buffer) == 0 {
			return
		}
		blocks = append(blocks, SegmentBlock{
			Key:    key,
			Parts:  buffer,
			IsOpen: opts.isOpen(key, buffer[0].WireType(), hasNextPart),
		})
		buffer = nil
	}

	for i, part := range msg.Parts {
		hasNextPart := i < len(msg.Parts)-1
		switch Classify(msg.Role, part).Category {
		case CategoryText:
			flush(segmentKey(opts.MessageID, i), true)

			text := part.(model.TextPart)
			isLastText := !hasLaterText(msg.Parts[i+1:])
			showActions := isLastText
			if opts.IsLatestMessage {
				showActions = isLastText && opts.StreamingDone
			}
			blocks = append(blocks, AnswerBlock{
				Text:        text.Text,
				IsLastText:  isLastText,
				ShowActions: showActions,
				IsOpen:      opts.isOpen(opts.MessageID, part.WireType(), hasNextPart),
			})

		case CategoryProcess:
			buffer = append(buffer, part)

		case CategoryDynamicTool:
			flush(segmentKey(opts.MessageID, i), true)
			blocks = append(blocks, DynamicToolBlock{Part: part.(model.DynamicToolPart)})
		}
	}
	flush(tailKey(opts.MessageID), false)

	return blocks
}

func reduceUser(msg model.Message) []Block {
	var blocks []Block
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case model.TextPart:
			blocks = append(blocks, UserTextBlock{Text: p.Text})
		case model.FilePart:
			blocks = append(blocks, UserFileBlock{File: p})
		}
	}
	return blocks
}

func hasLaterText(rest model.Parts) bool {
	for _, p := range rest {
		if _, ok := p.(model.TextPart); ok {
			return true
		}
	}
	return false
}

func segmentKey(messageID string, index int) string {
	return fmt.Sprintf("%s-proc-seg-%d", messageID, index)
}

func tailKey(messageID string) string {
	return messageID + "-proc-tail"
}

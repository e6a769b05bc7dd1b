package message_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"romy/backend/internal/message"
	"romy/backend/internal/model"
)

func assistantMessage(id string, parts ...model.Part) model.Message {
	return model.Message{ID: id, Role: model.RoleAssistant, Parts: parts}
}

func TestReduce_GroupsNonTextRunsIntoSegments(t *testing.T) {
	msg := assistantMessage("m1",
		model.ReasoningPart{Text: "thinking about foundations"},
		model.ToolPart{Tool: "search", State: model.ToolOutputAvailable},
		model.TextPart{Text: "Here is what I found."},
		model.DataPart{Kind: model.DataKindActionItems, ID: "d1", Status: model.DataSuccess},
	)

	blocks := message.Reduce(msg, message.Options{MessageID: "m1", StreamingDone: true})
	require.Len(t, blocks, 3)

	seg, ok := blocks[0].(message.SegmentBlock)
	require.True(t, ok)
	assert.Equal(t, "m1-proc-seg-2", seg.Key)
	require.Len(t, seg.Parts, 2)

	answer, ok := blocks[1].(message.AnswerBlock)
	require.True(t, ok)
	assert.Equal(t, "Here is what I found.", answer.Text)
	assert.True(t, answer.IsLastText)

	tail, ok := blocks[2].(message.SegmentBlock)
	require.True(t, ok)
	assert.Equal(t, "m1-proc-tail", tail.Key)
	require.Len(t, tail.Parts, 1)
}

func TestReduce_EmptyBufferNeverEmitsSegment(t *testing.T) {
	msg := assistantMessage("m1",
		model.TextPart{Text: "first"},
		model.TextPart{Text: "second"},
	)

	blocks := message.Reduce(msg, message.Options{MessageID: "m1", StreamingDone: true})
	require.Len(t, blocks, 2)
	for _, b := range blocks {
		_, isSegment := b.(message.SegmentBlock)
		assert.False(t, isSegment)
	}

	first := blocks[0].(message.AnswerBlock)
	second := blocks[1].(message.AnswerBlock)
	assert.False(t, first.IsLastText)
	assert.True(t, second.IsLastText)
	assert.False(t, first.ShowActions)
	assert.True(t, second.ShowActions)
}

func TestReduce_DynamicToolFlushesAndStandsAlone(t *testing.T) {
	msg := assistantMessage("m1",
		model.ReasoningPart{Text: "r"},
		model.DynamicToolPart{ToolName: "crm-lookup", State: model.ToolOutputAvailable},
		model.TextPart{Text: "done"},
	)

	blocks := message.Reduce(msg, message.Options{MessageID: "m1", StreamingDone: true})
	require.Len(t, blocks, 3)
	_, ok := blocks[0].(message.SegmentBlock)
	assert.True(t, ok)
	dyn, ok := blocks[1].(message.DynamicToolBlock)
	require.True(t, ok)
	assert.Equal(t, "crm-lookup", dyn.Part.ToolName)
	_, ok = blocks[2].(message.AnswerBlock)
	assert.True(t, ok)
}

func TestReduce_ShowActionsSuppressedWhileStreaming(t *testing.T) {
	msg := assistantMessage("m1", model.TextPart{Text: "partial answer"})

	// The latest message, still streaming: actions hidden.
	blocks := message.Reduce(msg, message.Options{
		MessageID:       "m1",
		IsLatestMessage: true,
		StreamingDone:   false,
	})
	require.Len(t, blocks, 1)
	assert.False(t, blocks[0].(message.AnswerBlock).ShowActions)

	// Same message once the stream finished: actions shown.
	blocks = message.Reduce(msg, message.Options{
		MessageID:       "m1",
		IsLatestMessage: true,
		StreamingDone:   true,
	})
	assert.True(t, blocks[0].(message.AnswerBlock).ShowActions)

	// An older message is unaffected by the stream status.
	blocks = message.Reduce(msg, message.Options{
		MessageID:       "m1",
		IsLatestMessage: false,
		StreamingDone:   false,
	})
	assert.True(t, blocks[0].(message.AnswerBlock).ShowActions)
}

func TestReduce_Deterministic(t *testing.T) {
	msg := assistantMessage("m1",
		model.ReasoningPart{Text: "r"},
		model.ToolPart{Tool: "fetch", State: model.ToolInputAvailable, Input: []byte(`{"url":"https://example.org"}`)},
		model.TextPart{Text: "answer"},
		model.DataPart{Kind: model.DataKindRelatedQuestions, ID: "d1", Status: model.DataStreaming},
	)
	opts := message.Options{MessageID: "m1", IsLatestMessage: true, StreamingDone: false}

	first := message.Reduce(msg, opts)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, message.Reduce(msg, opts))
	}
}

func TestReduce_UserMessage(t *testing.T) {
	msg := model.Message{ID: "u1", Role: model.RoleUser, Parts: model.Parts{
		model.TextPart{Text: "analyze this"},
		model.FilePart{URL: "/files/a.xlsx", MediaType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Filename: "a.xlsx"},
		// Non-text, non-file user parts are dropped.
		model.ReasoningPart{Text: "never rendered"},
	}}

	blocks := message.Reduce(msg, message.Options{MessageID: "u1"})
	require.Len(t, blocks, 2)
	assert.Equal(t, "analyze this", blocks[0].(message.UserTextBlock).Text)
	assert.Equal(t, "a.xlsx", blocks[1].(message.UserFileBlock).File.Filename)
}

func TestOpenTracker_DefaultsAndOverrides(t *testing.T) {
	tracker := message.NewOpenTracker()

	// Most recent unit defaults open, superseded units default closed.
	assert.True(t, tracker.GetIsOpen("m1-proc-tail", "reasoning", false))
	assert.False(t, tracker.GetIsOpen("m1-proc-seg-2", "reasoning", true))

	// An explicit toggle wins over the default until reset.
	tracker.OnOpenChange("m1-proc-seg-2", true)
	assert.True(t, tracker.GetIsOpen("m1-proc-seg-2", "reasoning", true))
	tracker.Reset("m1-proc-seg-2")
	assert.False(t, tracker.GetIsOpen("m1-proc-seg-2", "reasoning", true))
}

func TestToolInvocationInProgress(t *testing.T) {
	inProgress := []model.Message{
		{Role: model.RoleUser, Parts: model.Parts{model.TextPart{Text: "q"}}},
		assistantMessage("m1",
			model.TextPart{Text: "searching"},
			model.ToolPart{Tool: "search", State: model.ToolInputStreaming},
		),
	}
	assert.True(t, message.ToolInvocationInProgress(inProgress))

	// Once the tool call resolves, input is allowed again.
	done := []model.Message{
		assistantMessage("m1",
			model.ToolPart{Tool: "search", State: model.ToolOutputError},
		),
	}
	assert.False(t, message.ToolInvocationInProgress(done))

	// A trailing text part never blocks input.
	assert.False(t, message.ToolInvocationInProgress([]model.Message{
		assistantMessage("m1", model.TextPart{Text: "answer"}),
	}))
	assert.False(t, message.ToolInvocationInProgress(nil))
}

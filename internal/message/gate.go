package message

import "romy/backend/internal/model"

// ToolInvocationInProgress reports whether the last part of the last
// assistant message is a tool call that has not yet produced a result.
// Consumers must block new submissions while this returns true.
func ToolInvocationInProgress(messages []model.Message) bool {
	if len(messages) == 0 {
		return false
	}
	last := messages[len(messages)-1]
	if last.Role != model.RoleAssistant || len(last.Parts) == 0 {
		return false
	}
	switch p := last.Parts[len(last.Parts)-1].(type) {
	case model.ToolPart:
		return p.State.InProgress()
	case model.DynamicToolPart:
		return p.State.InProgress()
	default:
		return false
	}
}

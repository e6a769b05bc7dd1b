// Package message implements the streaming message-assembly pipeline: it
// classifies incoming message parts, groups consecutive non-text parts into
// collapsible "research process" segments and reduces a message's part list
// into an ordered list of render-ready blocks.
package message

import "romy/backend/internal/model"

// Category describes how a part participates in rendering.
type Category int

const (
	// CategoryText is a text part; it flushes any pending segment and is
	// rendered as an answer block.
	CategoryText Category = iota
	// CategoryProcess covers reasoning, tool and data parts; consecutive runs
	// are buffered into one segment.
	CategoryProcess
	// CategoryDynamicTool flushes the pending segment and renders standalone.
	CategoryDynamicTool
	// CategoryFile is an attachment part; only rendered for user messages.
	CategoryFile
)

// Classification tags one incoming part.
type Classification struct {
	Category     Category
	UserAuthored bool
}

// Classify categorizes a part by its concrete kind and records whether it was
// authored by the user. The match is exhaustive over the closed part set.
func Classify(role string, p model.Part) Classification {
	c := Classification{UserAuthored: role == model.RoleUser}
	switch p.(type) {
	case model.TextPart:
		c.Category = CategoryText
	case model.ReasoningPart, model.ToolPart, model.DataPart:
		c.Category = CategoryProcess
	case model.DynamicToolPart:
		c.Category = CategoryDynamicTool
	case model.FilePart:
		c.Category = CategoryFile
	}
	return c
}

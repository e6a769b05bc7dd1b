package export

import (
	"fmt"
	"strings"
	"time"

	"romy/backend/internal/citation"
	"romy/backend/internal/message"
	"romy/backend/internal/model"
)

const assistantName = "Rōmy"

// MarkdownFilename names a Markdown download for the given moment.
func MarkdownFilename(now time.Time) string {
	return fmt.Sprintf("chat-export-%s.md", now.UTC().Format("2006-01-02"))
}

// PDFFilename names a PDF download for the given moment.
func PDFFilename(now time.Time) string {
	return fmt.Sprintf("chat-export-%s.pdf", now.UTC().Format("2006-01-02"))
}

// RenderMarkdown flattens a chat into a Markdown transcript. Citation markers
// are resolved into links so the export stands on its own.
func RenderMarkdown(chat *model.FullChat) string {
	var sb strings.Builder

	title := strings.TrimSpace(chat.Title)
	if title == "" {
		title = "Conversation"
	}
	sb.WriteString("# " + title + "\n\n")

	for _, msg := range chat.Messages {
		switch msg.Role {
		case model.RoleUser:
			sb.WriteString("## You\n\n")
		case model.RoleAssistant:
			sb.WriteString("## " + assistantName + "\n\n")
		default:
			continue
		}
		text := citation.Process(renderBlocks(msg), msg.Citations)
		sb.WriteString(strings.TrimSpace(text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// renderBlocks flattens a message through the assembly reducer. Research
// process segments (reasoning, tool calls, suggestion data) stay out of the
// transcript; only answer text and attachments are exported.
func renderBlocks(msg model.Message) string {
	blocks := message.Reduce(msg, message.Options{
		MessageID:     msg.ID,
		StreamingDone: true,
	})

	var texts []string
	for _, b := range blocks {
		switch blk := b.(type) {
		case message.AnswerBlock:
			texts = append(texts, blk.Text)
		case message.UserTextBlock:
			texts = append(texts, blk.Text)
		case message.UserFileBlock:
			texts = append(texts, fmt.Sprintf("*Attachment: %s*", blk.File.Filename))
		}
	}
	return strings.Join(texts, "\n\n")
}

// RenderPDF lays the transcript out as a paginated A4 document.
func RenderPDF(chat *model.FullChat) ([]byte, error) {
	title := strings.TrimSpace(chat.Title)
	if title == "" {
		title = "Conversation"
	}

	pdf, painter := newPDF(title)
	eng := newEngine(painter)
	eng.render(tokenize(cleanText(RenderMarkdown(chat))))
	return outputPDF(pdf)
}

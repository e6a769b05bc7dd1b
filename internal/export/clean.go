// Package export renders a chat transcript to Markdown or to a paginated PDF.
// The PDF path is a small layout engine over a vector drawing surface: block
// tokenizer, inline span parser, measurement pass, paint pass.
package export

import "strings"

// The core PDF fonts only cover cp1252, so typographic characters the model
// likes to emit are folded to ASCII before layout.
var textCleaner = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	"…", "...",
	" ", " ",
	" ", " ",
	"ō", "o",
	"Ō", "O",
	"\r\n", "\n",
)

func cleanText(s string) string {
	return textCleaner.Replace(s)
}

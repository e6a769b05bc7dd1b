// Package citation rewrites inline "[n]" citation markers in finalized
// message text against a per-message source map, producing plain exportable
// Markdown for the copy and export paths.
package citation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"romy/backend/internal/model"
)

var markerRe = regexp.MustCompile(`\[(\d+)\]`)

// Process replaces every "[n]" marker whose source index resolves in the map
// with a Markdown link to the source. Markers that do not resolve are left
// untouched, and a bracketed number that is already the label of a Markdown
// link ("[3](url)") is never rewritten. The map is consumed read-only.
func Process(text string, citations model.CitationMap) string {
	if text == "" || len(citations) == 0 {
		return text
	}

	matches := markerRe.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	last := 0
	for _, m := range matches {
		start, end := m[0], m[1]
		b.WriteString(text[last:start])
		last = end

		marker := text[start:end]
		// "[3](...)" is an existing link label, not a citation marker.
		if end < len(text) && text[end] == '(' {
			b.WriteString(marker)
			continue
		}

		n, err := strconv.Atoi(text[m[2]:m[3]])
		if err != nil {
			b.WriteString(marker)
			continue
		}
		item, ok := citations[n]
		if !ok || item.URL == "" {
			b.WriteString(marker)
			continue
		}
		title := item.Title
		if title == "" {
			title = fmt.Sprintf("Source %d", n)
		}
		fmt.Fprintf(&b, "[%s](%s)", title, item.URL)
	}
	b.WriteString(text[last:])
	return b.String()
}

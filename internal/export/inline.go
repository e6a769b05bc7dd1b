package export

import (
	"regexp"
	"sort"
)

// Style selects the font variant for a run of text.
type Style struct {
	Bold      bool
	Italic    bool
	Mono      bool
	Underline bool
}

// Run is a stretch of text sharing one style. Link carries the target URL
// for clickable spans.
type Run struct {
	Text  string
	Style Style
	Link  string
}

var (
	linkRe       = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldRe       = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	// Go's regexp has no lookbehind to keep this from matching inside bold
	// markers; overlap with already-claimed bold spans is filtered instead.
	italicRe = regexp.MustCompile(`\*([^*]+)\*`)
)

type span struct {
	start, end int
	run        Run
}

// parseInline splits one line of Markdown into styled runs. Patterns are
// matched in priority order (links, code, bold, italic) and a span that
// overlaps an earlier claim is dropped, so `**a *b* c**` stays one bold run.
func parseInline(text string) []Run {
	var spans []span

	claim := func(start, end int) bool {
		for _, s := range spans {
			if start < s.end && end > s.start {
				return false
			}
		}
		return true
	}

	for _, m := range linkRe.FindAllStringSubmatchIndex(text, -1) {
		if claim(m[0], m[1]) {
			spans = append(spans, span{m[0], m[1], Run{
				Text: text[m[2]:m[3]],
				Link: text[m[4]:m[5]],
			}})
		}
	}
	for _, m := range inlineCodeRe.FindAllStringSubmatchIndex(text, -1) {
		if claim(m[0], m[1]) {
			spans = append(spans, span{m[0], m[1], Run{
				Text:  text[m[2]:m[3]],
				Style: Style{Mono: true},
			}})
		}
	}
	for _, m := range boldRe.FindAllStringSubmatchIndex(text, -1) {
		if claim(m[0], m[1]) {
			spans = append(spans, span{m[0], m[1], Run{
				Text:  text[m[2]:m[3]],
				Style: Style{Bold: true},
			}})
		}
	}
	for _, m := range italicRe.FindAllStringSubmatchIndex(text, -1) {
		if claim(m[0], m[1]) {
			spans = append(spans, span{m[0], m[1], Run{
				Text:  text[m[2]:m[3]],
				Style: Style{Italic: true},
			}})
		}
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	var runs []Run
	pos := 0
	for _, s := range spans {
		if s.start > pos {
			runs = append(runs, Run{Text: text[pos:s.start]})
		}
		runs = append(runs, s.run)
		pos = s.end
	}
	if pos < len(text) {
		runs = append(runs, Run{Text: text[pos:]})
	}
	if len(runs) == 0 {
		runs = []Run{{Text: text}}
	}
	return runs
}

// stripInline flattens a line to plain text, for contexts that cannot carry
// styling (table cells, document titles).
func stripInline(text string) string {
	var out string
	for _, r := range parseInline(text) {
		out += r.Text
	}
	return out
}

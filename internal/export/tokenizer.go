package export

import (
	"regexp"
	"strings"
)

type blockKind int

const (
	blockParagraph blockKind = iota
	blockHeading
	blockListItem
	blockQuote
	blockCode
	blockTable
	blockRule
	blockSpacer
)

// Font sizes in points. Headings past level four render at body size.
const (
	sizeH1   = 18.0
	sizeH2   = 16.0
	sizeH3   = 14.0
	sizeH4   = 12.0
	sizeBody = 11.0
	sizeCode = 9.0
)

var headingSizes = map[int]float64{1: sizeH1, 2: sizeH2, 3: sizeH3, 4: sizeH4}

type block struct {
	kind   blockKind
	runs   []Run
	size   float64
	indent float64 // mm from the left margin
	gray   bool    // blockquote body color
	lines  []string
	table  [][]string
}

var (
	headingRe  = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	ruleRe     = regexp.MustCompile(`^\s*(-{3,}|\*{3,}|_{3,})\s*$`)
	listRe     = regexp.MustCompile(`^(\s*)([-*+]|\d+\.)\s+(.*)$`)
	quoteRe    = regexp.MustCompile(`^>\s?(.*)$`)
	tableSepRe = regexp.MustCompile(`^\|?[\s:|-]+\|[\s:|-]*$`)
)

// tokenize splits cleaned Markdown into layout blocks, one pass over the
// lines. Fenced code and tables consume multiple lines; everything else maps
// one line to one block.
func tokenize(content string) []block {
	lines := strings.Split(content, "\n")
	var blocks []block

	for i := 0; i < len(lines); i++ {
		line := lines[i]
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "```"):
			var code []string
			for i++; i < len(lines); i++ {
				if strings.HasPrefix(strings.TrimSpace(lines[i]), "```") {
					break
				}
				code = append(code, lines[i])
			}
			blocks = append(blocks, block{kind: blockCode, lines: code, size: sizeCode})

		case trimmed == "":
			blocks = append(blocks, block{kind: blockSpacer})

		case ruleRe.MatchString(trimmed):
			blocks = append(blocks, block{kind: blockRule})

		case headingRe.MatchString(trimmed):
			m := headingRe.FindStringSubmatch(trimmed)
			size, ok := headingSizes[len(m[1])]
			if !ok {
				size = sizeBody
			}
			runs := parseInline(m[2])
			for j := range runs {
				runs[j].Style.Bold = true
			}
			blocks = append(blocks, block{kind: blockHeading, runs: runs, size: size})

		case strings.HasPrefix(trimmed, "|") && i+1 < len(lines) && tableSepRe.MatchString(strings.TrimSpace(lines[i+1])):
			rows := [][]string{parseTableRow(trimmed)}
			i++ // separator row carries no data
			for i+1 < len(lines) && strings.HasPrefix(strings.TrimSpace(lines[i+1]), "|") {
				i++
				rows = append(rows, parseTableRow(strings.TrimSpace(lines[i])))
			}
			blocks = append(blocks, block{kind: blockTable, table: rows, size: sizeBody})

		case quoteRe.MatchString(trimmed):
			m := quoteRe.FindStringSubmatch(trimmed)
			runs := parseInline(m[1])
			for j := range runs {
				runs[j].Style.Italic = true
			}
			blocks = append(blocks, block{kind: blockQuote, runs: runs, size: sizeBody, indent: 5, gray: true})

		case listRe.MatchString(line):
			m := listRe.FindStringSubmatch(line)
			marker := "• "
			if m[2] != "-" && m[2] != "*" && m[2] != "+" {
				marker = m[2] + " "
			}
			runs := append([]Run{{Text: marker}}, parseInline(m[3])...)
			indent := 5 + float64(len(m[1]))/2*2.5
			blocks = append(blocks, block{kind: blockListItem, runs: runs, size: sizeBody, indent: indent})

		default:
			blocks = append(blocks, block{kind: blockParagraph, runs: parseInline(trimmed), size: sizeBody})
		}
	}
	return blocks
}

// parseTableRow splits a pipe-delimited row into plain-text cells.
func parseTableRow(line string) []string {
	line = strings.Trim(line, "|")
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for _, p := range parts {
		cells = append(cells, stripInline(strings.TrimSpace(p)))
	}
	return cells
}

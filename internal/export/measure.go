package export

// Page geometry in millimeters (A4 portrait).
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	pageMargin   = 20.0
	contentWidth = pageWidth - 2*pageMargin

	// One PDF point in millimeters; line height tracks the font size.
	ptToMM = 0.352778

	minRowHeight    = 8.0
	headerRowHeight = 9.0
	cellPadding     = 2.0
	codeLineHeight  = 4.5
	codePadding     = 3.0
)

func lineHeight(size float64) float64 { return size * ptToMM }

// TextMeasurer reports rendered text width for the current font. Painter
// implementations provide it; tests substitute a deterministic fake.
type TextMeasurer interface {
	SetFont(size float64, style Style)
	TextWidth(text string) float64
}

// wrapPlain word-wraps text to the given width, hard-splitting any word that
// is wider than a whole line. The measurer's font must already be set.
func wrapPlain(m TextMeasurer, text string, width float64) []string {
	if text == "" {
		return []string{""}
	}
	var lines []string
	current := ""
	flush := func() {
		lines = append(lines, current)
		current = ""
	}

	for _, word := range splitWords(text) {
		candidate := current
		if candidate != "" {
			candidate += " "
		}
		candidate += word

		if m.TextWidth(candidate) <= width {
			current = candidate
			continue
		}
		if current != "" {
			flush()
		}
		// Hard split: the word alone overflows the line.
		for m.TextWidth(word) > width && len(word) > 1 {
			cut := len(word)
			for cut > 1 && m.TextWidth(word[:cut]) > width {
				cut--
			}
			lines = append(lines, word[:cut])
			word = word[cut:]
		}
		current = word
	}
	if current != "" {
		flush()
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	return lines
}

func splitWords(text string) []string {
	var words []string
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == ' ' {
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// tableLayout is the measured geometry of one table: column widths summing to
// the content width and per-row wrapped cell lines with row heights.
type tableLayout struct {
	widths  []float64
	rows    [][][]string // row -> column -> wrapped lines
	heights []float64
}

// measureTable does the first of the two table passes: natural column widths
// scaled into the content width, then wrapped cell text and row heights.
func measureTable(m TextMeasurer, rows [][]string) tableLayout {
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	if cols == 0 {
		return tableLayout{}
	}

	natural := make([]float64, cols)
	for r, row := range rows {
		style := Style{}
		if r == 0 {
			style = Style{Bold: true}
		}
		m.SetFont(sizeBody, style)
		for c, cell := range row {
			if w := m.TextWidth(cell) + 2*cellPadding; w > natural[c] {
				natural[c] = w
			}
		}
	}

	total := 0.0
	for c := range natural {
		if natural[c] < 3*cellPadding {
			natural[c] = 3 * cellPadding
		}
		total += natural[c]
	}
	// Scale to exactly fill the content width, shrinking wide tables and
	// stretching narrow ones.
	widths := make([]float64, cols)
	for c := range natural {
		widths[c] = natural[c] / total * contentWidth
	}

	layout := tableLayout{widths: widths}
	lh := lineHeight(sizeBody)
	for r, row := range rows {
		style := Style{}
		minH := minRowHeight
		if r == 0 {
			style = Style{Bold: true}
			minH = headerRowHeight
		}
		m.SetFont(sizeBody, style)

		cells := make([][]string, cols)
		maxLines := 1
		for c := 0; c < cols; c++ {
			text := ""
			if c < len(row) {
				text = row[c]
			}
			cells[c] = wrapPlain(m, text, widths[c]-2*cellPadding)
			if len(cells[c]) > maxLines {
				maxLines = len(cells[c])
			}
		}
		h := float64(maxLines)*lh + 2*cellPadding
		if h < minH {
			h = minH
		}
		layout.rows = append(layout.rows, cells)
		layout.heights = append(layout.heights, h)
	}
	return layout
}

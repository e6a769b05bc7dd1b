package export

// Painter is the drawing surface the layout engine paints onto. Coordinates
// are millimeters from the page's top-left corner; Text draws with the
// baseline at y.
type Painter interface {
	TextMeasurer
	Text(x, y float64, text string)
	SetTextColor(r, g, b int)
	FillRect(x, y, w, h float64, r, g, b int)
	StrokeRect(x, y, w, h float64)
	Line(x1, y1, x2, y2 float64)
	LinkArea(x, y, w, h float64, url string)
	AddPage()
}

var (
	colorBody   = [3]int{33, 37, 41}
	colorMuted  = [3]int{100, 108, 116}
	colorLink   = [3]int{37, 99, 235}
	colorCodeBg = [3]int{244, 246, 248}
	colorZebra  = [3]int{248, 249, 250}
	colorHeader = [3]int{226, 232, 240}
	colorGrid   = [3]int{200, 205, 210}
)

// engine walks blocks top to bottom, breaking pages whenever the next piece
// of output would cross the bottom margin.
type engine struct {
	p Painter
	y float64
}

func newEngine(p Painter) *engine {
	return &engine{p: p, y: pageMargin}
}

func (e *engine) bottom() float64 { return pageHeight - pageMargin }

// ensure starts a new page unless h more millimeters fit on this one.
func (e *engine) ensure(h float64) {
	if e.y+h > e.bottom() {
		e.p.AddPage()
		e.y = pageMargin
	}
}

func (e *engine) render(blocks []block) {
	for _, b := range blocks {
		switch b.kind {
		case blockSpacer:
			e.y += 3
		case blockRule:
			e.renderRule()
		case blockHeading:
			e.y += 2
			e.renderRuns(b)
			e.y += 1.5
		case blockCode:
			e.renderCode(b.lines)
		case blockTable:
			e.renderTable(b.table)
		default:
			e.renderRuns(b)
		}
	}
}

func (e *engine) renderRule() {
	e.ensure(6)
	c := colorGrid
	e.p.SetTextColor(c[0], c[1], c[2])
	e.p.Line(pageMargin, e.y+3, pageWidth-pageMargin, e.y+3)
	e.y += 6
}

type frag struct {
	text string
	run  Run
	x, w float64
}

// renderRuns wraps a block's styled runs into lines and paints them. Styles
// can change mid-line, so wrapping tracks fragments rather than plain words.
func (e *engine) renderRuns(b block) {
	lh := lineHeight(b.size)
	left := pageMargin + b.indent
	right := pageWidth - pageMargin

	var line []frag
	x := left

	flush := func() {
		e.ensure(lh)
		for _, f := range line {
			e.p.SetFont(b.size, f.run.Style)
			switch {
			case f.run.Link != "":
				e.p.SetTextColor(colorLink[0], colorLink[1], colorLink[2])
			case b.gray:
				e.p.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
			default:
				e.p.SetTextColor(colorBody[0], colorBody[1], colorBody[2])
			}
			e.p.Text(f.x, e.y+0.85*lh, f.text)
			if f.run.Link != "" {
				e.p.LinkArea(f.x, e.y, f.w, lh, f.run.Link)
			}
		}
		line = nil
		x = left
		e.y += lh
	}

	spaceW := func(r Run) float64 {
		e.p.SetFont(b.size, r.Style)
		return e.p.TextWidth(" ")
	}

	for _, run := range b.runs {
		style := run.Style
		if run.Link != "" {
			style.Underline = true
			run.Style = style
		}
		e.p.SetFont(b.size, style)
		for _, word := range splitWords(run.Text) {
			w := e.p.TextWidth(word)
			pad := 0.0
			if len(line) > 0 {
				pad = spaceW(run)
				e.p.SetFont(b.size, style)
			}
			if x+pad+w > right && len(line) > 0 {
				flush()
				pad = 0
			}
			// A single word wider than the line gets hard-split.
			for x+w > right && len(word) > 1 {
				cut := len(word)
				for cut > 1 && x+e.p.TextWidth(word[:cut]) > right {
					cut--
				}
				line = append(line, frag{text: word[:cut], run: run, x: x, w: e.p.TextWidth(word[:cut])})
				flush()
				word = word[cut:]
				w = e.p.TextWidth(word)
			}
			line = append(line, frag{text: word, run: run, x: x + pad, w: w})
			x += pad + w
		}
	}
	if len(line) > 0 {
		flush()
	}
	e.y += 1 // paragraph gap
}

func (e *engine) renderCode(lines []string) {
	if len(lines) == 0 {
		return
	}
	e.p.SetFont(sizeCode, Style{Mono: true})

	// Long lines wrap at the padded width before any drawing happens.
	var wrapped []string
	for _, l := range lines {
		wrapped = append(wrapped, wrapPlain(e.p, l, contentWidth-2*codePadding)...)
	}

	for len(wrapped) > 0 {
		avail := e.bottom() - e.y
		fit := int((avail - 2*codePadding) / codeLineHeight)
		if fit < 1 {
			e.p.AddPage()
			e.y = pageMargin
			continue
		}
		if fit > len(wrapped) {
			fit = len(wrapped)
		}
		h := float64(fit)*codeLineHeight + 2*codePadding
		e.p.FillRect(pageMargin, e.y, contentWidth, h, colorCodeBg[0], colorCodeBg[1], colorCodeBg[2])
		e.p.SetFont(sizeCode, Style{Mono: true})
		e.p.SetTextColor(colorBody[0], colorBody[1], colorBody[2])
		for i := 0; i < fit; i++ {
			e.p.Text(pageMargin+codePadding, e.y+codePadding+float64(i)*codeLineHeight+0.85*codeLineHeight, wrapped[i])
		}
		e.y += h + 2
		wrapped = wrapped[fit:]
	}
}

func (e *engine) renderTable(rows [][]string) {
	layout := measureTable(e.p, rows)
	if len(layout.rows) == 0 {
		return
	}
	lh := lineHeight(sizeBody)

	for r, cells := range layout.rows {
		h := layout.heights[r]
		e.ensure(h)

		switch {
		case r == 0:
			e.p.FillRect(pageMargin, e.y, contentWidth, h, colorHeader[0], colorHeader[1], colorHeader[2])
		case r%2 == 0:
			e.p.FillRect(pageMargin, e.y, contentWidth, h, colorZebra[0], colorZebra[1], colorZebra[2])
		}

		style := Style{}
		if r == 0 {
			style = Style{Bold: true}
		}
		e.p.SetFont(sizeBody, style)
		e.p.SetTextColor(colorBody[0], colorBody[1], colorBody[2])

		x := pageMargin
		for c, lines := range cells {
			for i, l := range lines {
				e.p.Text(x+cellPadding, e.y+cellPadding+float64(i)*lh+0.85*lh, l)
			}
			e.p.StrokeRect(x, e.y, layout.widths[c], h)
			x += layout.widths[c]
		}
		e.y += h
	}
	e.y += 3
}

package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// fpdfPainter adapts an fpdf document to the Painter surface. The core
// fonts only speak cp1252, so every string passes through the unicode
// translator on its way in.
type fpdfPainter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newPDF(title string) (*fpdf.Fpdf, *fpdfPainter) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(cleanText(title), true)
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	// The layout engine owns pagination; automatic breaks would fight it.
	pdf.SetAutoPageBreak(false, 0)
	pdf.AliasNbPages("")

	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetHeaderFunc(func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
		pdf.Text(pageWidth-pageMargin-pdf.GetStringWidth("Romy"), 12, "Romy")
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(colorMuted[0], colorMuted[1], colorMuted[2])
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	return pdf, &fpdfPainter{pdf: pdf, tr: tr}
}

func (p *fpdfPainter) SetFont(size float64, style Style) {
	family := "Helvetica"
	if style.Mono {
		family = "Courier"
	}
	variant := ""
	if style.Bold {
		variant += "B"
	}
	if style.Italic {
		variant += "I"
	}
	if style.Underline {
		variant += "U"
	}
	p.pdf.SetFont(family, variant, size)
}

func (p *fpdfPainter) TextWidth(text string) float64 {
	return p.pdf.GetStringWidth(p.tr(text))
}

func (p *fpdfPainter) Text(x, y float64, text string) {
	p.pdf.Text(x, y, p.tr(text))
}

func (p *fpdfPainter) SetTextColor(r, g, b int) {
	p.pdf.SetTextColor(r, g, b)
}

func (p *fpdfPainter) FillRect(x, y, w, h float64, r, g, b int) {
	p.pdf.SetFillColor(r, g, b)
	p.pdf.Rect(x, y, w, h, "F")
}

func (p *fpdfPainter) StrokeRect(x, y, w, h float64) {
	p.pdf.SetDrawColor(colorGrid[0], colorGrid[1], colorGrid[2])
	p.pdf.SetLineWidth(0.2)
	p.pdf.Rect(x, y, w, h, "D")
}

func (p *fpdfPainter) Line(x1, y1, x2, y2 float64) {
	p.pdf.SetDrawColor(colorGrid[0], colorGrid[1], colorGrid[2])
	p.pdf.SetLineWidth(0.3)
	p.pdf.Line(x1, y1, x2, y2)
}

func (p *fpdfPainter) LinkArea(x, y, w, h float64, url string) {
	p.pdf.LinkString(x, y, w, h, url)
}

func (p *fpdfPainter) AddPage() {
	p.pdf.AddPage()
}

func outputPDF(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("could not render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

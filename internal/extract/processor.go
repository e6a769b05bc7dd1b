// Package extract turns uploaded spreadsheet files into Markdown tables so
// their contents can travel inside a chat message as plain text.
package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	// maxRows bounds how many spreadsheet rows reach the model context.
	maxRows = 1000
	// maxChars bounds the extracted text itself.
	maxChars = 100000

	truncationMarker = "\n... [truncated]"
)

const (
	MediaTypeCSV  = "text/csv"
	MediaTypeXLS  = "application/vnd.ms-excel"
	MediaTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Processor fetches uploaded files and extracts their tabular content.
type Processor struct {
	client *http.Client
}

func NewProcessor(client *http.Client) *Processor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Processor{client: client}
}

// Supports reports whether Process can extract content for the media type.
// Images and PDFs are passed to the model directly and are not handled here.
func (p *Processor) Supports(mediaType string) bool {
	switch mediaType {
	case MediaTypeCSV, MediaTypeXLS, MediaTypeXLSX:
		return true
	}
	return false
}

// Process downloads the file at url and returns its content as Markdown.
// Callers should treat an error as "keep the original file part": extraction
// is an enrichment, not a gate.
func (p *Processor) Process(ctx context.Context, url, mediaType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("could not fetch file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching file returned status %d", resp.StatusCode)
	}

	switch mediaType {
	case MediaTypeCSV:
		return p.extractCSV(resp.Body)
	case MediaTypeXLS, MediaTypeXLSX:
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("could not read file: %w", err)
		}
		return p.extractWorkbook(data)
	default:
		return "", fmt.Errorf("unsupported media type %q", mediaType)
	}
}

func (p *Processor) extractCSV(r io.Reader) (string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	truncated := false
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("could not parse csv: %w", err)
		}
		if len(rows) >= maxRows {
			truncated = true
			break
		}
		rows = append(rows, record)
	}

	var sb strings.Builder
	writeTable(&sb, rows)
	if truncated {
		sb.WriteString(truncationMarker)
	}
	return capChars(sb.String()), nil
}

func (p *Processor) extractWorkbook(data []byte) (string, error) {
	wb, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("could not open workbook: %w", err)
	}
	defer wb.Close()

	var sb strings.Builder
	remaining := maxRows
	truncated := false

	for i, sheet := range wb.GetSheetList() {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("could not read sheet %q: %w", sheet, err)
		}
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "## Sheet: %s\n\n", sheet)

		if len(rows) > remaining {
			rows = rows[:remaining]
			truncated = true
		}
		remaining -= len(rows)
		writeTable(&sb, rows)
		if remaining <= 0 {
			truncated = truncated || i < len(wb.GetSheetList())-1
			break
		}
	}
	if truncated {
		sb.WriteString(truncationMarker)
	}
	return capChars(sb.String()), nil
}

// writeTable renders rows as a Markdown pipe table, treating the first row as
// the header.
func writeTable(sb *strings.Builder, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	width := 0
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	writeRow := func(row []string) {
		sb.WriteString("|")
		for c := 0; c < width; c++ {
			cell := ""
			if c < len(row) {
				cell = row[c]
			}
			cell = strings.ReplaceAll(cell, "|", "\\|")
			cell = strings.ReplaceAll(cell, "\n", " ")
			sb.WriteString(" " + strings.TrimSpace(cell) + " |")
		}
		sb.WriteString("\n")
	}

	writeRow(rows[0])
	sb.WriteString("|")
	for c := 0; c < width; c++ {
		sb.WriteString(" --- |")
	}
	sb.WriteString("\n")
	for _, row := range rows[1:] {
		writeRow(row)
	}
}

// capChars truncates on a rune boundary so the marker never splits a
// multi-byte character.
func capChars(s string) string {
	if len(s) <= maxChars {
		return s
	}
	cut := maxChars
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncationMarker
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

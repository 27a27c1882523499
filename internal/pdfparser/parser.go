// =============================================================================
// Statement Ingest - Document Extractor
// =============================================================================
//
// This module reads PDF statements into a RawTable.
//
// EXTRACTION PROCESS (per page):
//   1. Build the page layout: glyphs merged into words and lines, thin
//      rectangles kept as ruling lines
//   2. If the rules form a table, the table's first row is the header
//      (col_N for empty cells) and each later non-blank row is a data row;
//      a table needs at least two rows to contribute anything
//   3. If the page has no table, every text line is scanned for a date and
//      an amount (see ParseTextLine); other lines are dropped
//
// Scanned pages carry no text and yield nothing; there is no OCR.
//
// =============================================================================

package pdfparser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

const (
	// FileType is the diagnostics file_type of every document.
	FileType = "pdf"

	// NoRowsWarning is reported when no page yielded a row.
	NoRowsWarning = "No tabular data found in PDF"
)

// PDFData represents the rows recovered from all pages.
type PDFData struct {
	// Headers contains every column label in order of first appearance.
	Headers []string

	// Rows contains the recovered rows. Columns a row does not have are empty.
	Rows []types.Row

	// PagesRead is the number of pages in the document.
	PagesRead int

	// RowCount is the number of recovered rows.
	RowCount int

	// Warning is set when nothing was recovered.
	Warning string
}

// Table returns the recovered rows as a RawTable.
func (d *PDFData) Table() types.RawTable {
	return types.RawTable{Columns: d.Headers, Rows: d.Rows}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads every page of a PDF document.
//
// RETURNS:
//   - The recovered rows.
//   - A *types.ParseError if the document structure cannot be read.
func Parse(content []byte) (*PDFData, error) {
	pages, err := readPages(content)
	if err != nil {
		return nil, &types.ParseError{Format: FileType, Cause: err}
	}
	return Extract(pages), nil
}

// readPages builds the layout of every page. The pdf package panics on
// malformed content streams; that is reported as an error.
func readPages(content []byte) (pages []PageLayout, err error) {
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	numPages := reader.NumPage()
	pages = make([]PageLayout, 0, numPages)

	// Pages are 1-indexed.
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, PageLayout{})
			continue
		}

		text := page.Content()

		glyphs := make([]Glyph, 0, len(text.Text))
		for _, t := range text.Text {
			glyphs = append(glyphs, Glyph{S: t.S, X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize})
		}

		rects := make([]Rect, 0, len(text.Rect))
		for _, r := range text.Rect {
			rects = append(rects, Rect{X0: r.Min.X, Y0: r.Min.Y, X1: r.Max.X, Y1: r.Max.Y})
		}

		pages = append(pages, NewPageLayout(glyphs, rects))
	}

	return pages, nil
}

// Extract recovers rows from already laid-out pages.
func Extract(pages []PageLayout) *PDFData {
	data := &PDFData{PagesRead: len(pages), Rows: []types.Row{}}
	columns := newColumnSet()

	for _, page := range pages {
		table := page.Table()

		if table == nil {
			for _, line := range page.Lines {
				if row, ok := ParseTextLine(line.Text()); ok {
					columns.add(ColumnDate, ColumnDescription, ColumnAmount)
					data.Rows = append(data.Rows, row)
				}
			}
			continue
		}

		if len(table) < 2 {
			continue
		}

		headers := tableHeaders(table[0])
		columns.add(headers...)

		for _, cells := range table[1:] {
			if isRowEmpty(cells) {
				continue
			}
			row := make(types.Row, len(headers))
			for i, cell := range cells {
				if i < len(headers) {
					row[headers[i]] = strings.TrimSpace(cell)
				}
			}
			data.Rows = append(data.Rows, row)
		}
	}

	data.Headers = columns.labels
	data.RowCount = len(data.Rows)
	if data.RowCount == 0 {
		data.Warning = NoRowsWarning
	}

	// Rows from different tables may not share every column.
	for _, row := range data.Rows {
		for _, label := range data.Headers {
			if _, ok := row[label]; !ok {
				row[label] = ""
			}
		}
	}

	return data
}

// tableHeaders names empty header cells col_N, N being the 0-indexed
// column position.
func tableHeaders(cells []string) []string {
	headers := make([]string, len(cells))
	for i, cell := range cells {
		cell = strings.TrimSpace(cell)
		if cell == "" {
			cell = fmt.Sprintf("col_%d", i)
		}
		headers[i] = cell
	}
	return headers
}

func isRowEmpty(cells []string) bool {
	for _, cell := range cells {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

type columnSet struct {
	labels []string
	seen   map[string]bool
}

func newColumnSet() *columnSet {
	return &columnSet{seen: make(map[string]bool)}
}

func (s *columnSet) add(labels ...string) {
	for _, label := range labels {
		if s.seen[label] {
			continue
		}
		s.seen[label] = true
		s.labels = append(s.labels, label)
	}
}

// =============================================================================
// Statement Ingest - Spreadsheet Extractor
// =============================================================================
//
// This module reads spreadsheet statements into a RawTable. Only the first
// sheet is read; the first non-blank row of that sheet is the header.
//
// SUPPORTED FORMATS:
//   - .xlsx (Office Open XML) via excelize
//   - .xls (BIFF8) via xlsReader; bank portals often serve OOXML content
//     with an .xls name, so a failed BIFF read is retried as OOXML
//
// ERRORS:
//   Any failure of the underlying library is returned as *types.ParseError
//   wrapping the library's error.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/shakinm/xlsReader/xls"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// FileType is the diagnostics file_type of every spreadsheet.
const FileType = "excel"

// =============================================================================
// SHEET DATA STRUCTURE
// =============================================================================

// SheetData represents the first sheet of a workbook.
type SheetData struct {
	// Headers contains the cleaned column labels in source order.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []types.Row

	// SheetName is the name of the sheet that was read.
	SheetName string

	// Format is "xlsx" or "xls", whichever reader succeeded.
	Format string

	// RowCount is the number of data rows (excluding the header).
	RowCount int

	// ColumnCount is the number of columns in the header.
	ColumnCount int
}

// Table returns the sheet as a RawTable.
func (d *SheetData) Table() types.RawTable {
	return types.RawTable{Columns: d.Headers, Rows: d.Rows}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads the first sheet of a workbook.
//
// PARAMETERS:
//   - content: The raw file bytes.
//   - ext: The file extension (".xlsx" or ".xls"), case-insensitive.
//
// RETURNS:
//   - The sheet data.
//   - A *types.ParseError if the workbook cannot be read.
func Parse(content []byte, ext string) (*SheetData, error) {
	var (
		rows      [][]string
		sheetName string
		format    string
		err       error
	)

	switch strings.ToLower(ext) {
	case ".xls":
		rows, sheetName, err = readXLS(content)
		format = "xls"
		if err != nil {
			if ooxmlRows, ooxmlSheet, ooxmlErr := readXLSX(content); ooxmlErr == nil {
				rows, sheetName, format, err = ooxmlRows, ooxmlSheet, "xlsx", nil
			}
		}
	case ".xlsx":
		rows, sheetName, err = readXLSX(content)
		format = "xlsx"
	default:
		return nil, &types.ParseError{Format: FileType, Cause: fmt.Errorf("not a spreadsheet extension: %q", ext)}
	}

	if err != nil {
		return nil, &types.ParseError{Format: FileType, Cause: err}
	}

	data := buildSheetData(rows)
	data.SheetName = sheetName
	data.Format = format
	return data, nil
}

// readXLSX returns the rows of the first sheet of an OOXML workbook.
func readXLSX(content []byte) ([][]string, string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open xlsx workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, "", fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, "", fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return rows, sheets[0], nil
}

// readXLS returns the rows of the first sheet of a BIFF workbook.
// xlsReader panics on some truncated files; that is reported as an error.
func readXLS(content []byte) (rows [][]string, sheetName string, err error) {
	defer func() {
		if r := recover(); r != nil {
			rows, sheetName, err = nil, "", fmt.Errorf("malformed xls workbook: %v", r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open xls workbook: %w", err)
	}
	if workbook.GetNumberSheets() == 0 {
		return nil, "", fmt.Errorf("workbook has no sheets")
	}

	sheet, err := workbook.GetSheet(0)
	if err != nil || sheet == nil {
		return nil, "", fmt.Errorf("failed to read first sheet: %v", err)
	}

	for _, row := range sheet.GetRows() {
		if row == nil {
			rows = append(rows, nil)
			continue
		}

		var cells []string
		for _, cell := range row.GetCols() {
			if cell == nil {
				cells = append(cells, "")
				continue
			}
			cells = append(cells, cell.GetString())
		}
		rows = append(rows, cells)
	}

	return rows, sheet.GetName(), nil
}

// =============================================================================
// ROW HANDLING
// =============================================================================

// buildSheetData takes the first non-blank row as the header and converts
// the remaining non-blank rows to maps.
func buildSheetData(rows [][]string) *SheetData {
	start := 0
	for start < len(rows) && isRowEmpty(rows[start]) {
		start++
	}
	if start == len(rows) {
		return &SheetData{Rows: []types.Row{}}
	}

	headers := cleanHeaders(rows[start])
	dataRows := make([]types.Row, 0, len(rows)-start-1)

	for _, cells := range rows[start+1:] {
		if isRowEmpty(cells) {
			continue
		}

		row := make(types.Row, len(headers))
		for i, header := range headers {
			if i < len(cells) {
				row[header] = strings.TrimSpace(cells[i])
			} else {
				row[header] = ""
			}
		}
		dataRows = append(dataRows, row)
	}

	return &SheetData{
		Headers:     headers,
		Rows:        dataRows,
		RowCount:    len(dataRows),
		ColumnCount: len(headers),
	}
}

// cleanHeaders trims labels, names blank ones Column_N and suffixes repeats.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	next := make(map[string]int, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}

		if used[header] {
			base := header
			for {
				next[base]++
				header = fmt.Sprintf("%s.%d", base, next[base])
				if !used[header] {
					break
				}
			}
		}

		used[header] = true
		cleaned[i] = header
	}

	return cleaned
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

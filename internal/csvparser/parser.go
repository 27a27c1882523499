// =============================================================================
// Statement Ingest - Delimited-Text Extractor
// =============================================================================
//
// This module turns the raw bytes of a CSV-like statement into a RawTable.
// Statements arrive from many banks and tools, so the parser has to cope with:
//   - unknown text encodings (detected, then a configurable fallback list)
//   - comma, semicolon, tab or pipe delimiters
//   - ragged rows and sloppy quoting
//   - blank or repeated header labels
//
// PARSING PROCESS:
//   1. Detect the charset statistically
//   2. For the detected charset and then each fallback, decode and parse;
//      the first candidate that succeeds wins
//   3. The first record is the header row
//   4. Every non-blank following record becomes a Row keyed by header
//
// =============================================================================

package csvparser

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// DefaultFallbackEncodings is used when Options leaves the list empty.
var DefaultFallbackEncodings = []string{"utf-8", "latin-1", "cp1252"}

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed statement.
type CSVData struct {
	// Headers contains the cleaned column labels in source order.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []types.Row

	// Encoding is the canonical name of the encoding that decoded the file.
	Encoding string

	// Delimiter is the field separator that was used.
	Delimiter rune

	// RowCount is the number of data rows (excluding the header).
	RowCount int

	// ColumnCount is the number of columns in the header.
	ColumnCount int
}

// Table returns the parsed data as a RawTable.
func (d *CSVData) Table() types.RawTable {
	return types.RawTable{Columns: d.Headers, Rows: d.Rows}
}

// Options configures Parse.
type Options struct {
	// FallbackEncodings are tried in order after the detected charset.
	FallbackEncodings []string

	// Detect overrides the charset detector. Nil uses DetectEncoding.
	Detect func([]byte) Detection

	// Logger receives debug output about encoding attempts.
	Logger zerolog.Logger
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse decodes and parses a delimited-text statement.
//
// PARAMETERS:
//   - content: The raw file bytes.
//   - opts: Fallback encodings and logger.
//
// RETURNS:
//   - A pointer to the CSVData struct containing the parsed data.
//   - A *types.DecodingError if no candidate encoding could decode and parse
//     the file.
func Parse(content []byte, opts Options) (*CSVData, error) {
	fallbacks := opts.FallbackEncodings
	if len(fallbacks) == 0 {
		fallbacks = DefaultFallbackEncodings
	}

	detect := opts.Detect
	if detect == nil {
		detect = DetectEncoding
	}

	detection := detect(content)
	opts.Logger.Debug().
		Str("charset", detection.Charset).
		Int("confidence", detection.Confidence).
		Msg("detected csv charset")

	decodingErr := &types.DecodingError{
		Detected:   detection.Charset,
		Confidence: detection.Confidence,
	}

	for _, name := range candidateEncodings(detection.Charset, fallbacks) {
		data, err := parseWithEncoding(content, name)
		if err != nil {
			opts.Logger.Debug().Str("encoding", name).Err(err).Msg("csv decode attempt failed")
			decodingErr.Attempts = append(decodingErr.Attempts, types.EncodingAttempt{Encoding: name, Err: err})
			continue
		}
		return data, nil
	}

	return nil, decodingErr
}

// parseWithEncoding runs one decode + parse attempt.
func parseWithEncoding(content []byte, encodingName string) (*CSVData, error) {
	decoder, err := LookupEncoding(encodingName)
	if err != nil {
		return nil, err
	}

	text, err := decoder.Decode(content)
	if err != nil {
		return nil, err
	}

	data, err := parseText(text)
	if err != nil {
		return nil, err
	}
	data.Encoding = decoder.Name
	return data, nil
}

// parseText parses already-decoded text.
func parseText(text string) (*CSVData, error) {
	delimiter := sniffDelimiter(text)

	csvReader := csv.NewReader(strings.NewReader(text))
	configureReader(csvReader, delimiter)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	// Skip leading blank lines before the header.
	for len(allRows) > 0 && isRowEmpty(allRows[0]) {
		allRows = allRows[1:]
	}

	if len(allRows) == 0 {
		return &CSVData{Delimiter: delimiter}, nil
	}

	headers := cleanHeaders(allRows[0])
	dataRows := extractDataRows(allRows[1:], headers)

	return &CSVData{
		Headers:     headers,
		Rows:        dataRows,
		Delimiter:   delimiter,
		RowCount:    len(dataRows),
		ColumnCount: len(headers),
	}, nil
}

// configureReader configures the CSV reader for messy bank exports.
func configureReader(reader *csv.Reader, delimiter rune) {
	reader.Comma = delimiter

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1

	// Allow lazy quotes (quotes that don't follow strict CSV rules).
	reader.LazyQuotes = true

	// Trim leading space from fields.
	reader.TrimLeadingSpace = true
}

// sniffDelimiter picks the most frequent candidate separator on the first
// non-blank line, defaulting to a comma.
func sniffDelimiter(text string) rune {
	var firstLine string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			firstLine = line
			break
		}
	}

	best, bestCount := ',', strings.Count(firstLine, ",")
	for _, candidate := range []rune{';', '\t', '|'} {
		if count := strings.Count(firstLine, string(candidate)); count > bestCount {
			best, bestCount = candidate, count
		}
	}
	return best
}

// cleanHeaders trims header labels, names blank ones Column_N and suffixes
// repeated labels with .1, .2, ... so every column stays addressable.
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

// extractDataRows converts records to maps, skipping blank records. Cells
// beyond the header width are ignored; missing cells are empty.
func extractDataRows(records [][]string, headers []string) []types.Row {
	dataRows := make([]types.Row, 0, len(records))

	for _, record := range records {
		if isRowEmpty(record) {
			continue
		}

		row := make(types.Row, len(headers))
		for colIndex, header := range headers {
			if colIndex < len(record) {
				row[header] = strings.TrimSpace(record[colIndex])
			} else {
				row[header] = ""
			}
		}

		dataRows = append(dataRows, row)
	}

	return dataRows
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

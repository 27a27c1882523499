package converter

import (
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/statement-ingest/internal/csvparser"
	"github.com/ginjaninja78/statement-ingest/internal/pdfparser"
	"github.com/ginjaninja78/statement-ingest/internal/types"
	"github.com/ginjaninja78/statement-ingest/internal/xlsxparser"
)

// Recognized file extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
	ExtXLS  = ".xls"
	ExtPDF  = ".pdf"
)

// SupportedExtensions lists every extension that selects an extractor.
var SupportedExtensions = []string{ExtCSV, ExtXLSX, ExtXLS, ExtPDF}

// IsSupported reports whether filename has a recognized extension.
func IsSupported(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// ExtractOptions configures Extract.
type ExtractOptions struct {
	FallbackEncodings []string
	Logger            zerolog.Logger
}

// Extract selects an extractor by the extension of filename and turns the
// content into a RawTable.
//
// RETURNS:
//   - The table and the extraction diagnostics (without column mapping).
//   - *types.UnsupportedFormatError, *types.DecodingError or
//     *types.ParseError when the file cannot be read.
func Extract(content []byte, filename string, opts ExtractOptions) (types.RawTable, types.ExtractionDiagnostics, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	opts.Logger.Debug().Str("file", filename).Str("extension", ext).Msg("selecting extractor")

	switch ext {
	case ExtCSV:
		data, err := csvparser.Parse(content, csvparser.Options{
			FallbackEncodings: opts.FallbackEncodings,
			Logger:            opts.Logger,
		})
		if err != nil {
			return types.RawTable{}, types.ExtractionDiagnostics{FileType: "csv"}, err
		}
		return data.Table(), types.ExtractionDiagnostics{
			FileType:     "csv",
			RowsRead:     data.RowCount,
			Encoding:     data.Encoding,
			ColumnsFound: data.Headers,
		}, nil

	case ExtXLSX, ExtXLS:
		data, err := xlsxparser.Parse(content, ext)
		if err != nil {
			return types.RawTable{}, types.ExtractionDiagnostics{FileType: xlsxparser.FileType}, err
		}
		return data.Table(), types.ExtractionDiagnostics{
			FileType:     xlsxparser.FileType,
			RowsRead:     data.RowCount,
			Sheet:        data.SheetName,
			ColumnsFound: data.Headers,
		}, nil

	case ExtPDF:
		data, err := pdfparser.Parse(content)
		if err != nil {
			return types.RawTable{}, types.ExtractionDiagnostics{FileType: pdfparser.FileType}, err
		}
		return data.Table(), types.ExtractionDiagnostics{
			FileType:     pdfparser.FileType,
			RowsRead:     data.RowCount,
			PagesRead:    data.PagesRead,
			ColumnsFound: data.Headers,
			Warning:      data.Warning,
		}, nil
	}

	return types.RawTable{}, types.ExtractionDiagnostics{}, &types.UnsupportedFormatError{
		Filename:  filename,
		Extension: ext,
	}
}

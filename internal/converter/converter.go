// =============================================================================
// Statement Ingest - Pipeline
// =============================================================================
//
// This module contains the ingestion pipeline. It turns the bytes of one
// statement file into cleaned transactions plus diagnostics.
//
// PIPELINE:
//   1. Extract a RawTable with the extractor selected by the file extension
//   2. Classify the column labels into logical fields
//   3. Map every row to a provisional transaction
//   4. Clean the provisional transactions
//
// CONCURRENCY:
//   Process keeps all intermediate state local to the call. A Pipeline is
//   read-only after New, so one value can serve many goroutines.
//
// ERRORS:
//   Extraction failures abort the file and are returned as typed errors.
//   Row problems are counted in the diagnostics and never abort the file.
//
// =============================================================================

package converter

import (
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/statement-ingest/internal/classifier"
	"github.com/ginjaninja78/statement-ingest/internal/cleaner"
	"github.com/ginjaninja78/statement-ingest/internal/config"
	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of processing a single file.
type Result struct {
	// Transactions are the cleaned transactions, newest first.
	Transactions []types.Transaction `json:"transactions"`

	// Extraction describes how the file was read and mapped.
	Extraction types.ExtractionDiagnostics `json:"extraction"`

	// Cleaning summarizes the cleaner's output.
	Cleaning types.CleaningSummary `json:"cleaning"`
}

// =============================================================================
// PIPELINE STRUCTURE
// =============================================================================

// Pipeline runs statement files through extraction, classification, mapping
// and cleaning.
type Pipeline struct {
	classifier  *classifier.Classifier
	cleaner     *cleaner.Cleaner
	extractOpts ExtractOptions
	mapOpts     MapOptions
	logger      zerolog.Logger
}

// New creates a Pipeline from the pipeline tables.
//
// PARAMETERS:
//   - cfg: The pipeline configuration. Nil uses the built-in tables.
//   - logger: Receives debug output about each stage.
//
// RETURNS:
//   - A new Pipeline instance.
func New(cfg *config.PipelineConfig, logger zerolog.Logger) *Pipeline {
	if cfg == nil {
		cfg = config.DefaultPipelineConfig()
	}

	return &Pipeline{
		classifier: classifier.New(cfg.FieldSynonyms),
		cleaner:    cleaner.New(cfg.Cleaner),
		extractOpts: ExtractOptions{
			FallbackEncodings: cfg.FallbackEncodings,
			Logger:            logger,
		},
		mapOpts: MapOptions{
			PositiveAmountType: cfg.PositiveAmountType,
			NegativeAmountType: cfg.NegativeAmountType,
		},
		logger:  logger,
	}
}

// NewDefault creates a Pipeline with the built-in tables and no logging.
func NewDefault() *Pipeline {
	return New(nil, zerolog.Nop())
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Process runs the pipeline on one file.
//
// PARAMETERS:
//   - content: The raw file bytes.
//   - filename: The original file name; its extension selects the extractor.
//
// RETURNS:
//   - The cleaned transactions and diagnostics.
//   - *types.UnsupportedFormatError, *types.DecodingError or
//     *types.ParseError when the file cannot be read.
func (p *Pipeline) Process(content []byte, filename string) (*Result, error) {
	log := p.logger.With().Str("file", filename).Logger()

	// =========================================================================
	// STEP 1: EXTRACT
	// =========================================================================
	// Read the file into a generic table. Nothing is known about the meaning
	// of the columns yet.

	table, diagnostics, err := Extract(content, filename, p.extractOpts)
	if err != nil {
		log.Debug().Err(err).Msg("extraction failed")
		return nil, err
	}

	if diagnostics.ColumnsFound == nil {
		diagnostics.ColumnsFound = []string{}
	}
	log.Debug().
		Str("file_type", diagnostics.FileType).
		Int("rows_read", diagnostics.RowsRead).
		Strs("columns", diagnostics.ColumnsFound).
		Msg("extracted table")

	// =========================================================================
	// STEP 2: CLASSIFY COLUMNS
	// =========================================================================
	// Match the column labels against the synonym table. The first column
	// stands in for an undetected date.

	fields := p.classifier.Classify(table.Columns)

	diagnostics.ColumnMapping = fields.AsMap()
	if !fields.Has(types.FieldDate) && len(table.Columns) > 0 {
		diagnostics.ColumnMapping[string(types.FieldDate)] = table.Columns[0]
	}
	log.Debug().Interface("column_mapping", diagnostics.ColumnMapping).Msg("classified columns")

	// =========================================================================
	// STEP 3: MAP ROWS
	// =========================================================================
	// Turn every row into a provisional transaction or a row error.

	provisional, failures := types.Partition(MapRows(table, fields, p.mapOpts))
	diagnostics.RowsProcessed = len(provisional)
	diagnostics.RowsDropped = types.CountReasons(failures)

	for _, reason := range types.SortedReasons(diagnostics.RowsDropped) {
		log.Debug().Str("reason", reason).Int("rows", diagnostics.RowsDropped[reason]).Msg("rows dropped")
	}

	// =========================================================================
	// STEP 4: CLEAN
	// =========================================================================
	// Deduplicate, normalize text, drop invalid rows and sort.

	transactions, summary := p.cleaner.Clean(provisional)
	log.Debug().
		Int("cleaned", summary.CleanedCount).
		Int("duplicates", summary.DuplicatesRemoved).
		Int("invalid", summary.InvalidRemoved).
		Msg("cleaned transactions")

	return &Result{
		Transactions: transactions,
		Extraction:   diagnostics,
		Cleaning:     summary,
	}, nil
}

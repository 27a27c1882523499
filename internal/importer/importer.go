// =============================================================================
// Statement Ingest - Importer
// =============================================================================
//
// The importer is the caller of the ingestion pipeline. It mirrors an upload
// flow: reject oversized files, run the pipeline under a deadline, suggest a
// category for every cleaned transaction and validate the result.
//
// CATEGORIZATION:
//   The pipeline never categorizes. The importer calls the injected
//   Categorizer once per final transaction. A nil Categorizer leaves the
//   suggestion empty.
//
// TIMEOUTS:
//   The pipeline is synchronous and not cancellable. Import runs it in a
//   goroutine and abandons the result when the context expires; the
//   goroutine finishes in the background and its result is discarded.
//
// =============================================================================

package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ginjaninja78/statement-ingest/internal/categorizer"
	"github.com/ginjaninja78/statement-ingest/internal/converter"
	"github.com/ginjaninja78/statement-ingest/internal/logger"
	"github.com/ginjaninja78/statement-ingest/internal/types"
	"github.com/ginjaninja78/statement-ingest/internal/validation"
)

// DefaultMaxFileSize is the size cap applied when none is configured.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

var (
	// ErrFileTooLarge is returned for files above the size cap.
	ErrFileTooLarge = errors.New("file exceeds maximum size")

	// ErrTimeout is returned when the pipeline does not finish in time.
	ErrTimeout = errors.New("processing timed out")
)

// Processor runs the ingestion pipeline on one file.
type Processor interface {
	Process(content []byte, filename string) (*converter.Result, error)
}

// =============================================================================
// REPORT STRUCTURE
// =============================================================================

// Report is the outcome of importing one statement.
type Report struct {
	RunID        string                       `json:"run_id"`
	FileName     string                       `json:"file_name"`
	ProcessedAt  time.Time                    `json:"processed_at"`
	Transactions []CategorizedTransaction     `json:"transactions"`
	Extraction   types.ExtractionDiagnostics  `json:"extraction"`
	Cleaning     types.CleaningSummary        `json:"cleaning"`
	Validation   *validation.ValidationResult `json:"validation"`
}

// CategorizedTransaction is a cleaned transaction with a category suggestion.
type CategorizedTransaction struct {
	types.Transaction
	SuggestedCategory  string  `json:"suggested_category"`
	CategoryConfidence float64 `json:"category_confidence"`
}

// MarshalJSON flattens the transaction and its suggestion into one object.
func (c CategorizedTransaction) MarshalJSON() ([]byte, error) {
	type plain types.Transaction
	return json.Marshal(struct {
		plain
		Amount             json.Number `json:"amount"`
		SuggestedCategory  string      `json:"suggested_category"`
		CategoryConfidence float64     `json:"category_confidence"`
	}{plain(c.Transaction), types.FixedAmount(c.Amount), c.SuggestedCategory, c.CategoryConfidence})
}

// =============================================================================
// IMPORTER
// =============================================================================

// Options configures an Importer.
type Options struct {
	// MaxFileSize caps the input size in bytes. Zero uses DefaultMaxFileSize,
	// a negative value disables the cap.
	MaxFileSize int64

	// Timeout bounds a single pipeline run. Zero means no timeout.
	Timeout time.Duration

	// Categorizer suggests categories. Nil disables suggestions.
	Categorizer categorizer.Categorizer

	// Validator checks the cleaned output. Nil uses the default validator.
	Validator *validation.Validator
}

// Importer drives the pipeline for single statements. It is safe for
// concurrent use when its Processor and Categorizer are.
type Importer struct {
	processor   Processor
	categorizer categorizer.Categorizer
	validator   *validation.Validator
	maxFileSize int64
	timeout     time.Duration

	now   func() time.Time
	newID func() string
}

// New creates an Importer around a pipeline.
func New(processor Processor, opts Options) *Importer {
	maxFileSize := opts.MaxFileSize
	if maxFileSize == 0 {
		maxFileSize = DefaultMaxFileSize
	}

	validator := opts.Validator
	if validator == nil {
		validator = validation.NewValidator()
	}

	return &Importer{
		processor:   processor,
		categorizer: opts.Categorizer,
		validator:   validator,
		maxFileSize: maxFileSize,
		timeout:     opts.Timeout,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// ImportFile reads a statement from disk and imports it. The size cap is
// checked before the file is read.
func (i *Importer) ImportFile(ctx context.Context, path string) (*Report, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := i.checkSize(filepath.Base(path), info.Size()); err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return i.Import(ctx, content, filepath.Base(path))
}

// Import runs one statement through the pipeline and builds its report.
//
// PARAMETERS:
//   - ctx: Cancels the wait for the pipeline; carries the logger.
//   - content: The raw file bytes.
//   - filename: The original file name; its extension selects the extractor.
//
// RETURNS:
//   - The report, or an error wrapping ErrFileTooLarge, ErrTimeout, the
//     context error, or the pipeline's typed extraction error.
func (i *Importer) Import(ctx context.Context, content []byte, filename string) (*Report, error) {
	runID := i.newID()
	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"file":   filename,
		"run_id": runID,
	})

	// =========================================================================
	// STEP 1: SIZE CHECK
	// =========================================================================

	if err := i.checkSize(filename, int64(len(content))); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 2: RUN PIPELINE
	// =========================================================================

	result, err := i.run(ctx, content, filename)
	if err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 3: CATEGORIZE
	// =========================================================================

	transactions := make([]CategorizedTransaction, len(result.Transactions))
	for n, tx := range result.Transactions {
		transactions[n] = CategorizedTransaction{Transaction: tx}
		if i.categorizer == nil {
			continue
		}

		category, confidence := i.categorizer.Categorize(tx.Description, tx.Merchant)
		transactions[n].SuggestedCategory = category
		transactions[n].CategoryConfidence = roundConfidence(confidence)
	}

	// =========================================================================
	// STEP 4: VALIDATE
	// =========================================================================

	validationResult := i.validator.ValidateAll(result.Transactions, result.Cleaning)
	if !validationResult.IsValid {
		log.Warn().Int("errors", validationResult.ErrorCount).Msg("output failed validation")
	}

	log.Info().
		Int("rows_read", result.Extraction.RowsRead).
		Int("transactions", len(transactions)).
		Int("duplicates", result.Cleaning.DuplicatesRemoved).
		Msg("statement imported")

	return &Report{
		RunID:        runID,
		FileName:     filename,
		ProcessedAt:  i.now().UTC(),
		Transactions: transactions,
		Extraction:   result.Extraction,
		Cleaning:     result.Cleaning,
		Validation:   validationResult,
	}, nil
}

func (i *Importer) checkSize(filename string, size int64) error {
	if i.maxFileSize > 0 && size > i.maxFileSize {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", ErrFileTooLarge, filename, size, i.maxFileSize)
	}
	return nil
}

// run executes the pipeline in a goroutine and waits for it or the context.
func (i *Importer) run(ctx context.Context, content []byte, filename string) (*converter.Result, error) {
	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	type outcome struct {
		result *converter.Result
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		result, err := i.processor.Process(content, filename)
		done <- outcome{result, err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, filename)
		}
		return nil, ctx.Err()
	}
}

func roundConfidence(confidence float64) float64 {
	return math.Round(confidence*100) / 100
}

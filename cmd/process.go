// =============================================================================
// Statement Ingest - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command for ingesting
// statements. It orchestrates the importer over every file in the input
// directory.
//
// COMMAND USAGE:
//   ingest process [flags]
//
// FLAGS:
//   --file           : Ingest a single file instead of the input directory
//   --dry-run        : Run the pipeline without writing or archiving anything
//   --no-categorize  : Skip category suggestions
//
// PROCESSING PIPELINE:
//   1. Load configuration files
//   2. Build the pipeline, categorizer and importer
//   3. Discover statements in the input directory
//   4. For each file (concurrently, at most max_concurrency at a time):
//      a. Import the statement
//      b. Render the report (JSON or XML)
//      c. Write the report and archive it
//      d. Archive the statement
//   5. Write the summary and error logs
//
// =============================================================================

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/statement-ingest/internal/categorizer"
	"github.com/ginjaninja78/statement-ingest/internal/config"
	"github.com/ginjaninja78/statement-ingest/internal/converter"
	"github.com/ginjaninja78/statement-ingest/internal/importer"
	"github.com/ginjaninja78/statement-ingest/internal/logger"
	"github.com/ginjaninja78/statement-ingest/internal/types"
	"github.com/ginjaninja78/statement-ingest/internal/xmlwriter"
	"github.com/ginjaninja78/statement-ingest/pkg/utils"
)

// errSkipped marks files not started because an earlier file failed with
// stop_on_error set.
var errSkipped = errors.New("skipped after an earlier failure")

// =============================================================================
// COMMAND FLAGS
// =============================================================================

type processOptions struct {
	// dryRun runs the pipeline without writing or archiving anything.
	dryRun bool

	// file is a single statement to ingest instead of the input directory.
	file string

	// noCategorize skips category suggestions.
	noCategorize bool
}

var processFlags processOptions

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Ingest statement files and write one report per file",
	Long: `The process command scans the input directory for statement files
(.csv, .xlsx, .xls, .pdf), runs each through the ingestion pipeline, and
writes a JSON or XML report per file.

Files are processed concurrently. Each file is processed independently, and
errors in one file do not affect the others unless stop_on_error is set.

On success:
  - The report is written to the output directory and copied to the output archive
  - The statement is moved to the input archive

On error:
  - The statement remains in the input directory
  - The error is recorded in an error log in the output directory`,

	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment("")
		if err != nil {
			return err
		}

		ctx := logger.WithContext(cmd.Context(), env.log)
		_, err = runProcess(ctx, env, processFlags, cmd.OutOrStdout())
		return err
	},
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&processFlags.dryRun,
		"dry-run",
		false,
		"Run the pipeline without writing reports or archiving files",
	)

	processCmd.Flags().StringVar(
		&processFlags.file,
		"file",
		"",
		"Path to a single statement to ingest",
	)

	processCmd.Flags().BoolVar(
		&processFlags.noCategorize,
		"no-categorize",
		false,
		"Skip category suggestions",
	)
}

// =============================================================================
// FILE RESULT
// =============================================================================

// fileResult is the outcome of one file.
type fileResult struct {
	path        string
	report      *importer.Report
	outputFile  string
	archivePath string
	duration    time.Duration
	err         error
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// runProcess ingests the configured files and returns the run summary.
//
// PARAMETERS:
//   - ctx: Carries the logger; cancelling it abandons pending files.
//   - env: The loaded configuration.
//   - opts: The command flags.
//   - out: Receives the human-readable progress lines.
//
// RETURNS:
//   - The processing summary.
//   - An error if setup fails, or if a file failed with stop_on_error set.
func runProcess(ctx context.Context, env *environment, opts processOptions, out io.Writer) (*utils.ProcessingSummary, error) {
	startTime := time.Now()
	log := logger.FromContext(ctx)

	fmt.Fprintln(out, "=== Statement Ingest ===")

	// =========================================================================
	// STEP 1: BUILD THE IMPORTER
	// =========================================================================

	imp, err := buildImporter(env, opts.noCategorize)
	if err != nil {
		return nil, err
	}

	fm := utils.NewFileManager(
		env.main.InputDir,
		env.main.OutputDir,
		env.main.InputArchiveDir,
		env.main.OutputArchiveDir,
	)
	if !opts.dryRun {
		if err := fm.EnsureDirectories(); err != nil {
			return nil, err
		}
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputFiles []string
	if opts.file != "" {
		inputFiles = []string{opts.file}
	} else {
		inputFiles, err = fm.DiscoverInputFiles(converter.SupportedExtensions...)
		if err != nil {
			return nil, fmt.Errorf("failed to discover input files: %w", err)
		}
	}

	summary := &utils.ProcessingSummary{StartTime: startTime, TotalFiles: len(inputFiles)}

	if len(inputFiles) == 0 {
		fmt.Fprintln(out, "No statement files found in the input directory.")
		summary.EndTime = time.Now()
		return summary, nil
	}

	fmt.Fprintf(out, "Found %d file(s) to process\n", len(inputFiles))

	// =========================================================================
	// STEP 3: PROCESS FILES CONCURRENTLY
	// =========================================================================
	// One goroutine per file; the semaphore bounds how many run the pipeline
	// at the same time.

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, env.main.MaxConcurrency)
	results := make(chan fileResult, len(inputFiles))

	for _, file := range inputFiles {
		wg.Add(1)

		go func(path string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-runCtx.Done():
				results <- fileResult{path: path, err: errSkipped}
				return
			}
			defer func() { <-semaphore }()

			if runCtx.Err() != nil {
				results <- fileResult{path: path, err: errSkipped}
				return
			}

			results <- processFile(runCtx, imp, fm, env.main, path, opts.dryRun)
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	// =========================================================================
	// STEP 4: COLLECT RESULTS
	// =========================================================================

	success := color.New(color.FgGreen)
	failure := color.New(color.FgRed)
	warning := color.New(color.FgYellow)

	var errorEntries []utils.ErrorLogEntry
	var firstFailure error

	for result := range results {
		name := filepath.Base(result.path)

		if result.err != nil {
			summary.FailedFiles++
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    result.path,
				ErrorMessage: result.err.Error(),
				ErrorType:    errorType(result.err),
			})
			errorEntries = append(errorEntries, utils.ErrorLogEntry{
				Timestamp:    time.Now(),
				FileName:     name,
				ErrorType:    errorType(result.err),
				ErrorMessage: result.err.Error(),
			})
			failure.Fprintf(out, "  ✗ %s: %v\n", name, result.err)
			log.Error().Err(result.err).Str("file", name).Msg("file failed")

			if env.main.StopOnError && firstFailure == nil && !errors.Is(result.err, errSkipped) {
				firstFailure = fmt.Errorf("%s: %w", name, result.err)
				cancel()
			}
			continue
		}

		report := result.report
		summary.SuccessfulFiles++
		summary.TotalRows += report.Extraction.RowsRead
		summary.TotalTransactions += len(report.Transactions)
		summary.DuplicatesRemoved += report.Cleaning.DuplicatesRemoved
		dropped := report.Cleaning.InvalidRemoved
		for _, count := range report.Extraction.RowsDropped {
			dropped += count
		}
		summary.RowsDropped += dropped
		summary.ProcessedFiles = append(summary.ProcessedFiles, utils.ProcessedFileInfo{
			InputFile:         result.path,
			OutputFile:        result.outputFile,
			ArchivePath:       result.archivePath,
			FileType:          report.Extraction.FileType,
			Rows:              report.Extraction.RowsRead,
			Transactions:      len(report.Transactions),
			DuplicatesRemoved: report.Cleaning.DuplicatesRemoved,
			RowsDropped:       dropped,
			ProcessTime:       result.duration,
		})

		if report.Validation != nil {
			summary.ValidationErrors += report.Validation.ErrorCount
			for _, finding := range report.Validation.Errors {
				errorEntries = append(errorEntries, utils.ErrorLogEntry{
					Timestamp:    report.ProcessedAt,
					FileName:     name,
					ErrorType:    finding.Rule,
					ErrorMessage: finding.Message,
					Index:        finding.Index,
					FieldName:    finding.Field,
					FieldValue:   finding.Value,
				})
			}
		}

		target := result.outputFile
		if opts.dryRun {
			target = "(dry run)"
		}
		success.Fprintf(out, "  ✓ %s -> %s (%d transactions)\n", name, target, len(report.Transactions))
		if report.Extraction.Warning != "" {
			warning.Fprintf(out, "    ! %s\n", report.Extraction.Warning)
		}
	}

	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 5: WRITE LOGS AND PRINT SUMMARY
	// =========================================================================

	if !opts.dryRun {
		if _, err := utils.WriteSummaryLog(*summary, env.main.OutputDir); err != nil {
			log.Warn().Err(err).Msg("failed to write summary log")
		}
		if _, err := utils.WriteErrorLog(errorEntries, env.main.OutputDir); err != nil {
			log.Warn().Err(err).Msg("failed to write error log")
		}
	}

	fmt.Fprintln(out, "\n=== Processing Complete ===")
	fmt.Fprintf(out, "Total files:     %d\n", summary.TotalFiles)
	fmt.Fprintf(out, "Successful:      %d\n", summary.SuccessfulFiles)
	fmt.Fprintf(out, "Errors:          %d\n", summary.FailedFiles)
	fmt.Fprintf(out, "Transactions:    %d\n", summary.TotalTransactions)
	fmt.Fprintf(out, "Time elapsed:    %s\n", summary.EndTime.Sub(startTime))

	if len(errorEntries) > 0 && !opts.dryRun {
		fmt.Fprintln(out, "\nErrors have been logged to the output directory.")
	}

	return summary, firstFailure
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// buildImporter wires the pipeline, the categorizer and the importer.
func buildImporter(env *environment, noCategorize bool) (*importer.Importer, error) {
	pipeline := converter.New(env.pipeline, env.log)

	opts := importer.Options{
		MaxFileSize: env.main.MaxFileSize,
		Timeout:     env.main.ProcessTimeout,
	}

	if !noCategorize && !env.main.DisableCategorize {
		corpus, err := categorizer.LoadCorpus(env.main.TrainingFile)
		if err != nil {
			return nil, err
		}
		bayes, err := categorizer.NewBayesian(corpus)
		if err != nil {
			return nil, fmt.Errorf("failed to train categorizer: %w", err)
		}
		opts.Categorizer = bayes
	}

	return importer.New(pipeline, opts), nil
}

// processFile imports one statement, writes its report and archives both.
func processFile(ctx context.Context, imp *importer.Importer, fm *utils.FileManager, cfg *config.MainConfig, path string, dryRun bool) fileResult {
	start := time.Now()
	result := fileResult{path: path}

	report, err := imp.ImportFile(ctx, path)
	if err != nil {
		result.err = err
		return result
	}
	result.report = report

	if dryRun {
		result.duration = time.Since(start)
		return result
	}

	data, err := renderReport(report, cfg.OutputFormat)
	if err != nil {
		result.err = err
		return result
	}

	base := filepath.Base(path)
	name := utils.GenerateOutputFileName(cfg.UUIDFormat, cfg.OutputFormat, map[string]string{
		"original": strings.TrimSuffix(base, filepath.Ext(base)),
		"type":     report.Extraction.FileType,
	})
	result.outputFile = filepath.Join(cfg.OutputDir, name)

	if err := utils.WriteFileAtomic(result.outputFile, data); err != nil {
		result.err = err
		return result
	}

	if _, err := fm.ArchiveOutputFile(result.outputFile); err != nil {
		result.err = err
		return result
	}

	result.archivePath, err = fm.ArchiveInputFile(path)
	if err != nil {
		result.err = err
		return result
	}

	result.duration = time.Since(start)
	return result
}

// renderReport serializes a report in the configured output format.
func renderReport(report *importer.Report, format string) ([]byte, error) {
	switch format {
	case config.OutputXML:
		return xmlwriter.Generate(report)
	case config.OutputJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q", format)
	}
}

// errorType names the class of a file failure for the logs.
func errorType(err error) string {
	var (
		unsupported *types.UnsupportedFormatError
		decoding    *types.DecodingError
		parse       *types.ParseError
	)

	switch {
	case errors.Is(err, errSkipped):
		return "skipped"
	case errors.Is(err, importer.ErrFileTooLarge):
		return "file_too_large"
	case errors.Is(err, importer.ErrTimeout):
		return "timeout"
	case errors.As(err, &unsupported):
		return "unsupported_format"
	case errors.As(err, &decoding):
		return "decoding"
	case errors.As(err, &parse):
		return "parse"
	default:
		return "io"
	}
}

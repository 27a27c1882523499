// =============================================================================
// Statement Ingest - File Manager Utility
// =============================================================================
//
// This module provides the file handling around the importer:
//   - Statement discovery in the input directory
//   - Archival of ingested statements and written reports
//   - Report file naming
//   - Error and summary logs for a processing run
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to input_archive after successful ingestion
//   - Reports are copied to output_archive for long-term storage
//   - Failed files remain in their original location
//   - An existing archive file is never overwritten; a numeric suffix is added
//
// =============================================================================

package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for the CLI.
type FileManager struct {
	InputDir         string
	OutputDir        string
	InputArchiveDir  string
	OutputArchiveDir string

	// UseTimestampSubdirs creates date-based subdirectories in archives.
	// Example: input_archive/2024/01/15/statement.csv
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether files are archived at all.
	ArchiveOnSuccess bool
}

// NewFileManager creates a new FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir, outputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		OutputArchiveDir: outputArchiveDir,
		ArchiveOnSuccess: true,
	}
}

// =============================================================================
// DIRECTORY MANAGEMENT
// =============================================================================

// EnsureDirectories creates all required directories if they don't exist.
func (fm *FileManager) EnsureDirectories() error {
	dirs := []string{
		fm.InputDir,
		fm.OutputDir,
		fm.InputArchiveDir,
		fm.OutputArchiveDir,
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the files in the input directory whose extension
// is one of extensions, compared case-insensitively. Subdirectories are not
// scanned. The result is sorted by name.
//
// PARAMETERS:
//   - extensions: Accepted extensions including the dot (e.g. ".csv").
//
// RETURNS:
//   - A slice of file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(extensions ...string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	accepted := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		accepted[strings.ToLower(ext)] = true
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if !accepted[strings.ToLower(filepath.Ext(entry.Name()))] {
			continue
		}
		files = append(files, filepath.Join(fm.InputDir, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived file.
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath, err := fm.prepareArchivePath(fm.InputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Rename fails across devices; fall back to copy and delete.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}

	return archivePath, nil
}

// ArchiveOutputFile copies a report to the archive directory. The report
// stays in the output directory.
func (fm *FileManager) ArchiveOutputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath, err := fm.prepareArchivePath(fm.OutputArchiveDir, filePath)
	if err != nil {
		return "", err
	}

	if err := copyFile(filePath, archivePath); err != nil {
		return "", fmt.Errorf("failed to copy file to archive: %w", err)
	}

	return archivePath, nil
}

// prepareArchivePath creates the archive directory and returns a path in it
// that does not exist yet.
func (fm *FileManager) prepareArchivePath(archiveDir, filePath string) (string, error) {
	dir := archiveDir
	if fm.UseTimestampSubdirs {
		now := time.Now()
		dir = filepath.Join(
			archiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
		)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	return uniquePath(filepath.Join(dir, filepath.Base(filePath))), nil
}

// uniquePath appends _1, _2, ... before the extension until the path is free.
func uniquePath(path string) string {
	if !FileExists(path) {
		return path
	}

	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !FileExists(candidate) {
			return candidate
		}
	}
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique report file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//             Placeholders:
//               {uuid}      - A random UUID
//               {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//               {date}      - Current date (YYYYMMDD)
//               {time}      - Current time (HHMMSS)
//               {original}  - Input file name without extension
//               {type}      - Detected file type
//   - extension: The report extension without the dot ("json", "xml").
//   - params: Values for the non-generated placeholders.
//
// RETURNS:
//   - The generated file name.
//
// EXAMPLE:
//   format: "{original}_{timestamp}_{uuid}"
//   params: {"original": "march"}
//   output: "march_20240115_143022_a1b2c3d4-e5f6-7890-abcd-ef1234567890.json"
func GenerateOutputFileName(format, extension string, params map[string]string) string {
	now := time.Now()

	replacements := map[string]string{
		"{uuid}":      uuid.New().String(),
		"{timestamp}": now.Format("20060102_150405"),
		"{date}":      now.Format("20060102"),
		"{time}":      now.Format("150405"),
	}
	for key, value := range params {
		replacements["{"+key+"}"] = value
	}

	// A single pass keeps substituted values from being expanded again.
	pairs := make([]string, 0, 2*len(replacements))
	for placeholder, value := range replacements {
		pairs = append(pairs, placeholder, value)
	}
	result := strings.NewReplacer(pairs...).Replace(format)

	suffix := "." + strings.TrimPrefix(strings.ToLower(extension), ".")
	if !strings.HasSuffix(strings.ToLower(result), suffix) {
		result += suffix
	}

	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is one failure or validation finding of a run.
type ErrorLogEntry struct {
	Timestamp    time.Time
	FileName     string
	ErrorType    string
	ErrorMessage string

	// Index is the 1-based transaction the finding refers to, if any.
	Index      int
	FieldName  string
	FieldValue string
}

// WriteErrorLog writes entries to an error log in outputDir, grouped by
// statement in order of first appearance. Nothing is written for an empty
// list.
//
// RETURNS:
//   - The path to the error log file, empty when nothing was written.
//   - An error if writing fails.
func WriteErrorLog(entries []ErrorLogEntry, outputDir string) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	var statements []string
	byStatement := make(map[string][]ErrorLogEntry)
	for _, entry := range entries {
		if _, ok := byStatement[entry.FileName]; !ok {
			statements = append(statements, entry.FileName)
		}
		byStatement[entry.FileName] = append(byStatement[entry.FileName], entry)
	}

	return writeRunLog(outputDir, "error_log", func(w *bufio.Writer) {
		fmt.Fprintf(w, "Statement Ingest - Error Log\n")
		fmt.Fprintf(w, "Generated:  %s\n", time.Now().Format(logTimeLayout))
		fmt.Fprintf(w, "Statements: %d\n", len(statements))
		fmt.Fprintf(w, "Findings:   %d\n\n", len(entries))

		for _, name := range statements {
			group := byStatement[name]
			fmt.Fprintf(w, "%s\n%s (%d)\n", logRule, name, len(group))

			for _, entry := range group {
				fmt.Fprintf(w, "  %s [%s] %s\n",
					entry.Timestamp.Format(logTimeLayout), entry.ErrorType, entry.ErrorMessage)
				if location := findingLocation(entry); location != "" {
					fmt.Fprintf(w, "      at %s\n", location)
				}
			}
			w.WriteString("\n")
		}
	})
}

// findingLocation renders where in the report a finding points to.
func findingLocation(entry ErrorLogEntry) string {
	var parts []string
	if entry.Index > 0 {
		parts = append(parts, fmt.Sprintf("transaction %d", entry.Index))
	}
	if entry.FieldName != "" {
		field := entry.FieldName
		if entry.FieldValue != "" {
			field += fmt.Sprintf(" = %q", entry.FieldValue)
		}
		parts = append(parts, field)
	}
	return strings.Join(parts, ", ")
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary aggregates one run of the process command.
type ProcessingSummary struct {
	StartTime         time.Time
	EndTime           time.Time
	TotalFiles        int
	SuccessfulFiles   int
	FailedFiles       int
	TotalRows         int
	TotalTransactions int
	DuplicatesRemoved int
	RowsDropped       int
	ValidationErrors  int
	ProcessedFiles    []ProcessedFileInfo
	FailedFilesList   []FailedFileInfo
}

// ProcessedFileInfo describes one ingested statement.
type ProcessedFileInfo struct {
	InputFile         string
	OutputFile        string
	ArchivePath       string
	FileType          string
	Rows              int
	Transactions      int
	DuplicatesRemoved int
	RowsDropped       int
	ProcessTime       time.Duration
}

// FailedFileInfo describes a statement that could not be ingested.
type FailedFileInfo struct {
	InputFile    string
	ErrorMessage string
	ErrorType    string
}

// WriteSummaryLog writes the run totals and a per-statement table to a log
// file in outputDir.
func WriteSummaryLog(summary ProcessingSummary, outputDir string) (string, error) {
	return writeRunLog(outputDir, "processing_summary", func(w *bufio.Writer) {
		fmt.Fprintf(w, "Statement Ingest - Processing Summary\n%s\n", logRule)
		fmt.Fprintf(w, "Started:  %s\n", summary.StartTime.Format(logTimeLayout))
		fmt.Fprintf(w, "Finished: %s\n", summary.EndTime.Format(logTimeLayout))
		fmt.Fprintf(w, "Duration: %s\n\n", summary.EndTime.Sub(summary.StartTime))

		totals := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(totals, "Statements\t%d\t(%d ingested, %d failed)\n",
			summary.TotalFiles, summary.SuccessfulFiles, summary.FailedFiles)
		fmt.Fprintf(totals, "Rows read\t%d\t\n", summary.TotalRows)
		fmt.Fprintf(totals, "Rows dropped\t%d\t\n", summary.RowsDropped)
		fmt.Fprintf(totals, "Duplicates removed\t%d\t\n", summary.DuplicatesRemoved)
		fmt.Fprintf(totals, "Transactions\t%d\t\n", summary.TotalTransactions)
		fmt.Fprintf(totals, "Validation errors\t%d\t\n", summary.ValidationErrors)
		totals.Flush()

		if len(summary.ProcessedFiles) > 0 {
			fmt.Fprintf(w, "\nIngested\n%s\n", logRule)
			table := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(table, "STATEMENT\tTYPE\tROWS\tDROPPED\tDUPLICATES\tTRANSACTIONS\tTIME\tREPORT")
			for _, pf := range summary.ProcessedFiles {
				fmt.Fprintf(table, "%s\t%s\t%d\t%d\t%d\t%d\t%s\t%s\n",
					filepath.Base(pf.InputFile), pf.FileType, pf.Rows, pf.RowsDropped,
					pf.DuplicatesRemoved, pf.Transactions,
					pf.ProcessTime.Round(time.Millisecond), pf.OutputFile)
			}
			table.Flush()
		}

		if len(summary.FailedFilesList) > 0 {
			fmt.Fprintf(w, "\nFailed\n%s\n", logRule)
			for _, ff := range summary.FailedFilesList {
				fmt.Fprintf(w, "%s [%s] %s\n", filepath.Base(ff.InputFile), ff.ErrorType, ff.ErrorMessage)
			}
		}
	})
}

const (
	logTimeLayout = "2006-01-02 15:04:05"
	logRule       = "--------------------------------------------------------------------------------"
)

// writeRunLog creates <prefix>_<timestamp>.txt in dir and fills it with render.
func writeRunLog(dir, prefix string, render func(w *bufio.Writer)) (string, error) {
	path := uniquePath(filepath.Join(dir,
		fmt.Sprintf("%s_%s.txt", prefix, time.Now().Format("20060102_150405"))))

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	render(w)
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}

	return path, nil
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists checks if a file exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// WriteFileAtomic writes data to a temporary file next to path and renames
// it into place, so readers never see a partial report.
func WriteFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}

	return nil
}

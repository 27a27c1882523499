package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// EXTRACTION ERRORS
// =============================================================================
// Extraction errors are fatal for the file being processed. Row-level
// problems never use these types; see RowError.

// UnsupportedFormatError is returned when a file extension does not select
// any extractor.
type UnsupportedFormatError struct {
	Filename  string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported file type: %s has no extension", e.Filename)
	}
	return fmt.Sprintf("unsupported file type %q: %s", e.Extension, e.Filename)
}

// EncodingAttempt records one decode attempt of a delimited-text file.
type EncodingAttempt struct {
	Encoding string
	Err      error
}

// DecodingError is returned when no candidate encoding could decode a
// delimited-text file.
type DecodingError struct {
	// Detected is the statistically detected charset, empty if detection failed.
	Detected string

	// Confidence is the detector's confidence in Detected (0-100).
	Confidence int

	Attempts []EncodingAttempt
}

func (e *DecodingError) Error() string {
	var tried []string
	for _, attempt := range e.Attempts {
		tried = append(tried, fmt.Sprintf("%s: %v", attempt.Encoding, attempt.Err))
	}

	msg := "could not decode CSV file with any known encoding"
	if e.Detected != "" {
		msg += fmt.Sprintf(" (detected %s, confidence %d)", e.Detected, e.Confidence)
	}
	if len(tried) > 0 {
		msg += ": " + strings.Join(tried, "; ")
	}
	return msg
}

// ParseError wraps a failure raised by a spreadsheet or document library
// while reading the file structure.
type ParseError struct {
	// Format is the extractor that failed ("excel", "pdf", "csv").
	Format string
	Cause  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s file: %v", e.Format, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

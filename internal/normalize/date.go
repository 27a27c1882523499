// =============================================================================
// Statement Ingest - Value Normalizers
// =============================================================================
//
// Independent parsers for the two value kinds every statement carries:
// dates and currency amounts. Neither parser returns an error or panics on
// bad input; a false second return value means "drop this row".
//
// =============================================================================

package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ISODate is the output layout of every normalized date.
const ISODate = "2006-01-02"

var isoPrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// dateLayouts is tried in order after the ISO prefix check. Day-first
// layouts precede month-first ones, so "01-03-2024" is the 1st of March.
// Go layouts without zero padding also accept zero-padded input.
var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"1-2-2006",
	"2006/1/2",
	"2/1/2006",
	"1/2/2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2.1.2006",
	"1.2.2006",
	"20060102",
}

// ParseDate parses a date-like cell.
//
// STRATEGIES (first success wins):
//  1. A YYYY-MM-DD prefix is truncated to ten characters and accepted when it
//     is a real calendar date.
//  2. The explicit layouts above.
//  3. A best-effort parse that understands most remaining spellings
//     (two-digit years, times, weekday names).
//
// RETURNS:
//   - The parsed date at midnight UTC.
//   - false when no strategy succeeds.
func ParseDate(value string) (time.Time, bool) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, false
	}

	if isoPrefix.MatchString(s) {
		if t, err := time.Parse(ISODate, s[:10]); err == nil {
			return t, true
		}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return dateOnly(t)
		}
	}

	if t, ok := parseAny(s); ok {
		return dateOnly(t)
	}

	return time.Time{}, false
}

// parseAny runs the best-effort parser. dateparse panics on a few malformed
// inputs, which must not take the pipeline down.
func parseAny(s string) (t time.Time, ok bool) {
	defer func() {
		if recover() != nil {
			t, ok = time.Time{}, false
		}
	}()

	parsed, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return parsed, true
}

// dateOnly drops the clock and rejects years that cannot be written as
// four digits.
func dateOnly(t time.Time) (time.Time, bool) {
	if t.Year() < 1000 || t.Year() > 9999 {
		return time.Time{}, false
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(ISODate)
}

// NormalizeDate parses value and renders it as YYYY-MM-DD.
func NormalizeDate(value string) (string, bool) {
	t, ok := ParseDate(value)
	if !ok {
		return "", false
	}
	return FormatDate(t), true
}

package cleaner

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxDescriptionLength = 255
	maxMerchantLength    = 100
)

var (
	referenceNumber = regexp.MustCompile(`\b\d{10,}\b`)
	transactionID   = regexp.MustCompile(`\b[A-Z0-9]{15,}\b`)
	merchantNumber  = regexp.MustCompile(`\b\d{8,}\b`)

	merchantPhrase  = regexp.MustCompile(`(?i)(?:\bto|\bfrom|\bat|@)\s+([A-Za-z][A-Za-z0-9\s&'.]+)`)
	merchantLeading = regexp.MustCompile(`(?i)^([A-Za-z][A-Za-z0-9\s&'.]{2,30}?)(?:\s+\d|$|-)`)
)

// prefixPattern matches one of the transfer network tags at the start of a
// description, with its separator. A tag must end at a word boundary or a
// '/' or '-'.
func prefixPattern(prefixes []string) *regexp.Regexp {
	if len(prefixes) == 0 {
		return nil
	}

	quoted := make([]string, len(prefixes))
	for i, prefix := range prefixes {
		quoted[i] = regexp.QuoteMeta(prefix)
	}
	return regexp.MustCompile(`(?i)^(?:` + strings.Join(quoted, "|") + `)(?:[/-]|\b)\s*`)
}

// CleanDescription normalizes a transaction description.
//
// STEPS:
//  1. Collapse whitespace.
//  2. Remove reference numbers (10 or more digits).
//  3. Remove a leading transfer network tag.
//  4. Remove upper-case transaction IDs (15 or more characters).
//  5. Collapse whitespace again.
//  6. Title-case text that is entirely upper or entirely lower case.
//  7. Truncate to 255 characters.
func (c *Cleaner) CleanDescription(description string) string {
	desc := collapseSpaces(description)
	if desc == "" {
		return ""
	}

	desc = referenceNumber.ReplaceAllString(desc, "")
	if c.prefix != nil {
		desc = c.prefix.ReplaceAllString(strings.TrimSpace(desc), "")
	}
	desc = transactionID.ReplaceAllString(desc, "")
	desc = collapseSpaces(desc)

	if isSingleCase(desc) {
		desc = cases.Title(language.Und).String(desc)
	}

	return truncate(desc, maxDescriptionLength)
}

// CleanMerchant tidies a merchant taken from the statement, or extracts one
// from the cleaned description when the statement had none worth keeping.
// Trailing banking jargon is dropped from extracted names.
func (c *Cleaner) CleanMerchant(merchant, description string) string {
	if merchant = strings.TrimSpace(merchant); merchant != "" {
		merchant = collapseSpaces(merchantNumber.ReplaceAllString(merchant, ""))
		if len([]rune(merchant)) > 2 {
			return truncate(merchant, maxMerchantLength)
		}
	}

	if description == "" {
		return ""
	}

	for _, pattern := range []*regexp.Regexp{merchantPhrase, merchantLeading} {
		match := pattern.FindStringSubmatch(description)
		if match == nil {
			continue
		}

		extracted := collapseSpaces(match[1])
		if n := len([]rune(extracted)); n <= 2 || n >= 50 {
			continue
		}

		words := strings.Fields(extracted)
		for len(words) > 0 && c.noise[strings.ToLower(words[len(words)-1])] {
			words = words[:len(words)-1]
		}
		if len(words) > 0 {
			return strings.Join(words, " ")
		}
	}

	return ""
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isSingleCase reports whether s has cased letters and all of them are upper
// case, or all of them lower case.
func isSingleCase(s string) bool {
	var upper, lower bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		}
	}
	return upper != lower
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}

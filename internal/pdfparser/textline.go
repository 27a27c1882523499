package pdfparser

import (
	"regexp"
	"strings"

	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// Column labels of rows recovered from plain text lines.
const (
	ColumnDate        = "date"
	ColumnDescription = "description"
	ColumnAmount      = "amount"
)

var (
	textDatePattern   = regexp.MustCompile(`(\d{1,2}[-/.]\d{1,2}[-/.]\d{2,4}|\d{4}[-/.]\d{1,2}[-/.]\d{1,2})`)
	textAmountPattern = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)
)

// ParseTextLine recovers a (date, description, amount) row from one line of
// page text. The amount is the first number outside the date; the
// description is the text between the two, or empty when the amount comes
// first. Lines without both a date and an amount yield false.
func ParseTextLine(line string) (types.Row, bool) {
	dateLoc := textDatePattern.FindStringIndex(line)
	if dateLoc == nil {
		return nil, false
	}

	var amountLoc []int
	for _, loc := range textAmountPattern.FindAllStringIndex(line, -1) {
		if loc[1] <= dateLoc[0] || loc[0] >= dateLoc[1] {
			amountLoc = loc
			break
		}
	}
	if amountLoc == nil {
		return nil, false
	}

	description := ""
	if amountLoc[0] > dateLoc[1] {
		description = strings.TrimSpace(line[dateLoc[1]:amountLoc[0]])
	}

	return types.Row{
		ColumnDate:        line[dateLoc[0]:dateLoc[1]],
		ColumnDescription: description,
		ColumnAmount:      line[amountLoc[0]:amountLoc[1]],
	}, true
}

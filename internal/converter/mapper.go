package converter

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/statement-ingest/internal/normalize"
	"github.com/ginjaninja78/statement-ingest/internal/types"
)

// merchantPatterns are tried in order on a description; the first capture
// of acceptable length is the merchant.
var merchantPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:\bto|\bfrom|\bat|@)\s+([A-Za-z0-9\s&]+)`),
	regexp.MustCompile(`(?i)^([A-Za-z0-9\s&]+?)(?:\s+\d|$)`),
}

// MapOptions configures MapRows.
type MapOptions struct {
	// PositiveAmountType and NegativeAmountType are assigned to values of a
	// generic amount column by sign. Both default to income.
	PositiveAmountType types.TransactionType
	NegativeAmountType types.TransactionType
}

// columns holds the resolved source columns of one table. An empty label
// means the field is not mapped.
type columns struct {
	date, description, merchant string
	debit, credit, amount       string
}

// MapRows turns table rows into provisional transactions.
//
// AMOUNT AND TYPE PRECEDENCE:
//   1. A positive debit makes the row an expense.
//   2. A positive credit makes it income, overriding the debit.
//   3. Otherwise the generic amount column gives the absolute amount and
//      its sign picks PositiveAmountType or NegativeAmountType.
//
// Rows without a parseable date or with a zero amount are returned as row
// errors. When the field map has no date the first column is used.
func MapRows(table types.RawTable, fields types.FieldMap, opts MapOptions) []types.RowResult[types.ProvisionalTransaction] {
	if !opts.PositiveAmountType.IsValid() {
		opts.PositiveAmountType = types.TypeIncome
	}
	if !opts.NegativeAmountType.IsValid() {
		opts.NegativeAmountType = types.TypeIncome
	}

	cols := resolveColumns(table, fields)
	results := make([]types.RowResult[types.ProvisionalTransaction], 0, len(table.Rows))

	for i, row := range table.Rows {
		results = append(results, mapRow(row, i+1, cols, opts))
	}

	return results
}

func resolveColumns(table types.RawTable, fields types.FieldMap) columns {
	lookup := func(field types.Field) string {
		column, _ := fields.Column(field)
		return column
	}

	cols := columns{
		date:        lookup(types.FieldDate),
		description: lookup(types.FieldDescription),
		merchant:    lookup(types.FieldMerchant),
		debit:       lookup(types.FieldDebit),
		credit:      lookup(types.FieldCredit),
		amount:      lookup(types.FieldAmount),
	}
	if cols.date == "" && len(table.Columns) > 0 {
		cols.date = table.Columns[0]
	}
	return cols
}

func mapRow(row types.Row, number int, cols columns, opts MapOptions) types.RowResult[types.ProvisionalTransaction] {
	fail := func(reason types.RowErrorReason, detail string) types.RowResult[types.ProvisionalTransaction] {
		return types.RowResult[types.ProvisionalTransaction]{
			Err: &types.RowError{Row: number, Reason: reason, Detail: detail},
		}
	}

	if isBlankRow(row) {
		return fail(types.ReasonEmptyRow, "")
	}

	date, ok := normalize.NormalizeDate(cell(row, cols.date))
	if !ok {
		return fail(types.ReasonMissingDate, cell(row, cols.date))
	}

	var (
		amount   decimal.Decimal
		txType   = types.TypeExpense
		resolved bool
	)

	if value, ok := normalize.ParseAmount(cell(row, cols.debit)); ok && value.IsPositive() {
		amount, txType, resolved = value, types.TypeExpense, true
	}
	if value, ok := normalize.ParseAmount(cell(row, cols.credit)); ok && value.IsPositive() {
		amount, txType, resolved = value, types.TypeIncome, true
	}

	if !resolved && cols.amount != "" {
		raw := cell(row, cols.amount)
		value, ok := normalize.ParseAmount(raw)
		if !ok {
			if raw != "" {
				return fail(types.ReasonInvalidAmount, raw)
			}
		} else {
			amount = value.Abs()
			txType = opts.PositiveAmountType
			if value.IsNegative() {
				txType = opts.NegativeAmountType
			}
		}
	}

	if amount.IsZero() {
		return fail(types.ReasonZeroAmount, "")
	}

	description := cell(row, cols.description)
	merchant := cell(row, cols.merchant)
	if merchant == "" {
		merchant = ExtractMerchant(description)
	}

	return types.RowResult[types.ProvisionalTransaction]{Value: types.ProvisionalTransaction{
		TransactionDate: date,
		Type:            txType,
		Amount:          normalize.RoundAmount(amount),
		Description:     description,
		Merchant:        merchant,
		RowNumber:       number,
	}}
}

// ExtractMerchant guesses a merchant name from a description: the phrase
// after "to", "from", "at" or "@", else the leading words before the first
// number. It returns "" when neither yields 3 to 49 characters.
func ExtractMerchant(description string) string {
	if description == "" {
		return ""
	}

	for _, pattern := range merchantPatterns {
		match := pattern.FindStringSubmatch(description)
		if match == nil {
			continue
		}
		merchant := strings.TrimSpace(match[1])
		if n := len([]rune(merchant)); n > 2 && n < 50 {
			return merchant
		}
	}

	return ""
}

// cell returns the trimmed value of column, or "" when the column is
// unmapped or absent from the row.
func cell(row types.Row, column string) string {
	if column == "" {
		return ""
	}
	return strings.TrimSpace(row[column])
}

func isBlankRow(row types.Row) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

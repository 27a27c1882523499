// =============================================================================
// Statement Ingest - Shared Types
// =============================================================================
//
// This package contains the data model shared by every stage of the
// ingestion pipeline. Keeping it in one leaf package avoids import cycles
// between the extractors, the mapper, the cleaner and the writers:
//   - csvparser / xlsxparser / pdfparser produce RawTable
//   - classifier produces FieldMap
//   - converter produces ProvisionalTransaction
//   - cleaner produces Transaction and CleaningSummary
//
// =============================================================================

package types

import (
	"encoding/json"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RAW TABLE
// =============================================================================

// Row maps an original column label to its cell text. An empty string is
// the empty cell.
type Row map[string]string

// RawTable is the generic row/column structure produced by every extractor
// before any field semantics are known.
type RawTable struct {
	// Columns holds the column labels in source order.
	Columns []string

	// Rows holds the data rows in source order.
	Rows []Row
}

// Len returns the number of data rows.
func (t *RawTable) Len() int {
	return len(t.Rows)
}

// =============================================================================
// LOGICAL FIELDS
// =============================================================================

// Field is a logical transaction field recognized by the classifier.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldDebit       Field = "debit"
	FieldCredit      Field = "credit"
	FieldAmount      Field = "amount"
	FieldBalance     Field = "balance"
	FieldMerchant    Field = "merchant"
	FieldCategory    Field = "category"
)

// Fields lists every logical field in canonical order.
var Fields = []Field{
	FieldDate,
	FieldDescription,
	FieldDebit,
	FieldCredit,
	FieldAmount,
	FieldBalance,
	FieldMerchant,
	FieldCategory,
}

// IsValid reports whether f is one of the known logical fields.
func (f Field) IsValid() bool {
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// FieldMap resolves logical fields to source column labels. It is built once
// per document and cannot be modified afterwards.
type FieldMap struct {
	columns map[Field]string
}

// NewFieldMap copies the given assignments into a new FieldMap.
func NewFieldMap(assignments map[Field]string) FieldMap {
	columns := make(map[Field]string, len(assignments))
	for field, column := range assignments {
		columns[field] = column
	}
	return FieldMap{columns: columns}
}

// Column returns the column label mapped to field, if any.
func (m FieldMap) Column(field Field) (string, bool) {
	column, ok := m.columns[field]
	return column, ok
}

// Has reports whether field was detected.
func (m FieldMap) Has(field Field) bool {
	_, ok := m.columns[field]
	return ok
}

// Len returns the number of detected fields.
func (m FieldMap) Len() int {
	return len(m.columns)
}

// AsMap renders the mapping with string keys for diagnostics output.
func (m FieldMap) AsMap() map[string]string {
	out := make(map[string]string, len(m.columns))
	for field, column := range m.columns {
		out[string(field)] = column
	}
	return out
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionType is the direction of money movement.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expense"
)

// IsValid reports whether t is income or expense.
func (t TransactionType) IsValid() bool {
	return t == TypeIncome || t == TypeExpense
}

// ProvisionalTransaction is an unvalidated candidate record produced by the
// row mapper. It may still be rejected by the cleaner.
type ProvisionalTransaction struct {
	// TransactionDate is YYYY-MM-DD, or empty when no date could be resolved.
	TransactionDate string
	Type            TransactionType
	Amount          decimal.Decimal
	Description     string
	Merchant        string

	// RowNumber is the 1-indexed data row the record came from.
	RowNumber int
}

// Transaction is a cleaned pipeline output record.
//
// INVARIANTS:
//   - Amount > 0 with exactly two decimal places
//   - Type is income or expense
//   - TransactionDate is a valid YYYY-MM-DD calendar date
//   - Description is at most 255 runes, Merchant at most 100 runes
type Transaction struct {
	TransactionDate string          `json:"transaction_date"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description"`
	Merchant        string          `json:"merchant"`
}

// MarshalJSON renders Amount with exactly two decimals.
func (t Transaction) MarshalJSON() ([]byte, error) {
	type plain Transaction
	return json.Marshal(struct {
		plain
		Amount json.Number `json:"amount"`
	}{plain(t), FixedAmount(t.Amount)})
}

// FixedAmount renders d as a JSON number with two decimals.
func FixedAmount(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

// =============================================================================
// DIAGNOSTICS
// =============================================================================

// ExtractionDiagnostics describes how a file was read and mapped.
type ExtractionDiagnostics struct {
	FileType      string            `json:"file_type"`
	RowsRead      int               `json:"rows_read"`
	RowsProcessed int               `json:"rows_processed"`
	Encoding      string            `json:"encoding,omitempty"`
	Sheet         string            `json:"sheet,omitempty"`
	PagesRead     int               `json:"pages_read,omitempty"`
	ColumnsFound  []string          `json:"columns_found"`
	ColumnMapping map[string]string `json:"column_mapping"`
	Warning       string            `json:"warning,omitempty"`

	// RowsDropped counts rows the mapper rejected, keyed by reason.
	RowsDropped map[string]int `json:"rows_dropped,omitempty"`
}

// DateRange is the inclusive span of transaction dates.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// CleaningSummary aggregates the cleaner's output.
type CleaningSummary struct {
	OriginalCount     int             `json:"original_count"`
	CleanedCount      int             `json:"cleaned_count"`
	DuplicatesRemoved int             `json:"duplicates_removed"`
	InvalidRemoved    int             `json:"invalid_removed"`
	IncomeCount       int             `json:"income_count"`
	ExpenseCount      int             `json:"expense_count"`
	DateRange         DateRange       `json:"date_range"`
	TotalIncome       decimal.Decimal `json:"total_income"`
	TotalExpenses     decimal.Decimal `json:"total_expenses"`
}

// MarshalJSON renders the totals with exactly two decimals.
func (s CleaningSummary) MarshalJSON() ([]byte, error) {
	type plain CleaningSummary
	return json.Marshal(struct {
		plain
		TotalIncome   json.Number `json:"total_income"`
		TotalExpenses json.Number `json:"total_expenses"`
	}{plain(s), FixedAmount(s.TotalIncome), FixedAmount(s.TotalExpenses)})
}

// =============================================================================
// ROW RESULTS
// =============================================================================

// RowErrorReason classifies why a row was dropped.
type RowErrorReason string

const (
	ReasonEmptyRow          RowErrorReason = "empty_row"
	ReasonMissingDate       RowErrorReason = "missing_date"
	ReasonInvalidAmount     RowErrorReason = "invalid_amount"
	ReasonZeroAmount        RowErrorReason = "zero_amount"
	ReasonNonPositiveAmount RowErrorReason = "non_positive_amount"
)

// RowError records a dropped row. It is never returned as a Go error; it
// only feeds diagnostics counters.
type RowError struct {
	Row    int
	Reason RowErrorReason
	Detail string
}

// RowResult holds either a value or the reason the row was dropped.
type RowResult[T any] struct {
	Value T
	Err   *RowError
}

// OK reports whether the row produced a value.
func (r RowResult[T]) OK() bool {
	return r.Err == nil
}

// Partition splits results into values and row errors, preserving order.
func Partition[T any](results []RowResult[T]) ([]T, []RowError) {
	values := make([]T, 0, len(results))
	var failures []RowError

	for _, result := range results {
		if result.OK() {
			values = append(values, result.Value)
			continue
		}
		failures = append(failures, *result.Err)
	}

	return values, failures
}

// CountReasons folds row errors into per-reason counters. It returns nil when
// there are no failures so the diagnostics field is omitted.
func CountReasons(failures []RowError) map[string]int {
	if len(failures) == 0 {
		return nil
	}

	counts := make(map[string]int)
	for _, failure := range failures {
		counts[string(failure.Reason)]++
	}
	return counts
}

// SortedReasons returns the reasons of a counter map in a stable order.
func SortedReasons(counts map[string]int) []string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
